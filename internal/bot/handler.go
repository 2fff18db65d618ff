package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/romanzzaa/red-pencil-promo/internal/domain"
	"github.com/romanzzaa/red-pencil-promo/internal/usecase"
)

const helpText = "Red pencil promo watcher.\n\n" +
	"/status <SKU> - current price and promo state\n" +
	"/watch <SKU> [SKU...] - subscribe to price updates"

// API - методы *tgbotapi.BotAPI, которые использует хендлер
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// StatusReader - источник состояния товара (usecase.PromoService)
type StatusReader interface {
	Status(sku string, now time.Time) (usecase.ItemStatus, error)
}

// Watcher - добавление подписок на лету (worker.Manager)
type Watcher interface {
	Watch(skus []string) error
}

type Handler struct {
	bot     API
	status  StatusReader
	watcher Watcher
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(bot API, status StatusReader, watcher Watcher, logger *slog.Logger) *Handler {
	return &Handler{
		bot:     bot,
		status:  status,
		watcher: watcher,
		logger:  logger.With("component", "bot"),
		now:     time.Now,
	}
}

func (h *Handler) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			// Останавливаем long polling внутри tgbotapi
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				h.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		h.send(msg.Chat.ID, "Use /status <SKU> or /watch <SKU>.")
		return
	}

	args := strings.Fields(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		h.send(msg.Chat.ID, helpText)
	case "status":
		h.cmdStatus(msg.Chat.ID, args)
	case "watch":
		h.cmdWatch(msg.Chat.ID, args)
	default:
		h.send(msg.Chat.ID, "Unknown command.\n\n"+helpText)
	}
}

// --- Commands ---

func (h *Handler) cmdStatus(chatID int64, args []string) {
	if len(args) != 1 {
		h.send(chatID, "Usage: /status <SKU>")
		return
	}

	st, err := h.status.Status(args[0], h.now())
	if errors.Is(err, usecase.ErrUnknownItem) {
		h.send(chatID, fmt.Sprintf("📭 No prices seen for %s yet.", args[0]))
		return
	}
	if err != nil {
		h.logger.Error("Status lookup failed", "sku", args[0], "err", err)
		h.send(chatID, "⚠️ Status lookup failed.")
		return
	}

	h.send(chatID, formatStatus(st))
}

func (h *Handler) cmdWatch(chatID int64, args []string) {
	if len(args) == 0 {
		h.send(chatID, "Usage: /watch <SKU> [SKU...]")
		return
	}
	if err := h.watcher.Watch(args); err != nil {
		h.logger.Error("Watch failed", "skus", args, "err", err)
		h.send(chatID, "⚠️ Failed to subscribe.")
		return
	}
	h.send(chatID, "✅ Watching "+strings.Join(args, ", "))
}

func formatStatus(st usecase.ItemStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", st.SKU, st.Price.String())
	fmt.Fprintf(&sb, "Updated: %s\n", st.UpdatedAt.UTC().Format(time.RFC3339))

	if !st.Active || st.Promotion == nil {
		sb.WriteString("No active promo")
		return sb.String()
	}

	// База активной акции всегда > 0
	reduction, _ := domain.ReductionFrom(st.Promotion.BaselinePrice, st.Price)
	fmt.Fprintf(&sb, "🔴 Red pencil promo: -%s%% from %s until %s",
		reduction.Shift(2).StringFixed(0),
		st.Promotion.BaselinePrice.String(),
		st.Promotion.ExpiresAt.UTC().Format(time.RFC3339))
	return sb.String()
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warn("Reply failed", "chat_id", chatID, "err", err)
	}
}
