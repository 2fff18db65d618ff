package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/romanzzaa/red-pencil-promo/internal/domain"
)

// Sender - часть *tgbotapi.BotAPI, которая нужна для отправки
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier шлет смены акций в чат мерчандайзеров
type Notifier struct {
	sender Sender
	chatID int64
	logger *slog.Logger
}

func NewNotifier(sender Sender, chatID int64, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		logger: logger.With("component", "telegram_notifier"),
	}
}

func (n *Notifier) NotifyChange(ctx context.Context, change domain.PromoChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatChange(change))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send promo change %s for %s: %w", change.Kind, change.SKU, err)
	}

	n.logger.Info("Promo change sent",
		slog.String("sku", change.SKU),
		slog.String("kind", string(change.Kind)),
		slog.String("change_id", change.ID))
	return nil
}

// NoopNotifier - когда токен бота не задан, только пишем в лог
type NoopNotifier struct {
	logger *slog.Logger
}

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger.With("component", "noop_notifier")}
}

func (n *NoopNotifier) NotifyChange(_ context.Context, change domain.PromoChange) error {
	n.logger.Info("Promo change",
		slog.String("sku", change.SKU),
		slog.String("kind", string(change.Kind)),
		slog.String("price", change.Price.String()))
	return nil
}

// FormatChange - текст уведомления
func FormatChange(c domain.PromoChange) string {
	var b strings.Builder
	switch c.Kind {
	case domain.PromoStarted:
		fmt.Fprintf(&b, "🔴 %s: red pencil promo started\n", c.SKU)
		fmt.Fprintf(&b, "Price: %s (was %s, -%s%%)\n",
			c.Price.String(), c.BaselinePrice.String(), c.Reduction().Shift(2).StringFixed(0))
		fmt.Fprintf(&b, "Until: %s", c.ExpiresAt.UTC().Format(time.RFC3339))
	case domain.PromoEnded:
		fmt.Fprintf(&b, "⚪ %s: red pencil promo ended by price change\n", c.SKU)
		fmt.Fprintf(&b, "Price: %s (promo baseline %s)", c.Price.String(), c.BaselinePrice.String())
	case domain.PromoExpired:
		fmt.Fprintf(&b, "⌛ %s: red pencil promo expired\n", c.SKU)
		fmt.Fprintf(&b, "Price: %s, ended %s", c.Price.String(), c.ExpiresAt.UTC().Format(time.RFC3339))
	default:
		fmt.Fprintf(&b, "%s: %s", c.SKU, c.Kind)
	}
	return b.String()
}
