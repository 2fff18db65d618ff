package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/romanzzaa/red-pencil-promo/internal/domain"
)

const (
	defaultReconnectDelay = 5 * time.Second
	defaultPingInterval   = 20 * time.Second

	sourceName = "price-feed-ws"
)

// PriceStream - клиент WebSocket фида цен с автоматическим реконнектом
type PriceStream struct {
	url    string
	logger *slog.Logger
	dialer *websocket.Dialer

	conn *websocket.Conn
	mu   sync.Mutex // Защищает conn и запись в сокет

	// Храним список активных подписок для автоматического реконнекта
	activeSubs []string
	subsMu     sync.RWMutex

	reconnectDelay time.Duration
	pingInterval   time.Duration
	now            func() time.Time
}

func NewPriceStream(url string, logger *slog.Logger) *PriceStream {
	return &PriceStream{
		url:            url,
		logger:         logger.With("component", "price_stream"),
		dialer:         websocket.DefaultDialer,
		reconnectDelay: defaultReconnectDelay,
		pingInterval:   defaultPingInterval,
		now:            time.Now,
	}
}

// Subscribe сохраняет SKU и запускает процесс чтения. Канал закрывается после отмены ctx.
func (s *PriceStream) Subscribe(ctx context.Context, skus []string) (<-chan domain.PriceUpdateEvent, error) {
	out := make(chan domain.PriceUpdateEvent, 100)

	s.subsMu.Lock()
	s.activeSubs = dedupe(nil, skus)
	s.subsMu.Unlock()

	go s.maintainConnection(ctx, out)

	return out, nil
}

// AddSubscriptions добавляет новые SKU "на лету" без разрыва соединения
func (s *PriceStream) AddSubscriptions(skus []string) error {
	s.subsMu.Lock()
	before := len(s.activeSubs)
	s.activeSubs = dedupe(s.activeSubs, skus)
	newSubs := append([]string(nil), s.activeSubs[before:]...)
	s.subsMu.Unlock()

	if len(newSubs) == 0 {
		return nil
	}

	// Если соединение активно, отправляем команду подписки немедленно
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.writeSubscribeLocked(newSubs)
	}
	return nil
}

// Subscriptions - копия текущего списка подписок
func (s *PriceStream) Subscriptions() []string {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return append([]string(nil), s.activeSubs...)
}

func (s *PriceStream) maintainConnection(ctx context.Context, out chan<- domain.PriceUpdateEvent) {
	defer close(out)

	for {
		if err := s.connectAndListen(ctx, out); err != nil && ctx.Err() == nil {
			s.logger.Error("Connection lost or failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
			s.logger.Info("Reconnecting...", "delay", s.reconnectDelay)
		}
	}
}

func (s *PriceStream) connectAndListen(ctx context.Context, out chan<- domain.PriceUpdateEvent) error {
	s.logger.Info("Connecting to price feed...", "url", s.url)

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	// Берем текущий список всех подписок для восстановления сессии
	s.mu.Lock()
	s.conn = conn
	err = s.writeSubscribeLocked(s.Subscriptions())
	s.mu.Unlock()

	connCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	go s.heartbeat(connCtx)

	// ReadMessage не принимает ctx, поэтому при отмене просто закрываем сокет
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		for _, ev := range s.decode(message) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// decode разбирает сообщение фида. Ответы на ping/subscribe и мусор игнорируются.
func (s *PriceStream) decode(message []byte) []domain.PriceUpdateEvent {
	var ctrl wsControl
	if err := json.Unmarshal(message, &ctrl); err != nil {
		s.logger.Debug("Malformed message skipped", "err", err)
		return nil
	}
	if ctrl.Op != "" {
		if ctrl.Success != nil && !*ctrl.Success {
			s.logger.Warn("Feed rejected request", "op", ctrl.Op, "msg", ctrl.RetMsg)
		}
		return nil
	}

	var event wsPriceEvent
	if err := json.Unmarshal(message, &event); err != nil {
		s.logger.Warn("Bad price message skipped", "err", err)
		return nil
	}
	if event.Topic == "" {
		return nil
	}

	received := s.now()
	events := make([]domain.PriceUpdateEvent, 0, len(event.Data))
	for _, d := range event.Data {
		if d.SKU == "" {
			continue
		}
		// Без цены нельзя: нулевая цена сняла бы акцию
		if !d.Price.Valid {
			s.logger.Warn("Price entry without price skipped", "sku", d.SKU)
			continue
		}
		at := received
		if d.TS > 0 {
			at = time.UnixMilli(d.TS).UTC()
		}
		events = append(events, domain.PriceUpdateEvent{
			SKU:       d.SKU,
			Price:     d.Price.Decimal,
			Timestamp: at,
			Source:    sourceName,
		})
	}
	return events
}

// writeSubscribeLocked: вызывающий держит s.mu
func (s *PriceStream) writeSubscribeLocked(skus []string) error {
	if len(skus) == 0 || s.conn == nil {
		return nil
	}

	args := make([]string, len(skus))
	for i, sku := range skus {
		args[i] = topicPrefix + sku
	}

	s.logger.Info("Sending subscription request", "topics", args)
	return s.conn.WriteJSON(wsRequest{Op: "subscribe", Args: args})
}

func (s *PriceStream) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn != nil {
				if err := s.conn.WriteJSON(wsRequest{Op: "ping"}); err != nil {
					s.logger.Error("Ping failed", "err", err)
				}
			}
			s.mu.Unlock()
		}
	}
}

func dedupe(existing, add []string) []string {
	seen := make(map[string]bool, len(existing)+len(add))
	for _, sku := range existing {
		seen[sku] = true
	}
	for _, sku := range add {
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		existing = append(existing, sku)
	}
	return existing
}
