package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/romanzzaa/red-pencil-promo/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownItem = errors.New("unknown item")
	ErrStaleUpdate = errors.New("price update older than last recorded price")
)

// ItemStatus - снимок состояния товара для бота и логов
type ItemStatus struct {
	SKU       string
	Price     decimal.Decimal
	UpdatedAt time.Time
	Active    bool
	Promotion *domain.Promotion
}

type item struct {
	mu    sync.Mutex // Сериализует обновления одного товара
	merch *domain.Merchandise

	// Срок акции, об окончании которой уже сообщили
	reportedExpiry time.Time
}

// PromoService применяет обновления цен к товарам и отслеживает смену акций
type PromoService struct {
	logger *slog.Logger

	mu    sync.RWMutex
	items map[string]*item
}

func NewPromoService(logger *slog.Logger) *PromoService {
	return &PromoService{
		logger: logger,
		items:  make(map[string]*item),
	}
}

// ApplyPriceUpdate записывает цену и возвращает смены акции, которые она вызвала.
// Акция, истекшая до этого обновления и еще не отмеченная свипом, закрывается здесь через EXPIRED.
func (s *PromoService) ApplyPriceUpdate(ctx context.Context, ev domain.PriceUpdateEvent) ([]domain.PromoChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := s.logger.With(
		slog.String("sku", ev.SKU),
		slog.String("price", ev.Price.String()),
		slog.String("source", ev.Source),
	)

	it, created := s.getOrCreate(ev)
	if created {
		log.Info("New item registered", slog.Time("at", ev.Timestamp))
		return nil, nil
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	// Трекер не определен для событий не по порядку, поэтому отсекаем их здесь
	if ev.Timestamp.Before(it.merch.LastUpdate()) {
		log.Warn("Stale price update dropped",
			slog.Time("at", ev.Timestamp),
			slog.Time("last_update", it.merch.LastUpdate()))
		return nil, fmt.Errorf("%w: sku %s", ErrStaleUpdate, ev.SKU)
	}
	if !ev.Price.IsPositive() {
		log.Warn("Non-positive price recorded, it can never start a promotion")
	}

	var changes []domain.PromoChange

	before, hadPromo := it.merch.Promotion()
	wasActive := it.merch.IsRedPencilPromo(ev.Timestamp)

	// Запись об истекшей акции сейчас будет заменена, свип ее уже не увидит
	if hadPromo && !wasActive && !it.reportedExpiry.Equal(before.ExpiresAt) {
		it.reportedExpiry = before.ExpiresAt
		changes = append(changes, s.expiredChange(ev.SKU, it.merch.Price(), before, ev.Timestamp))
		log.Info("Red pencil promo expired before price change",
			slog.Time("expires_at", before.ExpiresAt))
	}

	it.merch.SetPrice(ev.Price, ev.Timestamp)

	after, _ := it.merch.Promotion()
	isActive := it.merch.IsRedPencilPromo(ev.Timestamp)

	switch {
	case isActive && (!wasActive || !samePromotion(before, after)):
		changes = append(changes, s.newChange(ev, domain.PromoStarted, after))
		log.Info("🔴 Red pencil promo started",
			slog.String("baseline", after.BaselinePrice.String()),
			slog.Time("expires_at", after.ExpiresAt))
	case wasActive && !isActive:
		changes = append(changes, s.newChange(ev, domain.PromoEnded, before))
		log.Info("Red pencil promo ended by price change",
			slog.String("baseline", before.BaselinePrice.String()))
	case isActive:
		log.Debug("Red pencil promo continues", slog.Time("expires_at", after.ExpiresAt))
	}

	return changes, nil
}

// SweepExpired возвращает по одному EXPIRED на каждую истекшую к моменту now акцию,
// о которой еще не сообщили. Акция считается сообщенной только после AckExpired,
// поэтому неотправленное уведомление вернется в следующем свипе.
func (s *PromoService) SweepExpired(ctx context.Context, now time.Time) []domain.PromoChange {
	var changes []domain.PromoChange

	for _, sku := range s.skus() {
		if ctx.Err() != nil {
			break
		}
		it := s.lookup(sku)
		it.mu.Lock()
		promo, ok := it.merch.Promotion()
		if ok && !promo.ActiveAt(now) && !it.reportedExpiry.Equal(promo.ExpiresAt) {
			changes = append(changes, s.expiredChange(sku, it.merch.Price(), promo, now))
		}
		it.mu.Unlock()
	}

	if len(changes) > 0 {
		s.logger.Info("Expired promotions swept", slog.Int("count", len(changes)))
	}
	return changes
}

// AckExpired отмечает EXPIRED как доставленный
func (s *PromoService) AckExpired(change domain.PromoChange) {
	it := s.lookup(change.SKU)
	if it == nil {
		return
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.reportedExpiry.Before(change.ExpiresAt) {
		it.reportedExpiry = change.ExpiresAt
	}
}

// Status - текущее состояние товара на момент now
func (s *PromoService) Status(sku string, now time.Time) (ItemStatus, error) {
	it := s.lookup(sku)
	if it == nil {
		return ItemStatus{}, fmt.Errorf("%w: %s", ErrUnknownItem, sku)
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	st := ItemStatus{
		SKU:       sku,
		Price:     it.merch.Price(),
		UpdatedAt: it.merch.LastUpdate(),
		Active:    it.merch.IsRedPencilPromo(now),
	}
	if promo, ok := it.merch.Promotion(); ok && st.Active {
		st.Promotion = &promo
	}
	return st, nil
}

// Helpers

func (s *PromoService) getOrCreate(ev domain.PriceUpdateEvent) (*item, bool) {
	if it := s.lookup(ev.SKU); it != nil {
		return it, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[ev.SKU]; ok {
		return it, false
	}
	it := &item{merch: domain.NewMerchandise(ev.SKU, ev.Price, ev.Timestamp)}
	s.items[ev.SKU] = it
	return it, true
}

func (s *PromoService) lookup(sku string) *item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[sku]
}

func (s *PromoService) skus() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.items))
	for sku := range s.items {
		out = append(out, sku)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

func (s *PromoService) newChange(ev domain.PriceUpdateEvent, kind domain.PromoChangeKind, promo domain.Promotion) domain.PromoChange {
	return domain.PromoChange{
		ID:            uuid.NewString(),
		SKU:           ev.SKU,
		Kind:          kind,
		Price:         ev.Price,
		BaselinePrice: promo.BaselinePrice,
		ExpiresAt:     promo.ExpiresAt,
		At:            ev.Timestamp,
	}
}

func (s *PromoService) expiredChange(sku string, price decimal.Decimal, promo domain.Promotion, at time.Time) domain.PromoChange {
	return domain.PromoChange{
		ID:            uuid.NewString(),
		SKU:           sku,
		Kind:          domain.PromoExpired,
		Price:         price,
		BaselinePrice: promo.BaselinePrice,
		ExpiresAt:     promo.ExpiresAt,
		At:            at,
	}
}

func samePromotion(a, b domain.Promotion) bool {
	return a.BaselinePrice.Equal(b.BaselinePrice) && a.ExpiresAt.Equal(b.ExpiresAt)
}
