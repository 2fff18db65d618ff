package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Merchandise - товар с ценой и трекером акции Red Pencil
type Merchandise struct {
	sku     string
	tracker *Tracker
}

// NewMerchandise создает товар и сразу регистрирует начальную цену
func NewMerchandise(sku string, price decimal.Decimal, now time.Time) *Merchandise {
	m := &Merchandise{sku: sku, tracker: NewTracker()}
	m.SetPrice(price, now)
	return m
}

func (m *Merchandise) SKU() string { return m.sku }

func (m *Merchandise) Price() decimal.Decimal {
	p, _ := m.tracker.State().StoredPrice()
	return p.Amount
}

// LastUpdate - момент последнего изменения цены
func (m *Merchandise) LastUpdate() time.Time {
	p, _ := m.tracker.State().StoredPrice()
	return p.EffectiveAt
}

func (m *Merchandise) SetPrice(price decimal.Decimal, now time.Time) {
	m.tracker.RecordPriceUpdate(price, now)
}

func (m *Merchandise) IsRedPencilPromo(now time.Time) bool {
	return m.tracker.IsPromoActive(now)
}

func (m *Merchandise) Promotion() (Promotion, bool) {
	return m.tracker.State().Promotion()
}
