package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceUpdateEvent - "цена товара изменилась на Price в момент Timestamp"
type PriceUpdateEvent struct {
	SKU       string
	Price     decimal.Decimal
	Timestamp time.Time
	Source    string
}

type PromoChangeKind string

const (
	PromoStarted PromoChangeKind = "STARTED" // Снижение цены запустило акцию
	PromoEnded   PromoChangeKind = "ENDED"   // Обновление цены сняло акцию
	PromoExpired PromoChangeKind = "EXPIRED" // Акция закончилась по сроку
)

// PromoChange - смена состояния акции, которую показываем мерчандайзерам
type PromoChange struct {
	ID            string
	SKU           string
	Kind          PromoChangeKind
	Price         decimal.Decimal
	BaselinePrice decimal.Decimal
	ExpiresAt     time.Time
	At            time.Time
}

// Reduction - снижение относительно базовой цены (0.20 = 20%)
func (c PromoChange) Reduction() decimal.Decimal {
	r, err := ReductionFrom(c.BaselinePrice, c.Price)
	if err != nil {
		return decimal.Zero
	}
	return r
}
