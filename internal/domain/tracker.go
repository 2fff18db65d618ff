package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tracker - отслеживает акцию для одного товара.
// Не потокобезопасен: вызывающий код сериализует обновления сам.
type Tracker struct {
	state PromoState
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordPriceUpdate вызывается ровно один раз на каждое изменение цены
func (t *Tracker) RecordPriceUpdate(amount decimal.Decimal, now time.Time) {
	t.state = t.state.Apply(amount, now)
}

func (t *Tracker) IsPromoActive(now time.Time) bool {
	return t.state.IsPromoActive(now)
}

func (t *Tracker) State() PromoState {
	return t.state
}
