package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// --- Policy (фиксированные правила Red Pencil) ---

const (
	StabilityWindow = 30 * 24 * time.Hour // Сколько цена должна держаться до снижения
	PromoDuration   = 30 * 24 * time.Hour // Максимальная длительность акции

	ratioPrecision = 2 // Точность отношения new/base
)

var (
	MinReduction = decimal.RequireFromString("0.05")
	MaxReduction = decimal.RequireFromString("0.30")
)

// ErrNonPositiveBase - базовая цена <= 0, процент снижения не определен
var ErrNonPositiveBase = errors.New("base price must be positive")

// --- Value Objects ---

// PricePoint - цена, действующая начиная с EffectiveAt
type PricePoint struct {
	Amount      decimal.Decimal
	EffectiveAt time.Time
}

// StableAt сообщает, продержалась ли цена окно стабильности к моменту now (включительно)
func (p PricePoint) StableAt(now time.Time) bool {
	return !p.EffectiveAt.Add(StabilityWindow).After(now)
}

// Promotion - запись об активной акции. Не меняется после создания.
type Promotion struct {
	BaselinePrice decimal.Decimal // Цена до акции, от нее считаем процент
	ExpiresAt     time.Time       // Последний момент, когда акция еще активна
}

// ActiveAt - граница включительная: в момент ExpiresAt акция еще идет
func (p Promotion) ActiveAt(now time.Time) bool {
	return !now.After(p.ExpiresAt)
}

// ReductionFrom считает снижение цены как 1 - round(price/base, 2, half-up).
// Округляется именно отношение, а не итоговый процент.
func ReductionFrom(base, price decimal.Decimal) (decimal.Decimal, error) {
	if !base.IsPositive() {
		return decimal.Zero, ErrNonPositiveBase
	}
	// DivRound округляет .5 от нуля, для неотрицательных цен это half-up
	ratio := price.DivRound(base, ratioPrecision)
	return decimal.NewFromInt(1).Sub(ratio), nil
}

// IsRedPencilChange - снижение в диапазоне [MinReduction, MaxReduction].
// Некорректная базовая цена никогда не квалифицируется.
func IsRedPencilChange(base, price decimal.Decimal) bool {
	reduction, err := ReductionFrom(base, price)
	if err != nil {
		return false
	}
	return reduction.GreaterThanOrEqual(MinReduction) && reduction.LessThanOrEqual(MaxReduction)
}

// --- State Machine ---

// PromoState - неизменяемое состояние трекера: последняя цена и, возможно, акция.
// Нулевое значение соответствует NO_PROMO без сохраненной цены.
type PromoState struct {
	stored *PricePoint
	promo  *Promotion
}

// Apply возвращает новое состояние после обновления цены до amount в момент now.
// Обновления должны приходить в хронологическом порядке.
func (s PromoState) Apply(amount decimal.Decimal, now time.Time) PromoState {
	next := PromoState{stored: &PricePoint{Amount: amount, EffectiveAt: now}}

	// Первая цена: акции быть не может
	if s.stored == nil {
		return next
	}

	switch {
	case s.continues(amount, now):
		next.promo = s.promo // Та же база и тот же срок, продления нет
	case s.stored.StableAt(now) && IsRedPencilChange(s.stored.Amount, amount):
		next.promo = &Promotion{
			BaselinePrice: s.stored.Amount,
			ExpiresAt:     now.Add(PromoDuration),
		}
	}
	return next
}

func (s PromoState) continues(amount decimal.Decimal, now time.Time) bool {
	return s.promo != nil &&
		s.promo.ActiveAt(now) &&
		amount.LessThanOrEqual(s.stored.Amount) &&
		IsRedPencilChange(s.promo.BaselinePrice, amount)
}

// IsPromoActive - есть акция и она не истекла к моменту now
func (s PromoState) IsPromoActive(now time.Time) bool {
	return s.promo != nil && s.promo.ActiveAt(now)
}

func (s PromoState) StoredPrice() (PricePoint, bool) {
	if s.stored == nil {
		return PricePoint{}, false
	}
	return *s.stored, true
}

func (s PromoState) Promotion() (Promotion, bool) {
	if s.promo == nil {
		return Promotion{}, false
	}
	return *s.promo, true
}
