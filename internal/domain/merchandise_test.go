package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerchandiseInitialPrice(t *testing.T) {
	m := NewMerchandise("SKU-1", dec("100"), t0)
	assert.Equal(t, "SKU-1", m.SKU())
	assertDecimal(t, "100", m.Price())
	assert.Equal(t, t0, m.LastUpdate())
	assert.False(t, m.IsRedPencilPromo(t0))
}

func TestMerchandiseCanUpdatePrice(t *testing.T) {
	m := NewMerchandise("SKU-1", dec("100"), t0)
	m.SetPrice(dec("95"), t0.Add(time.Hour))
	assertDecimal(t, "95", m.Price())
	assert.Equal(t, t0.Add(time.Hour), m.LastUpdate())
	assert.False(t, m.IsRedPencilPromo(t0.Add(time.Hour)))
}

func TestMerchandiseResettingInitialPriceIsNotPromo(t *testing.T) {
	m := NewMerchandise("SKU-1", dec("100"), t0)
	m.SetPrice(dec("100"), t0.Add(StabilityWindow))
	assert.False(t, m.IsRedPencilPromo(t0.Add(StabilityWindow)))
}

func TestMerchandiseRedPencilPromo(t *testing.T) {
	m := NewMerchandise("SKU-1", dec("100"), t0)
	now := t0.Add(StabilityWindow)
	m.SetPrice(dec("95"), now)
	require.True(t, m.IsRedPencilPromo(now))

	promo, ok := m.Promotion()
	require.True(t, ok)
	assertDecimal(t, "100", promo.BaselinePrice)
	assert.False(t, m.IsRedPencilPromo(promo.ExpiresAt.Add(time.Millisecond)))
}

func TestPromoChangeReduction(t *testing.T) {
	c := PromoChange{Price: dec("80"), BaselinePrice: dec("100")}
	assertDecimal(t, "0.2", c.Reduction())

	assertDecimal(t, "0", PromoChange{Price: dec("80")}.Reduction())
}
