package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	d, err := ParseMoney(" 1200.5 ")
	require.NoError(t, err)
	assert.Equal(t, "1200.50", d.StringFixed(MoneyPlaces))

	d, err = ParseMoney("1.500")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1.5")))

	for _, raw := range []string{"1.005", "0.001", "abc", ""} {
		_, err := ParseMoney(raw)
		assert.ErrorIs(t, err, ErrInvalidInput, raw)
	}
}

func TestCheckPrice(t *testing.T) {
	assert.NoError(t, CheckPrice("price", decimal.RequireFromString("0.01")))
	assert.NoError(t, CheckPrice("price", decimal.RequireFromString("99999999.99")))

	for _, raw := range []string{"0", "-0.01", "1.005", "100000000"} {
		err := CheckPrice("price", decimal.RequireFromString(raw))
		assert.ErrorIs(t, err, ErrInvalidInput, raw)
	}
}

func TestStockValue(t *testing.T) {
	st := Stock{Quantity: 3, ProductPrice: decimal.RequireFromString("2.335")}
	assert.Equal(t, "7.01", st.Value().StringFixed(MoneyPlaces))
}
