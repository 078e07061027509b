package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luch-agregator/models"
)

func strPtr(s string) *string { return &s }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "plain", input: "10.50", want: "10.5"},
		{name: "comma separator", input: "10,50", want: "10.5"},
		{name: "spaces", input: " 1 200.00 ", want: "1200"},
		{name: "zero", input: "0", want: "0"},
		{name: "negative", input: "-5", wantErr: ErrNegativePrice},
		{name: "garbage", input: "abc", wantErr: ErrInvalidPrice},
		{name: "empty", input: "   ", wantErr: ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	got, err := NormalizePrice(" 12,30 ")
	require.NoError(t, err)
	assert.Equal(t, "12.30", got)

	_, err = NormalizePrice("-1")
	require.ErrorIs(t, err, ErrNegativePrice)
}

func TestEffectiveUnitPrice(t *testing.T) {
	catalog := decimal.RequireFromString("15.00")

	price, overridden, err := EffectiveUnitPrice(nil, catalog)
	require.NoError(t, err)
	assert.False(t, overridden)
	assert.True(t, catalog.Equal(price))

	price, overridden, err = EffectiveUnitPrice(strPtr(""), catalog)
	require.NoError(t, err)
	assert.False(t, overridden)
	assert.True(t, catalog.Equal(price))

	price, overridden, err = EffectiveUnitPrice(strPtr("99.90"), catalog)
	require.NoError(t, err)
	assert.True(t, overridden)
	assert.Equal(t, "99.90", FormatAmount(price))

	price, overridden, err = EffectiveUnitPrice(strPtr("-5"), catalog)
	require.ErrorIs(t, err, ErrNegativePrice)
	assert.False(t, overridden)
	assert.True(t, catalog.Equal(price), "negative override falls back to catalog price")
}

// TestLineTotal_Exact verifies money math never drifts like floating point does.
func TestLineTotal_Exact(t *testing.T) {
	total := LineTotal(decimal.RequireFromString("3.33"), 3)
	assert.Equal(t, "9.99", total.String())
	assert.Equal(t, "9.99", FormatAmount(total))

	sum := Total([]models.LineItem{
		{LineTotal: decimal.RequireFromString("0.10")},
		{LineTotal: decimal.RequireFromString("0.20")},
	})
	assert.Equal(t, "0.30", FormatAmount(sum))
	assert.True(t, decimal.RequireFromString("0.3").Equal(sum))
}
