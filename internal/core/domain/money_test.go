// internal/core/domain/money_test.go
package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "dot_separator", input: "8.90", want: 890},
		{name: "comma_separator", input: "8,90", want: 890},
		{name: "integer_amount", input: "40", want: 4000},
		{name: "surrounding_whitespace", input: "  12.50 ", want: 1250},
		{name: "single_decimal_place", input: "9.9", want: 990},
		{name: "rounds_half_up", input: "1.005", want: 101},
		{name: "zero", input: "0", want: 0},
		{name: "empty_string", input: "", wantErr: true},
		{name: "not_a_number", input: "abc", wantErr: true},
		{name: "currency_symbol", input: "R$ 8.90", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMoneyFromDecimal(t *testing.T) {
	assert.Equal(t, Money(1998), NewMoneyFromDecimal(decimal.RequireFromString("19.98")))
	assert.Equal(t, Money(100), NewMoneyFromDecimal(decimal.RequireFromString("0.999")))
	assert.Equal(t, Money(0), NewMoneyFromDecimal(decimal.Zero))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "40.00", Money(4000).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "19.98", Money(1998).String())
	assert.Equal(t, "-1.50", Money(-150).String())
}

func TestMoney_MulInt(t *testing.T) {
	assert.Equal(t, Money(1998), Money(999).MulInt(2))
	assert.Equal(t, Money(0), Money(999).MulInt(0))

	// Repeated integer addition in cents never drifts, unlike float math.
	var total Money
	for i := 0; i < 100; i++ {
		total += Money(10).MulInt(1)
	}
	assert.Equal(t, Money(1000), total)
}

func TestMoney_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Money(1998))
	require.NoError(t, err)
	assert.Equal(t, "19.98", string(data))

	data, err = json.Marshal(struct {
		Total Money `json:"total"`
	}{Total: 500})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 5.00}`, string(data))
}

func TestMoney_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "json_number", input: `19.98`, want: 1998},
		{name: "quoted_string", input: `"8.90"`, want: 890},
		{name: "quoted_comma_decimal", input: `"8,90"`, want: 890},
		{name: "null_is_zero", input: `null`, want: 0},
		{name: "garbage", input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			err := json.Unmarshal([]byte(tt.input), &m)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestMoney_Decimal(t *testing.T) {
	d := Money(1998).Decimal()
	assert.True(t, d.Equal(decimal.RequireFromString("19.98")))
}
