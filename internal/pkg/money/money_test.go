package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"40", 4000},
		{"9.99", 999},
		{" 12.5 ", 1250},
		{"0.005", 1},
		{"0", 0},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "-1", "1,00"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestUnmarshalJSON(t *testing.T) {
	var body struct {
		Price    Money  `json:"price"`
		Discount *Money `json:"discount"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"price": 1999, "discount": "2.50"}`), &body))
	assert.Equal(t, Money(1999), body.Price)
	require.NotNil(t, body.Discount)
	assert.Equal(t, Money(250), *body.Discount)

	require.NoError(t, json.Unmarshal([]byte(`{"price": " 9.99 ", "discount": null}`), &body))
	assert.Equal(t, Money(999), body.Price)
	assert.Nil(t, body.Discount)

	for _, in := range []string{`{"price": -5}`, `{"price": 9.99}`, `{"price": "-1"}`, `{"price": "abc"}`, `{"price": true}`} {
		assert.ErrorIs(t, json.Unmarshal([]byte(in), &body), ErrInvalidAmount, in)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Money{"total": 13600})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":13600}`, string(data))

	var back map[string]Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Money(13600), back["total"])
}

func TestPercent(t *testing.T) {
	assert.Equal(t, Money(2600), Money(13000).Percent(decimal.NewFromInt(20)))
	assert.Equal(t, Money(2400), Money(16000).Percent(decimal.NewFromInt(15)))
	// 15% of 3.33 = 0.4995 -> 0.50
	assert.Equal(t, Money(50), Money(333).Percent(decimal.NewFromInt(15)))
	assert.Equal(t, Money(0), Money(999).Percent(decimal.Zero))
}

func TestString(t *testing.T) {
	assert.Equal(t, "9.99", Money(999).String())
	assert.Equal(t, "0.00", Money(0).String())
	assert.Equal(t, "136.00", Money(13600).String())
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, Money(1), Min(1, 2))
	assert.Equal(t, Money(2), Max(1, 2))
}
