package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMarketValue(t *testing.T) {
	tests := []struct {
		name   string
		shares int64
		price  string
		want   string
	}{
		{"whole dollars", 100, "150.000", "15000"},
		{"sub-cent price rounds half-even", 3, "10.005", "30.02"},
		{"zero shares", 0, "99.999", "0"},
		{"single share", 1, "0.001", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := decimal.NewFromString(tt.price)
			assert.NoError(t, err)

			got := MarketValue(tt.shares, price)
			want, err := decimal.NewFromString(tt.want)
			assert.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestPercent(t *testing.T) {
	num := decimal.NewFromInt(315000)
	den := decimal.NewFromInt(400000)
	got := Percent(num, den)
	assert.Equal(t, "78.75", got.String())
}

func TestPercentRoundsToFourPlaces(t *testing.T) {
	num := decimal.NewFromInt(1)
	den := decimal.NewFromInt(3)
	got := Percent(num, den)
	assert.Equal(t, "33.3333", got.String())
}

func TestRoundCashHalfEven(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2.125", "2.12"},
		{"2.135", "2.14"},
		{"2.105", "2.1"},
	}
	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, RoundCash(d).String(), "input %s", tt.in)
	}
}
