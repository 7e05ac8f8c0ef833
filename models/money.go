package models

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every stored amount carries
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to cents
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Percent returns pct percent of amount, rounded to cents
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(hundred))
}

// IsValidAmount reports whether d is a positive amount with at most two decimal places
func IsValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(MoneyPlaces))
}

// IsWholeShillings reports whether d is a positive amount without cents.
// Mobile money moves whole shillings only.
func IsWholeShillings(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(0))
}
