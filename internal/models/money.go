package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money is a currency amount in the marketplace's single currency.
type Money = decimal.Decimal

// NewMoney returns a whole-unit amount.
func NewMoney(units int64) Money {
	return decimal.NewFromInt(units)
}
