package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts go out as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}
