package models

import "github.com/shopspring/decimal"

// LineItem is one priced row of a selection. It is derived on every read and never persisted
type LineItem struct {
	Model      ProductModel    `json:"model"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"` // session override if valid, else catalog price
	LineTotal  decimal.Decimal `json:"lineTotal"` // UnitPrice * Quantity, exact
	Overridden bool            `json:"overridden"`
}
