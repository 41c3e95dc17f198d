package types

import (
	"github.com/aarluxe/pos-cart/pkg/enums"
	"github.com/shopspring/decimal"
)

// Price is either an optimistic local estimate or a value confirmed by the
// pricing service. The UI renders the two differently.
type Price struct {
	Amount decimal.Decimal   `json:"amount"`
	Source enums.PriceSource `json:"source"`
}

// LocalPrice wraps a catalog-derived estimate.
func LocalPrice(amount decimal.Decimal) Price {
	return Price{Amount: amount, Source: enums.PriceSourceLocal}
}

// ConfirmedPrice wraps a server-computed value.
func ConfirmedPrice(amount decimal.Decimal) Price {
	return Price{Amount: amount, Source: enums.PriceSourceConfirmed}
}

// IsConfirmed reports whether the amount came from a quote.
func (p Price) IsConfirmed() bool {
	return p.Source == enums.PriceSourceConfirmed
}

// Equal compares amount and source.
func (p Price) Equal(other Price) bool {
	return p.Source == other.Source && p.Amount.Equal(other.Amount)
}
