// Package catalog holds the presentation-side pricing used before the server
// quotes a cart: per-vehicle-group tier prices and the dynamic fallback.
package catalog

import (
	"fmt"
	"strings"

	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "AED"
	PriceOnRequest  = "Price on request"

	displayPlaces = 3
)

// TierPrice is the catalog price of a purchasable for one vehicle group.
type TierPrice struct {
	GroupTypeCarID int64           `json:"group_type_car_id"`
	Price          decimal.Decimal `json:"price"`
}

var (
	typeFactors = map[int64]decimal.Decimal{
		1: decimal.RequireFromString("0.90"),
		2: decimal.RequireFromString("1.00"),
		3: decimal.RequireFromString("1.15"),
		4: decimal.RequireFromString("1.25"),
	}
	groupFactors = map[int64]decimal.Decimal{
		1: decimal.RequireFromString("0.95"),
		2: decimal.RequireFromString("1.10"),
	}
)

// PriceForCarGroup returns the tier price for groupID.
func PriceForCarGroup(prices []TierPrice, groupID int64) (decimal.Decimal, bool) {
	if groupID <= 0 {
		return decimal.Zero, false
	}
	for _, p := range prices {
		if p.GroupTypeCarID == groupID {
			return p.Price, true
		}
	}
	return decimal.Zero, false
}

// MinPrice returns the cheapest tier, used when no vehicle is selected.
func MinPrice(prices []TierPrice) (decimal.Decimal, bool) {
	if len(prices) == 0 {
		return decimal.Zero, false
	}
	lowest := prices[0].Price
	for _, p := range prices[1:] {
		if p.Price.LessThan(lowest) {
			lowest = p.Price
		}
	}
	return lowest, true
}

// DynamicPrice applies the vehicle type factor then the vehicle group factor
// and rounds once to two places, half away from zero.
func DynamicPrice(base decimal.Decimal, vehicle customers.Vehicle) decimal.Decimal {
	price := base
	if f, ok := typeFactors[vehicle.TypeID]; ok {
		price = price.Mul(f)
	}
	if f, ok := groupFactors[vehicle.GroupID]; ok {
		price = price.Mul(f)
	}
	return price.Round(2)
}

// ResolvePrice picks the optimistic unit price for a vehicle: its group tier
// when listed, otherwise the cheapest tier adjusted by DynamicPrice. With no
// vehicle the cheapest tier is used as is.
func ResolvePrice(prices []TierPrice, vehicle *customers.Vehicle) (decimal.Decimal, bool) {
	if vehicle != nil {
		if p, ok := PriceForCarGroup(prices, vehicle.GroupID); ok {
			return p, true
		}
	}
	base, ok := MinPrice(prices)
	if !ok {
		return decimal.Zero, false
	}
	if vehicle == nil {
		return base, true
	}
	return DynamicPrice(base, *vehicle), true
}

// FormatPrice renders "1,234.5 AED", or PriceOnRequest for a nil price.
func FormatPrice(price *decimal.Decimal, currency string) string {
	if price == nil {
		return PriceOnRequest
	}
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	return fmt.Sprintf("%s %s", groupThousands(price.Round(displayPlaces).String()), currency)
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}

	out := sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}
