package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/shopspring/decimal"
)

const defaultLanguage = "en"

// Names maps a language code to a localized label.
type Names map[string]string

// Pick returns the label for lang, falling back to English and then to any
// non-empty label in stable order.
func (n Names) Pick(lang string) string {
	if v := strings.TrimSpace(n[lang]); v != "" {
		return v
	}
	if v := strings.TrimSpace(n[defaultLanguage]); v != "" {
		return v
	}
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(n[k]); v != "" {
			return v
		}
	}
	return ""
}

// OptionItem is a sub-option listed under a purchasable.
type OptionItem struct {
	ID    int64           `json:"id"`
	Names Names           `json:"names"`
	Price decimal.Decimal `json:"price"`
}

// Item is the catalog view of a service, package or product.
type Item struct {
	ID      int64                 `json:"id"`
	Type    enums.PurchasableType `json:"type"`
	Names   Names                 `json:"names"`
	Image   string                `json:"image,omitempty"`
	Prices  []TierPrice           `json:"prices"`
	Options []OptionItem          `json:"options,omitempty"`
}

// AddSpec builds the cart entry for quantity units of the item with the
// selected options, priced optimistically for vehicle.
func (i Item) AddSpec(vehicle *customers.Vehicle, quantity int, optionIDs []int64, lang string) (cart.AddSpec, error) {
	spec := cart.AddSpec{
		PurchasableID:   i.ID,
		PurchasableType: i.Type,
		Quantity:        quantity,
		DisplayName:     i.Names.Pick(lang),
		Image:           i.Image,
	}
	if price, ok := ResolvePrice(i.Prices, vehicle); ok {
		spec.UnitPrice = price
	}

	for _, id := range optionIDs {
		idx := slices.IndexFunc(i.Options, func(o OptionItem) bool { return o.ID == id })
		if idx < 0 {
			return cart.AddSpec{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("option %d is not offered for %s %d", id, i.Type, i.ID))
		}
		opt := i.Options[idx]
		spec.OptionIDs = append(spec.OptionIDs, opt.ID)
		spec.Options = append(spec.Options, cart.Option{ID: opt.ID, Name: opt.Names.Pick(lang), Price: opt.Price})
	}

	if err := spec.Validate(); err != nil {
		return cart.AddSpec{}, err
	}
	return spec, nil
}

// DisplayPrice formats the price shown on a catalog card for vehicle.
func (i Item) DisplayPrice(vehicle *customers.Vehicle) string {
	price, ok := ResolvePrice(i.Prices, vehicle)
	if !ok {
		return FormatPrice(nil, DefaultCurrency)
	}
	return FormatPrice(&price, DefaultCurrency)
}
