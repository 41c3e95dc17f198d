package cart

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/types"
	"github.com/shopspring/decimal"
)

// Key identifies a line. Option ids are not part of it: adding
// the same purchasable again merges into the existing line.
type Key struct {
	PurchasableID   int64                 `json:"purchasable_id"`
	PurchasableType enums.PurchasableType `json:"purchasable_type"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.PurchasableType, k.PurchasableID)
}

// Option is a selected sub-option with its display label and catalog price.
type Option struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// LineItem is one cart entry. DisplayName, Image and Options are local-only;
// UnitPrice, LineTotal, Status and Conflicts are overwritten by quotes.
type LineItem struct {
	PurchasableID   int64                 `json:"purchasable_id"`
	PurchasableType enums.PurchasableType `json:"purchasable_type"`
	OptionIDs       []int64               `json:"option_ids,omitempty"`
	Quantity        int                   `json:"quantity"`
	DisplayName     string                `json:"display_name"`
	Image           string                `json:"image,omitempty"`
	Options         []Option              `json:"options,omitempty"`
	UnitPrice       types.Price           `json:"unit_price"`
	LineTotal       *decimal.Decimal      `json:"line_total,omitempty"`
	Status          enums.LineStatus      `json:"status,omitempty"`
	Conflicts       []json.RawMessage     `json:"conflicts,omitempty"`
}

func (l LineItem) Key() Key {
	return Key{PurchasableID: l.PurchasableID, PurchasableType: l.PurchasableType}
}

// HasConflict reports whether the last quote flagged this line.
func (l LineItem) HasConflict() bool {
	return len(l.Conflicts) > 0 || (l.Status != enums.LineStatusUnknown && !l.Status.IsOK())
}

// OptionsPrice sums the catalog prices of the selected options.
func (l LineItem) OptionsPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, opt := range l.Options {
		sum = sum.Add(opt.Price)
	}
	return sum
}

// EstimatedTotal is the naive line total used before the server prices the cart.
func (l LineItem) EstimatedTotal() decimal.Decimal {
	return l.UnitPrice.Amount.Add(l.OptionsPrice()).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Label joins the display name with selected option names, e.g. "Wash (Wax, Polish)".
func (l LineItem) Label() string {
	if len(l.Options) == 0 {
		return l.DisplayName
	}
	names := make([]string, 0, len(l.Options))
	for _, opt := range l.Options {
		names = append(names, opt.Name)
	}
	return fmt.Sprintf("%s (%s)", l.DisplayName, strings.Join(names, ", "))
}

func (l LineItem) clone() LineItem {
	out := l
	out.OptionIDs = slices.Clone(l.OptionIDs)
	out.Options = slices.Clone(l.Options)
	if l.LineTotal != nil {
		total := *l.LineTotal
		out.LineTotal = &total
	}
	if l.Conflicts != nil {
		out.Conflicts = make([]json.RawMessage, len(l.Conflicts))
		for i, c := range l.Conflicts {
			out.Conflicts[i] = slices.Clone(c)
		}
	}
	return out
}

// AddSpec describes an add-to-cart action from the catalog.
type AddSpec struct {
	PurchasableID   int64
	PurchasableType enums.PurchasableType
	Quantity        int
	OptionIDs       []int64
	DisplayName     string
	UnitPrice       decimal.Decimal
	Image           string
	Options         []Option
}

func (s AddSpec) Key() Key {
	return Key{PurchasableID: s.PurchasableID, PurchasableType: s.PurchasableType}
}

// Validate checks the spec before it touches the cart.
func (s AddSpec) Validate() error {
	if s.PurchasableID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchasable id must be positive")
	}
	if !s.PurchasableType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported purchasable type %q", s.PurchasableType))
	}
	if s.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if s.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	for _, opt := range s.Options {
		if opt.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "option price cannot be negative")
		}
	}
	return nil
}

// Purchasable is the wire shape of a line sent to the pricing and order services.
type Purchasable struct {
	PurchasableID   int64                 `json:"purchasable_id"`
	PurchasableType enums.PurchasableType `json:"purchasable_type"`
	Quantity        int                   `json:"quantity"`
	OptionIDs       []int64               `json:"option_ids"`
}

// normalizeOptionIDs returns a sorted, de-duplicated copy; nil when empty.
func normalizeOptionIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	out = slices.Compact(out)
	return out
}

func unionOptionIDs(a, b []int64) []int64 {
	return normalizeOptionIDs(append(slices.Clone(a), b...))
}

// unionOptions merges option labels by id, keeping the first label seen.
func unionOptions(existing, added []Option) []Option {
	if len(added) == 0 {
		return existing
	}
	out := slices.Clone(existing)
	for _, opt := range added {
		if !slices.ContainsFunc(out, func(o Option) bool { return o.ID == opt.ID }) {
			out = append(out, opt)
		}
	}
	return out
}
