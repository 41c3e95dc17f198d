// Package cart holds the in-memory POS cart and its merge rules. It performs no
// I/O; reconciliation with the pricing service lives in the reconcile package.
package cart

import (
	"slices"

	"github.com/aarluxe/pos-cart/pkg/types"
	"github.com/shopspring/decimal"
)

// Totals are the cart aggregates. Before a quote they are a local estimate
// (Confirmed=false); after a quote they are exactly what the server returned.
type Totals struct {
	Subtotal           decimal.Decimal      `json:"subtotal"`
	ServiceFee         decimal.Decimal      `json:"service_fee"`
	ServicePercentage  decimal.Decimal      `json:"service_percentage"`
	ShippingFee        decimal.Decimal      `json:"shipping_fee"`
	DiscountAmount     decimal.Decimal      `json:"discount_amount"`
	TotalPrice         decimal.Decimal      `json:"total_price"`
	MinPaymentPrice    decimal.Decimal      `json:"min_payment_price"`
	MinOrderPercentage decimal.Decimal      `json:"min_order_percentage"`
	Coupon             types.CouponValidity `json:"coupon"`
	ItemCount          int                  `json:"item_count"`
	TotalQuantity      int                  `json:"total_quantity"`
	Confirmed          bool                 `json:"confirmed"`
}

// Cart is an ordered collection of line items with at most one item per Key.
// It is not safe for concurrent use; the reconcile engine serializes access.
type Cart struct {
	items    []LineItem
	totals   Totals
	revision uint64
}

func New() *Cart {
	return &Cart{}
}

// Add merges spec into the cart: a matching key gets its quantity increased and
// its option set unioned, otherwise a new line is appended.
func (c *Cart) Add(spec AddSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	if idx := c.indexOf(spec.Key()); idx >= 0 {
		item := &c.items[idx]
		item.Quantity += spec.Quantity
		item.OptionIDs = unionOptionIDs(item.OptionIDs, spec.OptionIDs)
		item.Options = unionOptions(item.Options, spec.Options)
		item.LineTotal = nil
	} else {
		c.items = append(c.items, LineItem{
			PurchasableID:   spec.PurchasableID,
			PurchasableType: spec.PurchasableType,
			OptionIDs:       normalizeOptionIDs(spec.OptionIDs),
			Quantity:        spec.Quantity,
			DisplayName:     spec.DisplayName,
			Image:           spec.Image,
			Options:         unionOptions(nil, spec.Options),
			UnitPrice:       types.LocalPrice(spec.UnitPrice),
		})
	}
	c.touch()
	return nil
}

// Remove deletes the matching item. With optionIDs it only drops those options,
// deleting the item once its option set is empty. Returns false when nothing changed.
func (c *Cart) Remove(key Key, optionIDs []int64) bool {
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}

	if len(optionIDs) == 0 {
		c.items = slices.Delete(c.items, idx, idx+1)
		c.touch()
		return true
	}

	item := &c.items[idx]
	drop := normalizeOptionIDs(optionIDs)
	remaining := slices.DeleteFunc(slices.Clone(item.OptionIDs), func(id int64) bool {
		_, found := slices.BinarySearch(drop, id)
		return found
	})
	if len(remaining) == len(item.OptionIDs) {
		return false
	}
	if len(remaining) == 0 {
		c.items = slices.Delete(c.items, idx, idx+1)
		c.touch()
		return true
	}

	item.OptionIDs = remaining
	item.Options = slices.DeleteFunc(slices.Clone(item.Options), func(o Option) bool {
		_, found := slices.BinarySearch(drop, o.ID)
		return found
	})
	item.LineTotal = nil
	c.touch()
	return true
}

// UpdateQuantity sets the quantity of the matching item; quantity <= 0 behaves
// like Remove. Returns false when nothing changed.
func (c *Cart) UpdateQuantity(key Key, optionIDs []int64, quantity int) bool {
	if quantity <= 0 {
		return c.Remove(key, optionIDs)
	}
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}
	item := &c.items[idx]
	if item.Quantity == quantity {
		return false
	}
	item.Quantity = quantity
	item.LineTotal = nil
	c.touch()
	return true
}

// Clear empties the cart and zeroes every aggregate.
func (c *Cart) Clear() {
	c.items = nil
	c.totals = Totals{}
	c.revision++
}

// Replace swaps in a fully staged item list and aggregate set in one step.
// It does not count as a content mutation, so the revision is unchanged.
func (c *Cart) Replace(items []LineItem, totals Totals) {
	c.items = normalizeItems(items)
	c.totals = totals
}

// Restore loads persisted state, enforcing the one-item-per-key invariant.
func (c *Cart) Restore(items []LineItem, totals Totals) {
	c.items = normalizeItems(items)
	if totals.Confirmed {
		c.totals = totals
	} else {
		c.totals = estimate(c.items)
	}
	c.revision++
}

// Items returns a deep copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	for i, item := range c.items {
		out[i] = item.clone()
	}
	return out
}

// Find returns a copy of the item for key.
func (c *Cart) Find(key Key) (LineItem, bool) {
	if idx := c.indexOf(key); idx >= 0 {
		return c.items[idx].clone(), true
	}
	return LineItem{}, false
}

func (c *Cart) Totals() Totals {
	return c.totals
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Revision increases on every content mutation.
func (c *Cart) Revision() uint64 {
	return c.revision
}

// Purchasables renders the lines in the shape the POS backend expects.
func (c *Cart) Purchasables() []Purchasable {
	out := make([]Purchasable, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, Purchasable{
			PurchasableID:   item.PurchasableID,
			PurchasableType: item.PurchasableType,
			Quantity:        item.Quantity,
			OptionIDs:       slices.Clone(item.OptionIDs),
		})
	}
	return out
}

func (c *Cart) indexOf(key Key) int {
	return slices.IndexFunc(c.items, func(item LineItem) bool {
		return item.Key() == key
	})
}

func (c *Cart) touch() {
	c.revision++
	c.totals = estimate(c.items)
}

// estimate recomputes the provisional aggregates from local prices.
func estimate(items []LineItem) Totals {
	subtotal := decimal.Zero
	quantity := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.EstimatedTotal())
		quantity += item.Quantity
	}
	return Totals{
		Subtotal:      subtotal,
		TotalPrice:    subtotal,
		ItemCount:     len(items),
		TotalQuantity: quantity,
	}
}

// normalizeItems copies items, merging duplicates by key and dropping lines
// with a non-positive quantity.
func normalizeItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		cloned := item.clone()
		cloned.OptionIDs = normalizeOptionIDs(cloned.OptionIDs)
		idx := slices.IndexFunc(out, func(existing LineItem) bool {
			return existing.Key() == cloned.Key()
		})
		if idx < 0 {
			out = append(out, cloned)
			continue
		}
		out[idx].Quantity += cloned.Quantity
		out[idx].OptionIDs = unionOptionIDs(out[idx].OptionIDs, cloned.OptionIDs)
		out[idx].Options = unionOptions(out[idx].Options, cloned.Options)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
