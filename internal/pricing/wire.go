package pricing

import (
	"bytes"
	"encoding/json"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/pkg/enums"
	"github.com/aarluxe/pos-cart/pkg/types"
	"github.com/shopspring/decimal"
)

// QuoteRequest is the body posted to the pricing endpoint.
type QuoteRequest struct {
	CarID        int64              `json:"car_id"`
	UserID       int64              `json:"user_id"`
	Purchasables []cart.Purchasable `json:"purchasables"`
}

type quoteResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Cart    *quoteCart `json:"cart"`
}

type quoteCart struct {
	Quantity           int              `json:"quantity"`
	SubtotalPrice      decimal.Decimal  `json:"subtotal_price"`
	DiscountPrice      decimal.Decimal  `json:"discount_price"`
	TotalPrice         decimal.Decimal  `json:"total_price"`
	ShippingPrice      decimal.Decimal  `json:"shipping_price"`
	ServicePrice       decimal.Decimal  `json:"service_price"`
	ServicePercentage  decimal.Decimal  `json:"service_percentage"`
	MinOrderPercentage decimal.Decimal  `json:"min_order_percentage"`
	MinPaymentPrice    decimal.Decimal  `json:"min_payment_price"`
	Count              int              `json:"count"`
	IsValidCoupon      *couponWire      `json:"is_valid_coupon"`
	Services           []serverLineWire `json:"services"`
	Packages           []serverLineWire `json:"packages"`
	Products           []serverLineWire `json:"products"`
}

type couponWire struct {
	Value   bool                `json:"value"`
	Reasons types.CouponReasons `json:"reasons"`
}

type serverLineWire struct {
	Cart    serverLineCart    `json:"cart"`
	Payload serverLinePayload `json:"payload"`
}

type serverLineCart struct {
	PurchasableID   int64                 `json:"purchasable_id"`
	PurchasableType enums.PurchasableType `json:"purchasable_type"`
	Quantity        int                   `json:"quantity"`
	OptionIDs       []int64               `json:"option_ids"`
	Purchasable     json.RawMessage       `json:"purchasable"`
}

type serverLinePayload struct {
	Status     string           `json:"status"`
	Conflicts  json.RawMessage  `json:"conflicts"`
	Price      decimal.Decimal  `json:"price"`
	TotalPrice *decimal.Decimal `json:"total_price"`
}

func (c *quoteCart) totals() cart.Totals {
	totals := cart.Totals{
		Subtotal:           c.SubtotalPrice,
		ServiceFee:         c.ServicePrice,
		ServicePercentage:  c.ServicePercentage,
		ShippingFee:        c.ShippingPrice,
		DiscountAmount:     c.DiscountPrice,
		TotalPrice:         c.TotalPrice,
		MinPaymentPrice:    c.MinPaymentPrice,
		MinOrderPercentage: c.MinOrderPercentage,
		ItemCount:          c.Count,
		TotalQuantity:      c.Quantity,
		Confirmed:          true,
	}
	if c.IsValidCoupon != nil {
		totals.Coupon = types.CouponValidity{
			IsValid: c.IsValidCoupon.Value,
			Reason:  string(c.IsValidCoupon.Reasons),
		}
	}
	return totals
}

func (c *quoteCart) lines() []cart.PricedLine {
	total := len(c.Services) + len(c.Packages) + len(c.Products)
	out := make([]cart.PricedLine, 0, total)
	for _, group := range [][]serverLineWire{c.Services, c.Packages, c.Products} {
		for _, line := range group {
			out = append(out, line.priced())
		}
	}
	return out
}

func (l serverLineWire) priced() cart.PricedLine {
	return cart.PricedLine{
		Key: cart.Key{
			PurchasableID:   l.Cart.PurchasableID,
			PurchasableType: l.Cart.PurchasableType,
		},
		OptionIDs: l.Cart.OptionIDs,
		UnitPrice: l.Payload.Price,
		LineTotal: l.Payload.TotalPrice,
		Status:    enums.NormalizeLineStatus(l.Payload.Status),
		Conflicts: splitConflicts(l.Payload.Conflicts),
	}
}

// splitConflicts accepts null, an array, or a single value.
func splitConflicts(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{append(json.RawMessage(nil), trimmed...)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
		return nil
	}
	return items
}
