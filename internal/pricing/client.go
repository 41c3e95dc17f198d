// Package pricing turns the local cart into a quote request for the POS
// backend and the response into a Quote the reconcile engine can merge.
package pricing

import (
	"context"
	"strings"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/posapi"
)

const (
	DefaultQuotePath = "/pos/cart"

	fallbackRejectMessage = "Failed to fetch cart pricing"
)

// Quote is a complete server pricing result. It replaces the previous quote
// wholesale and is never merged with one.
type Quote struct {
	Totals cart.Totals
	Lines  []cart.PricedLine
}

// Quoter prices a cart for a customer and vehicle.
type Quoter interface {
	Quote(ctx context.Context, cc customers.CartContext, lines []cart.Purchasable) (*Quote, error)
}

// Client implements Quoter on top of the POS API transport.
type Client struct {
	api  *posapi.Client
	path string
}

func NewClient(api *posapi.Client, path string) *Client {
	if strings.TrimSpace(path) == "" {
		path = DefaultQuotePath
	}
	return &Client{api: api, path: path}
}

// Quote issues the pricing request. An empty line list is still sent so the
// server reports zeroed aggregates. Missing context fails locally.
func (c *Client) Quote(ctx context.Context, cc customers.CartContext, lines []cart.Purchasable) (*Quote, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []cart.Purchasable{}
	}

	req := QuoteRequest{
		CarID:        cc.VehicleID,
		UserID:       cc.CustomerID,
		Purchasables: lines,
	}

	var resp quoteResponse
	if err := c.api.PostJSON(ctx, c.path, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeRejected, rejectMessage(resp.Message))
	}
	if resp.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing response missing cart")
	}

	return &Quote{
		Totals: resp.Cart.totals(),
		Lines:  resp.Cart.lines(),
	}, nil
}

func rejectMessage(msg string) string {
	if trimmed := strings.TrimSpace(msg); trimmed != "" {
		return trimmed
	}
	return fallbackRejectMessage
}
