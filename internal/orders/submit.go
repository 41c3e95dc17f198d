// Package orders submits a finalized cart to the POS backend.
package orders

import (
	"context"
	"strings"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/posapi"
)

const (
	DefaultSubmitPath = "/cart/submit"

	MsgMissingContext = "Please select a customer and vehicle before checkout"
	MsgEmptyCart      = "Your cart is empty"
	MsgSubmitted      = "Order submitted successfully!"
	MsgRejected       = "Failed to submit order"
	MsgTransport      = "An error occurred during checkout"
)

// Request is the order payload; it mirrors the quote request.
type Request struct {
	CarID        int64              `json:"car_id"`
	UserID       int64              `json:"user_id"`
	Purchasables []cart.Purchasable `json:"purchasables"`
}

// NewRequest validates the checkout preconditions locally.
func NewRequest(cc customers.CartContext, lines []cart.Purchasable) (Request, error) {
	if !cc.Complete() {
		return Request{}, pkgerrors.New(pkgerrors.CodeValidation, MsgMissingContext)
	}
	if len(lines) == 0 {
		return Request{}, pkgerrors.New(pkgerrors.CodeValidation, MsgEmptyCart)
	}
	return Request{CarID: cc.VehicleID, UserID: cc.CustomerID, Purchasables: lines}, nil
}

// Result is a successful submission.
type Result struct {
	Message string `json:"message"`
	OrderID *int64 `json:"order_id,omitempty"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID *int64 `json:"order_id"`
}

// Submitter sends orders. Implementations must not retry.
type Submitter interface {
	Submit(ctx context.Context, req Request) (*Result, error)
}

type Client struct {
	api  *posapi.Client
	path string
}

func NewClient(api *posapi.Client, path string) *Client {
	if strings.TrimSpace(path) == "" {
		path = DefaultSubmitPath
	}
	return &Client{api: api, path: path}
}

// Submit posts req once. A `success:false` reply is a business rejection
// carrying the server message.
func (c *Client) Submit(ctx context.Context, req Request) (*Result, error) {
	if len(req.Purchasables) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, MsgEmptyCart)
	}
	if req.CarID <= 0 || req.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, MsgMissingContext)
	}

	var resp submitResponse
	if err := c.api.PostJSON(ctx, c.path, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeRejected, messageOr(resp.Message, MsgRejected))
	}
	return &Result{
		Message: messageOr(resp.Message, MsgSubmitted),
		OrderID: resp.OrderID,
	}, nil
}

func messageOr(msg, fallback string) string {
	if trimmed := strings.TrimSpace(msg); trimmed != "" {
		return trimmed
	}
	return fallback
}
