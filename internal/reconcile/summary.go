package reconcile

import (
	"context"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
)

const quoteFailedMessage = "Failed to fetch cart pricing"

// Summary is the read model handed to the UI layer.
type Summary struct {
	Context      customers.CartContext `json:"context"`
	Items        []cart.LineItem       `json:"items"`
	Totals       cart.Totals           `json:"totals"`
	Phase        enums.QuotePhase      `json:"phase"`
	Outcome      enums.QuoteOutcome    `json:"outcome"`
	LastError    string                `json:"last_error,omitempty"`
	HasConflicts bool                  `json:"has_conflicts"`
	Revision     uint64                `json:"revision"`
}

func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.cart.Items()
	s := Summary{
		Context:  e.cc,
		Items:    items,
		Totals:   e.cart.Totals(),
		Phase:    e.phase,
		Outcome:  e.outcome,
		Revision: e.cart.Revision(),
	}
	if e.lastErr != nil {
		s.LastError = quoteFailedMessage
		if pkgerrors.IsCode(e.lastErr, pkgerrors.CodeRejected) {
			s.LastError = pkgerrors.MessageOf(e.lastErr, quoteFailedMessage)
		}
	}
	for _, item := range items {
		if item.HasConflict() {
			s.HasConflicts = true
			break
		}
	}
	return s
}

// Checkout is the cart content captured for an order submission.
type Checkout struct {
	Context  customers.CartContext
	Lines    []cart.Purchasable
	Revision uint64
}

// PrepareCheckout captures the context and lines an order would carry.
func (e *Engine) PrepareCheckout() Checkout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Checkout{
		Context:  e.cc,
		Lines:    e.cart.Purchasables(),
		Revision: e.cart.Revision(),
	}
}

// CompleteCheckout removes the submitted order from the cart and resets the
// quote state. When the cart is unchanged since PrepareCheckout it is cleared
// outright; otherwise only the submitted quantities are taken out, so lines
// added while the order was in flight stay and get requoted. In-flight quotes
// are invalidated.
func (e *Engine) CompleteCheckout(ctx context.Context, submitted Checkout) {
	e.mu.Lock()
	if e.cart.Revision() == submitted.Revision {
		e.cart.Clear()
	} else {
		for _, line := range submitted.Lines {
			key := cart.Key{PurchasableID: line.PurchasableID, PurchasableType: line.PurchasableType}
			if current, ok := e.cart.Find(key); ok {
				e.cart.UpdateQuantity(key, nil, current.Quantity-line.Quantity)
			}
		}
	}
	remaining := !e.cart.IsEmpty()
	complete := e.cc.Complete()
	e.seq++
	e.phase = enums.QuotePhaseIdle
	e.outcome = enums.QuoteOutcomeNone
	e.lastErr = nil
	e.mu.Unlock()

	e.persist(ctx)
	if remaining && complete {
		e.Trigger()
	}
}
