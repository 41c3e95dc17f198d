// Package snapshot persists the terminal's cart between restarts. Snapshots
// are a cache: the next quote is always the source of truth for pricing.
package snapshot

import (
	"context"
	"time"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
)

// State is everything needed to rebuild the cart of one terminal.
type State struct {
	Context customers.CartContext `json:"context"`
	Items   []cart.LineItem       `json:"items"`
	Totals  cart.Totals           `json:"totals"`
	SavedAt time.Time             `json:"saved_at"`
}

// Store loads and saves terminal snapshots. Load returns a NOT_FOUND error
// when nothing usable is stored.
type Store interface {
	Load(ctx context.Context, terminalID string) (*State, error)
	Save(ctx context.Context, terminalID string, state State) error
	Delete(ctx context.Context, terminalID string) error
}

func errNotFound(terminalID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart snapshot not found").
		WithDetails(map[string]any{"terminal_id": terminalID})
}

// NopStore is used when persistence is disabled.
type NopStore struct{}

func (NopStore) Load(_ context.Context, terminalID string) (*State, error) {
	return nil, errNotFound(terminalID)
}

func (NopStore) Save(context.Context, string, State) error {
	return nil
}

func (NopStore) Delete(context.Context, string) error {
	return nil
}
