// Package reconcile coordinates cart mutations with pricing quotes. It owns the
// cart, the customer/vehicle context and the state of the latest quote.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/internal/notifications"
	"github.com/aarluxe/pos-cart/internal/pricing"
	"github.com/aarluxe/pos-cart/internal/snapshot"
	"github.com/aarluxe/pos-cart/pkg/debounce"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/logger"
	"github.com/aarluxe/pos-cart/pkg/metrics"
)

const defaultTerminalID = "cart-storage"

var errQuoterRequired = errors.New("reconcile engine requires a quoter")

// Options wires the engine's collaborators. Only Quoter is required.
type Options struct {
	Quoter     pricing.Quoter
	Notifier   notifications.Notifier
	Store      snapshot.Store
	TerminalID string
	Metrics    *metrics.CartMetrics
	Logger     *logger.Logger
	Debounce   time.Duration
	AutoQuote  bool
}

// Engine is the explicit state container for one POS terminal.
type Engine struct {
	mu      sync.Mutex
	cart    *cart.Cart
	cc      customers.CartContext
	phase   enums.QuotePhase
	outcome enums.QuoteOutcome
	lastErr error
	seq     uint64

	persistMu sync.Mutex

	quoter     pricing.Quoter
	notifier   notifications.Notifier
	store      snapshot.Store
	terminalID string
	metrics    *metrics.CartMetrics
	logg       *logger.Logger
	debouncer  *debounce.Debouncer
	autoQuote  bool
	kick       chan struct{}
}

func New(opts Options) (*Engine, error) {
	if opts.Quoter == nil {
		return nil, errQuoterRequired
	}
	e := &Engine{
		cart:       cart.New(),
		phase:      enums.QuotePhaseIdle,
		outcome:    enums.QuoteOutcomeNone,
		quoter:     opts.Quoter,
		notifier:   opts.Notifier,
		store:      opts.Store,
		terminalID: opts.TerminalID,
		metrics:    opts.Metrics,
		logg:       opts.Logger,
		debouncer:  debounce.New(opts.Debounce),
		autoQuote:  opts.AutoQuote,
		kick:       make(chan struct{}, 1),
	}
	if e.store == nil {
		e.store = snapshot.NopStore{}
	}
	if e.terminalID == "" {
		e.terminalID = defaultTerminalID
	}
	if e.logg == nil {
		e.logg = logger.Nop()
	}
	return e, nil
}

// AddItem merges spec into the cart and schedules a quote.
func (e *Engine) AddItem(ctx context.Context, spec cart.AddSpec) error {
	e.mu.Lock()
	err := e.cart.Add(spec)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.afterMutation(ctx)
	return nil
}

// RemoveItem removes the item for key, or only optionIDs from it.
func (e *Engine) RemoveItem(ctx context.Context, key cart.Key, optionIDs []int64) bool {
	e.mu.Lock()
	changed := e.cart.Remove(key, optionIDs)
	e.mu.Unlock()
	if changed {
		e.afterMutation(ctx)
	}
	return changed
}

// UpdateQuantity sets the quantity for key; quantity <= 0 removes.
func (e *Engine) UpdateQuantity(ctx context.Context, key cart.Key, optionIDs []int64, quantity int) bool {
	e.mu.Lock()
	changed := e.cart.UpdateQuantity(key, optionIDs, quantity)
	e.mu.Unlock()
	if changed {
		e.afterMutation(ctx)
	}
	return changed
}

// Clear empties the cart. With a context selected a quote still runs so the
// server reports zeroed aggregates.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	e.cart.Clear()
	e.outcome = enums.QuoteOutcomeNone
	e.lastErr = nil
	e.mu.Unlock()
	e.afterMutation(ctx)
}

// SetContext switches the pricing basis. A non-empty cart is cleared with a
// notification when a previously selected customer or vehicle changes.
func (e *Engine) SetContext(ctx context.Context, next customers.CartContext) customers.InvalidationReason {
	e.mu.Lock()
	prev := e.cc
	if prev == next {
		e.mu.Unlock()
		return customers.InvalidationNone
	}
	reason := customers.DetectInvalidation(prev, next)
	cleared := false
	if reason != customers.InvalidationNone && !e.cart.IsEmpty() {
		e.cart.Clear()
		e.outcome = enums.QuoteOutcomeNone
		e.lastErr = nil
		cleared = true
	}
	e.cc = next
	e.mu.Unlock()

	ctx = e.logg.WithCustomerID(ctx, next.CustomerID)
	ctx = e.logg.WithVehicleID(ctx, next.VehicleID)
	if cleared {
		e.metrics.IncInvalidation()
		e.notify(enums.NotificationTypeInfo, reason.Message())
		e.logg.Info(e.logg.WithField(ctx, "reason", string(reason)), "cart cleared after context change")
	}

	e.persist(ctx)
	if next.Complete() {
		e.Trigger()
	}
	if cleared {
		return reason
	}
	return customers.InvalidationNone
}

// Follow keeps the engine's context in step with sel.
func (e *Engine) Follow(sel *customers.Selection) {
	sel.Subscribe(func(change customers.Change) {
		e.SetContext(context.Background(), change.Current)
	})
}

// Context returns the current pricing basis.
func (e *Engine) Context() customers.CartContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cc
}

func (e *Engine) afterMutation(ctx context.Context) {
	e.persist(ctx)
	if e.Context().Complete() {
		e.Trigger()
	}
}

func (e *Engine) notify(kind enums.NotificationType, message string) {
	if e.notifier != nil {
		e.notifier.Notify(kind, message)
	}
}

// Restore loads the persisted cart for this terminal, if any.
func (e *Engine) Restore(ctx context.Context) error {
	state, err := e.store.Load(ctx, e.terminalID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}

	e.mu.Lock()
	e.cart.Restore(state.Items, state.Totals)
	e.cc = state.Context
	complete := e.cc.Complete()
	count := e.cart.Len()
	e.mu.Unlock()

	e.logg.Info(e.logg.WithField(ctx, "items", count), "cart snapshot restored")
	if complete {
		e.Trigger()
	}
	return nil
}

func (e *Engine) persist(ctx context.Context) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	state := snapshot.State{
		Context: e.cc,
		Items:   e.cart.Items(),
		Totals:  e.cart.Totals(),
		SavedAt: time.Now().UTC(),
	}
	e.mu.Unlock()

	if err := e.store.Save(ctx, e.terminalID, state); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "cart snapshot save failed")
	}
}
