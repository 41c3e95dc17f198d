package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/metrics"
)

// ErrSuperseded is returned when a newer quote or a cart edit made a response obsolete.
var ErrSuperseded = pkgerrors.New(pkgerrors.CodeStateConflict, "quote superseded by a newer cart state")

// Reconcile fetches a quote for the current cart and merges it. Responses
// that are no longer the latest request, or that priced an older cart, are
// discarded. On failure the cart and aggregates are left untouched.
func (e *Engine) Reconcile(ctx context.Context) error {
	e.mu.Lock()
	cc := e.cc
	if err := cc.Validate(); err != nil {
		e.mu.Unlock()
		e.metrics.ObserveQuote(metrics.OutcomeInvalid, 0)
		return err
	}
	e.seq++
	seq := e.seq
	revision := e.cart.Revision()
	lines := e.cart.Purchasables()
	e.phase = enums.QuotePhaseQuoting
	e.mu.Unlock()

	ctx = e.logg.WithFields(ctx, map[string]any{
		"quote_seq":   seq,
		"customer_id": cc.CustomerID,
		"vehicle_id":  cc.VehicleID,
		"lines":       len(lines),
	})
	e.logg.Debug(ctx, "quote requested")

	start := time.Now()
	quote, err := e.quoter.Quote(ctx, cc, lines)
	elapsed := time.Since(start)
	if err == nil && quote == nil {
		err = pkgerrors.New(pkgerrors.CodeDependency, "pricing returned no quote")
	}

	e.mu.Lock()
	if seq != e.seq {
		e.mu.Unlock()
		e.metrics.ObserveQuote(metrics.OutcomeStale, elapsed)
		e.logg.Debug(ctx, "discarded quote response from older request")
		return ErrSuperseded
	}
	e.phase = enums.QuotePhaseIdle
	if e.cc != cc || e.cart.Revision() != revision {
		e.mu.Unlock()
		e.metrics.ObserveQuote(metrics.OutcomeStale, elapsed)
		e.logg.Debug(ctx, "cart changed while quoting, requoting")
		e.Trigger()
		return ErrSuperseded
	}

	if err != nil {
		e.outcome = enums.QuoteOutcomeFailed
		e.lastErr = err
		e.mu.Unlock()
		outcome := metrics.OutcomeFailure
		if pkgerrors.IsCode(err, pkgerrors.CodeRejected) {
			outcome = metrics.OutcomeRejected
		}
		e.metrics.ObserveQuote(outcome, elapsed)
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "quote failed")
		return err
	}

	staged := cart.Merge(e.cart.Items(), quote.Lines)
	e.cart.Replace(staged, quote.Totals)
	e.outcome = enums.QuoteOutcomeReconciled
	e.lastErr = nil
	e.mu.Unlock()

	e.metrics.ObserveQuote(metrics.OutcomeSuccess, elapsed)
	e.logg.Info(e.logg.WithField(ctx, "total_price", quote.Totals.TotalPrice.String()), "quote reconciled")
	e.persist(ctx)
	return nil
}

// Trigger schedules an asynchronous quote through the debouncer. Run must be
// active for the quote to happen.
func (e *Engine) Trigger() {
	if !e.autoQuote {
		return
	}
	e.debouncer.Call(e.kickNow)
}

func (e *Engine) kickNow() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Run serves triggered quotes one at a time until ctx is done. A trigger that
// arrives while a quote is in flight runs after it resolves.
func (e *Engine) Run(ctx context.Context) error {
	defer e.debouncer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.kick:
			if err := e.Reconcile(ctx); err != nil && ctx.Err() == nil {
				if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) && !errors.Is(err, ErrSuperseded) {
					e.logg.Debug(e.logg.WithField(ctx, "error", err.Error()), "background quote did not apply")
				}
			}
		}
	}
}
