// Package checkout finalizes the terminal's cart into an order.
package checkout

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aarluxe/pos-cart/internal/notifications"
	"github.com/aarluxe/pos-cart/internal/orders"
	"github.com/aarluxe/pos-cart/internal/reconcile"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/logger"
	"github.com/aarluxe/pos-cart/pkg/metrics"
)

type cartState interface {
	PrepareCheckout() reconcile.Checkout
	CompleteCheckout(ctx context.Context, submitted reconcile.Checkout)
}

// Service executes order submission.
type Service interface {
	Submit(ctx context.Context) (*orders.Result, error)
}

type service struct {
	cart      cartState
	submitter orders.Submitter
	notifier  notifications.Notifier
	metrics   *metrics.CartMetrics
	logg      *logger.Logger
	inflight  atomic.Bool
}

// NewService wires checkout dependencies. Notifier, metrics and logger may be nil.
func NewService(cart cartState, submitter orders.Submitter, notifier notifications.Notifier, m *metrics.CartMetrics, logg *logger.Logger) (Service, error) {
	if cart == nil {
		return nil, fmt.Errorf("cart state required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("order submitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		cart:      cart,
		submitter: submitter,
		notifier:  notifier,
		metrics:   m,
		logg:      logg,
	}, nil
}

// Submit sends the cart once. Local validation failures never reach the
// network. Success clears the cart; any failure leaves it untouched.
func (s *service) Submit(ctx context.Context) (*orders.Result, error) {
	if !s.inflight.CompareAndSwap(false, true) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order submission already in progress")
	}
	defer s.inflight.Store(false)

	snapshot := s.cart.PrepareCheckout()
	req, err := orders.NewRequest(snapshot.Context, snapshot.Lines)
	if err != nil {
		s.metrics.IncOrder(metrics.OutcomeInvalid)
		s.notify(enums.NotificationTypeError, pkgerrors.MessageOf(err, orders.MsgRejected))
		return nil, err
	}

	ctx = s.logg.WithCustomerID(ctx, snapshot.Context.CustomerID)
	ctx = s.logg.WithVehicleID(ctx, snapshot.Context.VehicleID)
	ctx = s.logg.WithField(ctx, "lines", len(req.Purchasables))

	res, err := s.submitter.Submit(ctx, req)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeRejected) {
			s.metrics.IncOrder(metrics.OutcomeRejected)
			s.notify(enums.NotificationTypeError, pkgerrors.MessageOf(err, orders.MsgRejected))
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order rejected")
			return nil, err
		}
		s.metrics.IncOrder(metrics.OutcomeFailure)
		s.notify(enums.NotificationTypeError, orders.MsgTransport)
		s.logg.Error(ctx, "order submission failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, orders.MsgTransport)
	}

	s.cart.CompleteCheckout(ctx, snapshot)
	s.metrics.IncOrder(metrics.OutcomeSuccess)
	s.notify(enums.NotificationTypeSuccess, res.Message)
	if res.OrderID != nil {
		ctx = s.logg.WithField(ctx, "order_id", *res.OrderID)
	}
	s.logg.Info(ctx, "order submitted")
	return res, nil
}

func (s *service) notify(kind enums.NotificationType, message string) {
	if s.notifier != nil {
		s.notifier.Notify(kind, message)
	}
}
