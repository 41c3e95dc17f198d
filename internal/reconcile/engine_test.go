package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/internal/notifications"
	"github.com/aarluxe/pos-cart/internal/pricing"
	"github.com/aarluxe/pos-cart/internal/snapshot"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type quoteCall struct {
	cc    customers.CartContext
	lines []cart.Purchasable
}

// stubQuoter answers each call with the next scripted response. A non-nil
// gate blocks that call until it is closed.
type stubQuoter struct {
	mu        sync.Mutex
	calls     []quoteCall
	responses []stubResponse
	entered   chan int
}

type stubResponse struct {
	quote *pricing.Quote
	err   error
	gate  chan struct{}
}

func (s *stubQuoter) Quote(ctx context.Context, cc customers.CartContext, lines []cart.Purchasable) (*pricing.Quote, error) {
	s.mu.Lock()
	idx := len(s.calls)
	s.calls = append(s.calls, quoteCall{cc: cc, lines: lines})
	var resp stubResponse
	if idx < len(s.responses) {
		resp = s.responses[idx]
	}
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- idx
	}
	if resp.gate != nil {
		<-resp.gate
	}
	if resp.quote == nil && resp.err == nil {
		return &pricing.Quote{Totals: cart.Totals{Confirmed: true}}, nil
	}
	return resp.quote, resp.err
}

func (s *stubQuoter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	kinds    []enums.NotificationType
}

func (r *recordingNotifier) Notify(kind enums.NotificationType, message string) notifications.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.messages = append(r.messages, message)
	return notifications.Notification{Type: kind, Message: message}
}

type memoryStore struct {
	mu     sync.Mutex
	states map[string]snapshot.State
	saves  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: map[string]snapshot.State{}}
}

func (m *memoryStore) Load(_ context.Context, id string) (*snapshot.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "missing")
	}
	return &state, nil
}

func (m *memoryStore) Save(_ context.Context, id string, state snapshot.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = state
	m.saves++
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

var (
	washKey = cart.Key{PurchasableID: 5, PurchasableType: enums.PurchasableTypeService}
	fullCtx = customers.CartContext{CustomerID: 1, VehicleID: 2}
)

func washSpec(qty int, optionIDs ...int64) cart.AddSpec {
	return cart.AddSpec{
		PurchasableID:   5,
		PurchasableType: enums.PurchasableTypeService,
		Quantity:        qty,
		OptionIDs:       optionIDs,
		DisplayName:     "Exterior Wash",
		UnitPrice:       decimal.NewFromInt(80),
	}
}

func quoteFor(total int64, lines ...cart.PricedLine) *pricing.Quote {
	return &pricing.Quote{
		Totals: cart.Totals{
			Subtotal:      decimal.NewFromInt(total),
			TotalPrice:    decimal.NewFromInt(total),
			ItemCount:     len(lines),
			TotalQuantity: len(lines),
			Confirmed:     true,
		},
		Lines: lines,
	}
}

func newTestEngine(t *testing.T, q pricing.Quoter, opts ...func(*Options)) (*Engine, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	o := Options{Quoter: q, Notifier: notifier}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := New(o)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e, notifier
}

func TestNewRequiresQuoter(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without quoter")
	}
}

func TestReconcileConcreteScenario(t *testing.T) {
	ctx := context.Background()
	q := &stubQuoter{responses: []stubResponse{{quote: quoteFor(100, cart.PricedLine{
		Key:       washKey,
		OptionIDs: []int64{10},
		UnitPrice: decimal.NewFromInt(100),
		Status:    enums.LineStatusOK,
	})}}}
	e, _ := newTestEngine(t, q)

	e.SetContext(ctx, fullCtx)
	if err := e.AddItem(ctx, washSpec(1, 10)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	summary := e.Summary()
	if len(summary.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(summary.Items))
	}
	item := summary.Items[0]
	if !item.UnitPrice.IsConfirmed() || !item.UnitPrice.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected confirmed unit price 100, got %+v", item.UnitPrice)
	}
	if item.Status != enums.LineStatusOK {
		t.Fatalf("expected status ok, got %q", item.Status)
	}
	if !summary.Totals.TotalPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected total 100, got %s", summary.Totals.TotalPrice)
	}
	if summary.Outcome != enums.QuoteOutcomeReconciled || summary.Phase != enums.QuotePhaseIdle {
		t.Fatalf("unexpected state %s/%s", summary.Phase, summary.Outcome)
	}

	call := q.calls[0]
	if call.cc != fullCtx || len(call.lines) != 1 || call.lines[0].OptionIDs[0] != 10 {
		t.Fatalf("unexpected quote call %+v", call)
	}
}

func TestReconcileReplacesAggregates(t *testing.T) {
	ctx := context.Background()
	first := quoteFor(120)
	first.Totals.DiscountAmount = decimal.NewFromInt(10)
	first.Totals.ServiceFee = decimal.NewFromInt(5)
	first.Totals.Coupon.IsValid = true
	q := &stubQuoter{responses: []stubResponse{{quote: first}, {quote: quoteFor(90)}}}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))

	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	totals := e.Summary().Totals
	if !totals.TotalPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected total 90, got %s", totals.TotalPrice)
	}
	if !totals.DiscountAmount.IsZero() || !totals.ServiceFee.IsZero() || totals.Coupon.IsValid {
		t.Fatalf("stale aggregates survived: %+v", totals)
	}
}

func TestReconcileFailurePreservesState(t *testing.T) {
	ctx := context.Background()
	conflict := cart.PricedLine{
		Key:       washKey,
		UnitPrice: decimal.NewFromInt(70),
		Status:    enums.LineStatusConflict,
		Conflicts: []json.RawMessage{json.RawMessage(`"no slots"`)},
	}
	q := &stubQuoter{responses: []stubResponse{
		{quote: quoteFor(70, conflict)},
		{err: pkgerrors.New(pkgerrors.CodeRejected, "Coupon expired")},
		{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "execute request")},
	}}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(2))
	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	before := e.Summary()
	if !before.HasConflicts {
		t.Fatal("conflicting line must stay flagged, not removed")
	}

	err := e.Reconcile(ctx)
	if !pkgerrors.IsCode(err, pkgerrors.CodeRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	after := e.Summary()
	if after.Outcome != enums.QuoteOutcomeFailed || after.LastError != "Coupon expired" {
		t.Fatalf("expected failed outcome with server message, got %+v", after)
	}
	if !after.Totals.TotalPrice.Equal(before.Totals.TotalPrice) || len(after.Items) != len(before.Items) {
		t.Fatalf("state changed after failure: before=%+v after=%+v", before.Totals, after.Totals)
	}
	if !after.Items[0].UnitPrice.Equal(before.Items[0].UnitPrice) {
		t.Fatal("line price changed after failure")
	}

	_ = e.Reconcile(ctx)
	if got := e.Summary().LastError; got != quoteFailedMessage {
		t.Fatalf("expected generic failure message, got %q", got)
	}
}

func TestReconcileRequiresContext(t *testing.T) {
	ctx := context.Background()
	q := &stubQuoter{}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, customers.CartContext{CustomerID: 1})
	_ = e.AddItem(ctx, washSpec(1))

	err := e.Reconcile(ctx)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if q.callCount() != 0 {
		t.Fatal("pricing service must not be called without full context")
	}
}

func TestReconcileSendsEmptyCart(t *testing.T) {
	ctx := context.Background()
	q := &stubQuoter{}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, fullCtx)

	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if q.callCount() != 1 || len(q.calls[0].lines) != 0 {
		t.Fatalf("expected one call with no lines, got %+v", q.calls)
	}
}

func TestSetContextInvalidatesNonEmptyCart(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.NewCartMetrics(reg)
	e, notifier := newTestEngine(t, &stubQuoter{}, func(o *Options) { o.Metrics = m })

	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))

	reason := e.SetContext(ctx, customers.CartContext{CustomerID: 1, VehicleID: 3})
	if reason != customers.InvalidationVehicle {
		t.Fatalf("expected vehicle invalidation, got %q", reason)
	}
	if !e.Summary().Totals.TotalPrice.IsZero() || len(e.Summary().Items) != 0 {
		t.Fatal("expected cart cleared")
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "Cart cleared due to vehicle change" {
		t.Fatalf("unexpected notifications %v", notifier.messages)
	}
	if notifier.kinds[0] != enums.NotificationTypeInfo {
		t.Fatalf("expected info notification, got %s", notifier.kinds[0])
	}

	_ = e.AddItem(ctx, washSpec(1))
	reason = e.SetContext(ctx, customers.CartContext{CustomerID: 7})
	if reason != customers.InvalidationCustomer || notifier.messages[1] != "Cart cleared due to customer change" {
		t.Fatalf("expected customer invalidation, got %q %v", reason, notifier.messages)
	}
	if got := gatheredValue(t, reg, "pos_cart_context_invalidations_total"); got != 2 {
		t.Fatalf("expected 2 invalidations, got %v", got)
	}
}

func TestSetContextEmptyCartDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t, &stubQuoter{})

	e.SetContext(ctx, fullCtx)
	reason := e.SetContext(ctx, customers.CartContext{CustomerID: 9, VehicleID: 4})
	if reason != customers.InvalidationNone || len(notifier.messages) != 0 {
		t.Fatalf("expected silent change, got %q %v", reason, notifier.messages)
	}
}

func TestSetContextKeepsRestoredCart(t *testing.T) {
	ctx := context.Background()
	e, notifier := newTestEngine(t, &stubQuoter{})

	_ = e.AddItem(ctx, washSpec(2))
	e.SetContext(ctx, fullCtx)
	if len(e.Summary().Items) != 1 || len(notifier.messages) != 0 {
		t.Fatal("selecting a first context must keep the cart")
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	q := &stubQuoter{
		entered: make(chan int, 2),
		responses: []stubResponse{
			{quote: quoteFor(999), gate: gate},
			{quote: quoteFor(150)},
		},
	}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))

	slow := make(chan error, 1)
	go func() { slow <- e.Reconcile(ctx) }()
	<-q.entered

	if e.Summary().Phase != enums.QuotePhaseQuoting {
		t.Fatal("expected quoting phase while a request is in flight")
	}
	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("fast reconcile: %v", err)
	}
	<-q.entered
	close(gate)

	if err := <-slow; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected superseded error, got %v", err)
	}
	if got := e.Summary().Totals.TotalPrice; !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("stale response overwrote newer quote: total %s", got)
	}
}

func TestMutationDuringQuoteDiscardsResponse(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	q := &stubQuoter{
		entered:   make(chan int, 1),
		responses: []stubResponse{{quote: quoteFor(80), gate: gate}},
	}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))

	done := make(chan error, 1)
	go func() { done <- e.Reconcile(ctx) }()
	<-q.entered
	_ = e.AddItem(ctx, washSpec(2))
	close(gate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected superseded error, got %v", err)
	}
	summary := e.Summary()
	if summary.Totals.Confirmed || summary.Items[0].Quantity != 3 {
		t.Fatalf("quote for the old cart must not apply, got %+v", summary.Totals)
	}
	if summary.Phase != enums.QuotePhaseIdle {
		t.Fatalf("expected idle phase, got %s", summary.Phase)
	}
}

func TestRunProcessesTriggers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &stubQuoter{responses: []stubResponse{{quote: quoteFor(80)}, {quote: quoteFor(160)}}}
	e, _ := newTestEngine(t, q, func(o *Options) { o.AutoQuote = true })

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !e.Summary().Totals.Confirmed {
		time.Sleep(5 * time.Millisecond)
	}
	if !e.Summary().Totals.Confirmed {
		t.Fatal("expected background quote to be applied")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestTriggerDisabledWithoutAutoQuote(t *testing.T) {
	e, _ := newTestEngine(t, &stubQuoter{})
	e.SetContext(context.Background(), fullCtx)
	_ = e.AddItem(context.Background(), washSpec(1))

	select {
	case <-e.kick:
		t.Fatal("no trigger expected with auto quote disabled")
	default:
	}
}

func TestPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	withStore := func(o *Options) {
		o.Store = store
		o.TerminalID = "front-desk"
	}

	first, _ := newTestEngine(t, &stubQuoter{}, withStore)
	first.SetContext(ctx, fullCtx)
	_ = first.AddItem(ctx, washSpec(2, 10))
	if store.saves == 0 {
		t.Fatal("expected snapshot saves on mutation")
	}

	second, _ := newTestEngine(t, &stubQuoter{}, withStore)
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	summary := second.Summary()
	if summary.Context != fullCtx || len(summary.Items) != 1 || summary.Items[0].Quantity != 2 {
		t.Fatalf("unexpected restored state %+v", summary)
	}

	empty, _ := newTestEngine(t, &stubQuoter{}, func(o *Options) { o.Store = newMemoryStore() })
	if err := empty.Restore(ctx); err != nil {
		t.Fatalf("restore with nothing stored should succeed, got %v", err)
	}
}

func TestCompleteCheckoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	q := &stubQuoter{responses: []stubResponse{{quote: quoteFor(80)}}}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))
	_ = e.Reconcile(ctx)

	checkout := e.PrepareCheckout()
	if checkout.Context != fullCtx || len(checkout.Lines) != 1 {
		t.Fatalf("unexpected checkout capture %+v", checkout)
	}

	e.CompleteCheckout(ctx, checkout)
	s := e.Summary()
	if len(s.Items) != 0 || !s.Totals.TotalPrice.IsZero() || s.Totals.Confirmed || s.Outcome != enums.QuoteOutcomeNone {
		t.Fatalf("expected cleared state, got %+v", s)
	}
	if s.Context != fullCtx {
		t.Fatal("checkout must keep the selected context")
	}
}

func TestCompleteCheckoutKeepsLinesAddedInFlight(t *testing.T) {
	ctx := context.Background()
	q := &stubQuoter{responses: []stubResponse{{quote: quoteFor(80)}}}
	e, _ := newTestEngine(t, q)
	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))
	_ = e.Reconcile(ctx)

	checkout := e.PrepareCheckout()

	_ = e.AddItem(ctx, washSpec(2))
	wax := washSpec(1)
	wax.PurchasableID = 6
	wax.DisplayName = "Wax"
	_ = e.AddItem(ctx, wax)

	e.CompleteCheckout(ctx, checkout)
	s := e.Summary()
	if len(s.Items) != 2 {
		t.Fatalf("expected the in-flight additions to remain, got %+v", s.Items)
	}
	if s.Items[0].PurchasableID != 5 || s.Items[0].Quantity != 2 {
		t.Fatalf("submitted quantity should be taken out of the wash line, got %+v", s.Items[0])
	}
	if s.Items[1].PurchasableID != 6 || s.Items[1].Quantity != 1 {
		t.Fatalf("unexpected wax line %+v", s.Items[1])
	}
	if s.Totals.Confirmed || s.Outcome != enums.QuoteOutcomeNone || s.LastError != "" {
		t.Fatalf("quote state should be reset, got %+v", s)
	}
}

type emptyQuoter struct{}

func (emptyQuoter) Quote(context.Context, customers.CartContext, []cart.Purchasable) (*pricing.Quote, error) {
	return nil, nil
}

func TestReconcileWithoutQuoteIsDependencyError(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, emptyQuoter{})
	e.SetContext(ctx, fullCtx)
	_ = e.AddItem(ctx, washSpec(1))

	err := e.Reconcile(ctx)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	s := e.Summary()
	if s.Outcome != enums.QuoteOutcomeFailed || s.Phase != enums.QuotePhaseIdle || len(s.Items) != 1 {
		t.Fatalf("cart should be preserved with a failed outcome, got %+v", s)
	}
	if s.LastError != quoteFailedMessage {
		t.Fatalf("unexpected last error %q", s.LastError)
	}
}

func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		total := 0.0
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	return 0
}
