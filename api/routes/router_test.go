package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/checkout"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/internal/notifications"
	"github.com/aarluxe/pos-cart/internal/orders"
	"github.com/aarluxe/pos-cart/internal/pricing"
	"github.com/aarluxe/pos-cart/internal/reconcile"
	"github.com/aarluxe/pos-cart/pkg/config"
	"github.com/aarluxe/pos-cart/pkg/logger"
	"github.com/aarluxe/pos-cart/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type flatQuoter struct{}

func (flatQuoter) Quote(_ context.Context, _ customers.CartContext, lines []cart.Purchasable) (*pricing.Quote, error) {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromInt(int64(25 * l.Quantity)))
	}
	return &pricing.Quote{Totals: cart.Totals{Subtotal: total, TotalPrice: total, Confirmed: true}}, nil
}

type recordingSubmitter struct {
	mu   sync.Mutex
	reqs []orders.Request
}

func (s *recordingSubmitter) Submit(_ context.Context, req orders.Request) (*orders.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	id := int64(len(s.reqs))
	return &orders.Result{Message: orders.MsgSubmitted, OrderID: &id}, nil
}

type harness struct {
	server    *httptest.Server
	engine    *reconcile.Engine
	submitter *recordingSubmitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	logg := logger.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.NewCartMetrics(reg)
	notifier := notifications.NewService(0)
	sel := customers.NewSelection()

	engine, err := reconcile.New(reconcile.Options{Quoter: flatQuoter{}, Notifier: notifier, Metrics: m, Logger: logg})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	engine.Follow(sel)

	submitter := &recordingSubmitter{}
	checkoutService, err := checkout.NewService(engine, submitter, notifier, m, logg)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	handler := NewRouter(cfg, logg, stubPinger{}, nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), engine, sel, checkoutService, notifier)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &harness{server: srv, engine: engine, submitter: submitter}
}

func (h *harness) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/health/live", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}

	resp = h.do(t, http.MethodGet, "/health/ready", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"db":"up"`) {
		t.Fatalf("unexpected ready response %d %s", resp.StatusCode, body)
	}
}

func TestCheckoutFlowThroughRouter(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/checkout", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected missing context rejection, got %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodPut, "/api/v1/context/customer", `{"customer":{"id":2,"vehicles":[{"id":9,"group_id":1}]}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select customer: %d", resp.StatusCode)
	}
	resp = h.do(t, http.MethodPut, "/api/v1/context/vehicle", `{"vehicle":{"id":9}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select vehicle: %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodPost, "/api/v1/checkout", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected empty cart rejection, got %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodPost, "/api/v1/cart/items", `{"purchasable_id":4,"purchasable_type":"service","quantity":2,"unit_price":"30"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add item: %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodPost, "/api/v1/cart/quote", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quote: %d", resp.StatusCode)
	}
	var quoted struct {
		Data reconcile.Summary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quoted); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if !quoted.Data.Totals.TotalPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected total %s", quoted.Data.Totals.TotalPrice)
	}

	resp = h.do(t, http.MethodPost, "/api/v1/checkout", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: %d", resp.StatusCode)
	}
	if len(h.submitter.reqs) != 1 {
		t.Fatalf("expected one submission, got %d", len(h.submitter.reqs))
	}
	req := h.submitter.reqs[0]
	if req.CarID != 9 || req.UserID != 2 || len(req.Purchasables) != 1 || req.Purchasables[0].Quantity != 2 {
		t.Fatalf("unexpected order request %+v", req)
	}

	resp = h.do(t, http.MethodGet, "/api/v1/cart", "")
	var after struct {
		Data reconcile.Summary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&after); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(after.Data.Items) != 0 || !after.Data.Totals.TotalPrice.IsZero() {
		t.Fatalf("expected cart cleared after checkout, got %+v", after.Data)
	}

	resp = h.do(t, http.MethodGet, "/api/v1/notifications", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), orders.MsgSubmitted) {
		t.Fatalf("expected success notification, got %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	_ = h.do(t, http.MethodPost, "/api/v1/cart/quote", "")

	resp := h.do(t, http.MethodGet, "/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `pos_cart_quotes_total{outcome="invalid"} 1`) {
		t.Fatalf("unexpected metrics output %d %s", resp.StatusCode, body)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/v1/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.StatusCode)
	}
}
