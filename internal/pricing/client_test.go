package pricing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/posapi"
	"github.com/shopspring/decimal"
)

const quoteBody = `{
  "success": true,
  "cart": {
    "quantity": 3,
    "subtotal_price": 150,
    "discount_price": "10.50",
    "total_price": 146.75,
    "shipping_price": 0,
    "service_price": 7.25,
    "service_percentage": 5,
    "min_order_percentage": 20,
    "min_payment_price": 29.35,
    "count": 2,
    "is_valid_coupon": {"value": false, "reasons": ["expired", "not applicable"]},
    "services": [
      {"cart": {"purchasable_id": 5, "purchasable_type": "service", "quantity": 1, "option_ids": [10], "purchasable": {"name": "Wash"}},
       "payload": {"status": "OK", "conflicts": [], "price": 100}}
    ],
    "products": [
      {"cart": {"purchasable_id": 8, "purchasable_type": "product", "quantity": 2, "option_ids": null},
       "payload": {"status": "conflict", "conflicts": [{"reason": "out of stock"}], "price": "25", "total_price": 50}}
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := posapi.NewClient(srv.URL, posapi.WithToken("secret"))
	if err != nil {
		t.Fatalf("posapi client: %v", err)
	}
	return NewClient(api, "")
}

func TestQuoteParsesResponse(t *testing.T) {
	t.Parallel()

	var body QuoteRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultQuotePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(quoteBody))
	})

	lines := []cart.Purchasable{{PurchasableID: 5, PurchasableType: enums.PurchasableTypeService, Quantity: 1, OptionIDs: []int64{10}}}
	quote, err := client.Quote(context.Background(), customers.CartContext{CustomerID: 2, VehicleID: 9}, lines)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if body.CarID != 9 || body.UserID != 2 || len(body.Purchasables) != 1 {
		t.Fatalf("unexpected request %+v", body)
	}

	totals := quote.Totals
	if !totals.Confirmed {
		t.Fatal("expected confirmed totals")
	}
	if !totals.TotalPrice.Equal(decimal.RequireFromString("146.75")) || !totals.DiscountAmount.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if totals.ItemCount != 2 || totals.TotalQuantity != 3 {
		t.Fatalf("unexpected counts %+v", totals)
	}
	if totals.Coupon.IsValid || totals.Coupon.Reason != "expired; not applicable" {
		t.Fatalf("unexpected coupon %+v", totals.Coupon)
	}

	if len(quote.Lines) != 2 {
		t.Fatalf("expected two priced lines, got %d", len(quote.Lines))
	}
	first := quote.Lines[0]
	if first.Key.PurchasableID != 5 || first.Status != enums.LineStatusOK || len(first.Conflicts) != 0 {
		t.Fatalf("unexpected first line %+v", first)
	}
	second := quote.Lines[1]
	if second.Key.PurchasableType != enums.PurchasableTypeProduct || len(second.Conflicts) != 1 {
		t.Fatalf("unexpected second line %+v", second)
	}
	if second.LineTotal == nil || !second.LineTotal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected line total %v", second.LineTotal)
	}
}

func TestQuoteSendsEmptyCart(t *testing.T) {
	t.Parallel()

	var raw []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"success":true,"cart":{"total_price":0}}`))
	})

	quote, err := client.Quote(context.Background(), customers.CartContext{CustomerID: 2, VehicleID: 9}, nil)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if string(raw) != `{"car_id":9,"user_id":2,"purchasables":[]}` {
		t.Fatalf("unexpected request body %s", raw)
	}
	if !quote.Totals.TotalPrice.IsZero() || len(quote.Lines) != 0 {
		t.Fatalf("expected zeroed quote, got %+v", quote)
	}
}

func TestQuoteRequiresContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.Quote(context.Background(), customers.CartContext{CustomerID: 2}, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("expected no network call without a vehicle")
	}
}

func TestQuoteRejection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "ok status", status: http.StatusOK, body: `{"success":false,"message":"Coupon expired"}`, message: "Coupon expired"},
		{name: "error status", status: http.StatusUnprocessableEntity, body: `{"success":false,"message":"Vehicle not found"}`, message: "Vehicle not found"},
		{name: "no message", status: http.StatusOK, body: `{"success":false}`, message: fallbackRejectMessage},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Quote(context.Background(), customers.CartContext{CustomerID: 1, VehicleID: 1}, nil)
			if !pkgerrors.IsCode(err, pkgerrors.CodeRejected) {
				t.Fatalf("expected rejection, got %v", err)
			}
			if got := pkgerrors.As(err).Message(); got != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, got)
			}
		})
	}
}

func TestQuoteTransportFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.Quote(context.Background(), customers.CartContext{CustomerID: 1, VehicleID: 1}, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSplitConflicts(t *testing.T) {
	t.Parallel()

	if got := splitConflicts(json.RawMessage(`null`)); got != nil {
		t.Fatalf("expected nil for null, got %v", got)
	}
	if got := splitConflicts(json.RawMessage(`{"a":1}`)); len(got) != 1 {
		t.Fatalf("expected single conflict, got %v", got)
	}
	if got := splitConflicts(json.RawMessage(`[1,2]`)); len(got) != 2 {
		t.Fatalf("expected two conflicts, got %v", got)
	}
}

func TestQuoteToleratesUnknownCouponReasons(t *testing.T) {
	t.Parallel()

	for _, reasons := range []string{`{}`, `{"code":"expired"}`, `false`} {
		body := `{"success": true, "cart": {"total_price": 40, "count": 0, "is_valid_coupon": {"value": false, "reasons": ` + reasons + `}}}`
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		quote, err := client.Quote(context.Background(), customers.CartContext{CustomerID: 2, VehicleID: 9}, nil)
		if err != nil {
			t.Fatalf("reasons %s: unexpected error %v", reasons, err)
		}
		if quote.Totals.Coupon.IsValid || quote.Totals.Coupon.Reason != "" {
			t.Fatalf("reasons %s: unexpected coupon %+v", reasons, quote.Totals.Coupon)
		}
		if !quote.Totals.TotalPrice.Equal(decimal.NewFromInt(40)) {
			t.Fatalf("reasons %s: unexpected total %s", reasons, quote.Totals.TotalPrice)
		}
	}
}
