package enums

import "testing"

func TestParsePurchasableType(t *testing.T) {
	for _, raw := range []string{"service", "package", "product"} {
		got, err := ParsePurchasableType(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if !got.IsValid() || got.String() != raw {
			t.Fatalf("unexpected value %q for %q", got, raw)
		}
	}
	if _, err := ParsePurchasableType("Service"); err == nil {
		t.Fatal("expected case-sensitive parse to reject Service")
	}
	if PurchasableType("coupon").IsValid() {
		t.Fatal("coupon should not be a purchasable type")
	}
}

func TestNormalizeLineStatus(t *testing.T) {
	if got := NormalizeLineStatus(" OK "); !got.IsOK() {
		t.Fatalf("expected ok status, got %q", got)
	}
	if got := NormalizeLineStatus("Conflict"); got != LineStatusConflict {
		t.Fatalf("expected conflict, got %q", got)
	}
	if got := NormalizeLineStatus("out_of_stock"); got.IsOK() || got != "out_of_stock" {
		t.Fatalf("unknown status should be preserved, got %q", got)
	}
}

func TestParseNotificationType(t *testing.T) {
	if _, err := ParseNotificationType("info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseNotificationType("fatal"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
