package catalog

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSeed_PopulatesOnceOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Seed(ctx); err != nil {
		t.Fatalf("Seed error: %v", err)
	}
	first, err := s.ListAvailable(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if len(first) != len(defaultMenu) {
		t.Fatalf("seeded %d products, want %d", len(first), len(defaultMenu))
	}

	// Second call is a no-op.
	if err := s.Seed(ctx); err != nil {
		t.Fatalf("second Seed error: %v", err)
	}
	second, _ := s.ListAvailable(ctx, Filter{})
	if len(second) != len(first) {
		t.Errorf("second Seed changed product count: %d -> %d", len(first), len(second))
	}
}

func TestListAvailable_OrdersByPopularity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx); err != nil {
		t.Fatalf("Seed error: %v", err)
	}

	products, err := s.ListAvailable(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if products[0].Name != "Es Teh Manis" {
		t.Errorf("top product = %q, want Es Teh Manis (highest order count)", products[0].Name)
	}
	for i := 1; i < len(products); i++ {
		if products[i].OrderCount > products[i-1].OrderCount {
			t.Errorf("products out of order at %d: %d > %d", i, products[i].OrderCount, products[i-1].OrderCount)
		}
	}
}

func TestListAvailable_FilterCategoryAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx); err != nil {
		t.Fatalf("Seed error: %v", err)
	}

	juices, err := s.ListAvailable(ctx, Filter{Category: "jus buah"})
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	for _, p := range juices {
		if p.Category != "jus buah" {
			t.Errorf("product %q has category %q, want jus buah", p.Name, p.Category)
		}
	}

	limited, err := s.ListAvailable(ctx, Filter{Limit: 3})
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("len(limited) = %d, want 3", len(limited))
	}
}

func TestListAvailable_ExcludesUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertProduct(ctx, Product{Name: "Sold Out", Available: false}); err != nil {
		t.Fatalf("InsertProduct error: %v", err)
	}
	if _, err := s.InsertProduct(ctx, Product{Name: "In Stock", Available: true}); err != nil {
		t.Fatalf("InsertProduct error: %v", err)
	}

	products, err := s.ListAvailable(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if len(products) != 1 || products[0].Name != "In Stock" {
		t.Errorf("ListAvailable = %+v, want only In Stock", products)
	}
}

func TestGetProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertProduct(ctx, Product{Name: "Es Jeruk", Price: 15000, Available: true})
	if err != nil {
		t.Fatalf("InsertProduct error: %v", err)
	}

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("GetProduct error: %v", err)
	}
	if p == nil || p.Name != "Es Jeruk" || p.Price != 15000 {
		t.Errorf("GetProduct = %+v, want Es Jeruk at 15000", p)
	}

	missing, err := s.GetProduct(ctx, 9999)
	if err != nil {
		t.Fatalf("GetProduct miss error: %v", err)
	}
	if missing != nil {
		t.Errorf("GetProduct(9999) = %+v, want nil", missing)
	}
}

func TestGetUser_Missing(t *testing.T) {
	s := newTestStore(t)
	u, err := s.GetUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if u != nil {
		t.Errorf("GetUser(42) = %+v, want nil", u)
	}
}

func TestRecordAndRateInteraction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &Interaction{
		ID:        "int-1",
		SessionID: "sess",
		Input:     "halo",
		InputType: "text",
		Output:    "Halo!",
		Intent:    "GREETING",
		LatencyMs: 12,
		Status:    "success",
	}
	if err := s.RecordInteraction(ctx, rec); err != nil {
		t.Fatalf("RecordInteraction error: %v", err)
	}

	if err := s.RateInteraction(ctx, "int-1", 5); err != nil {
		t.Fatalf("RateInteraction error: %v", err)
	}
	if err := s.RateInteraction(ctx, "missing", 3); err == nil {
		t.Error("expected error rating unknown interaction")
	}
}

func TestIntentCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, intent := range []string{"GREETING", "GREETING", "ADD_TO_CART"} {
		rec := &Interaction{
			ID:        string(rune('a' + i)),
			SessionID: "sess",
			Input:     "x",
			InputType: "text",
			Intent:    intent,
			Status:    "success",
		}
		if err := s.RecordInteraction(ctx, rec); err != nil {
			t.Fatalf("RecordInteraction error: %v", err)
		}
	}

	counts, err := s.IntentCounts(ctx, 1)
	if err != nil {
		t.Fatalf("IntentCounts error: %v", err)
	}
	if counts["GREETING"] != 2 {
		t.Errorf("GREETING count = %d, want 2", counts["GREETING"])
	}
	if counts["ADD_TO_CART"] != 1 {
		t.Errorf("ADD_TO_CART count = %d, want 1", counts["ADD_TO_CART"])
	}
}
