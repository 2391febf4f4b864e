package shops

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateAndGetShop(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	shop, err := svc.Create(ctx, "  Corner Bakery  ", "bread", "owner-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if shop.Name != "Corner Bakery" || shop.Status != StatusOpen {
		t.Fatalf("unexpected shop: %+v", shop)
	}

	got, err := svc.Get(ctx, shop.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != shop.ID {
		t.Fatalf("unexpected id: %s", got.ID)
	}

	if _, err := svc.Create(ctx, "", "", "owner-1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateShopFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	shop, err := svc.Create(ctx, "Corner Bakery", "", "owner-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	desc := "bread and coffee"
	updated, err := svc.Update(ctx, shop.ID, ShopUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != desc || updated.Name != "Corner Bakery" {
		t.Fatalf("partial update went wrong: %+v", updated)
	}

	bad := "demolished"
	if _, err := svc.Update(ctx, shop.ID, ShopUpdate{Status: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad status, got %v", err)
	}

	empty := "   "
	if _, err := svc.Update(ctx, shop.ID, ShopUpdate{Name: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty name, got %v", err)
	}
}

func TestCloseShopKeepsRecord(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	shop, err := svc.Create(ctx, "Corner Bakery", "", "owner-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	closed, err := svc.Close(ctx, shop.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != StatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}

	// Closed shops stay listed; orders keep a valid referent.
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("closed shop removed from listing: %v", list)
	}
}
