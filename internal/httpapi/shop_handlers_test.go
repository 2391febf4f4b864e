package httpapi

import (
	"net/http"
	"testing"

	"tableside.org/internal/shops"
)

func TestShopLifecycle(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("admin")

	resp := api.post("/v1/shops", map[string]any{
		"name":        "Corner Bakery",
		"description": "bread and coffee",
	}, auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decode[shops.Shop](t, resp)
	if created.Status != shops.StatusOpen || created.OwnerID != api.adminID {
		t.Fatalf("unexpected shop: %+v", created)
	}

	resp = api.do(http.MethodPut, "/v1/shops/"+created.ID, map[string]any{
		"description": "bread, coffee and cake",
	}, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decode[shops.Shop](t, resp)
	if updated.Description != "bread, coffee and cake" {
		t.Fatalf("description not updated: %q", updated.Description)
	}

	// DELETE closes rather than removes.
	resp = api.do(http.MethodDelete, "/v1/shops/"+created.ID, nil, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	closed := decode[shops.Shop](t, resp)
	if closed.Status != shops.StatusClosed {
		t.Fatalf("expected closed status, got %s", closed.Status)
	}

	resp = api.get("/v1/shops/"+created.ID, nil, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("closed shop vanished: %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestShopCheckpoints(t *testing.T) {
	api := newTestAPI(t)
	adminAuth := api.obtainToken("admin")
	carolAuth := api.obtainToken("carol")

	// Customers can view shops but not create them.
	resp := api.get("/v1/shops", nil, carolAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = api.post("/v1/shops", map[string]any{"name": "Carol's Place"}, carolAuth)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// Revoking shops:view flips the read checkpoint too.
	shop := decode[shops.Shop](t, api.post("/v1/shops", map[string]any{"name": "Admin Shop"}, adminAuth))
	viewPerm, err := api.catalog.GetByName(t.Context(), "View Shops")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if _, err := api.engine.Revoke(t.Context(), api.customerID, viewPerm.ID, api.adminID, "test"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	resp = api.get("/v1/shops/"+shop.ID, nil, carolAuth)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 after revocation, got %d", resp.StatusCode)
	}
}
