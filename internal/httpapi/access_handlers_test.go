package httpapi

import (
	"net/http"
	"testing"
)

func TestAccessCheckSeededCustomer(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("carol")

	// The customer default bundle includes shops:view.
	resp := api.post("/v1/access/check", map[string]any{
		"resource": "shops",
		"action":   "view",
	}, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	res := decode[accessCheckResponse](t, resp)
	if !res.Allowed {
		t.Fatal("expected allow for shops:view")
	}

	// But not user management.
	resp = api.post("/v1/access/check", map[string]any{
		"permission": "users:manage",
	}, auth)
	res = decode[accessCheckResponse](t, resp)
	if res.Allowed {
		t.Fatal("expected deny for users:manage")
	}
}

func TestAccessCheckByName(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("carol")

	resp := api.post("/v1/access/check", map[string]any{
		"permission": "View Shops",
	}, auth)
	res := decode[accessCheckResponse](t, resp)
	if !res.Allowed {
		t.Fatal("expected allow via catalog name")
	}
}

func TestAccessCheckUnresolvedReference(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("carol")

	// An unknown name is answered as a deny, not an error, so UI probes
	// degrade gracefully when checkpoints outpace the catalog.
	resp := api.post("/v1/access/check", map[string]any{
		"permission": "No Such Capability",
	}, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	res := decode[accessCheckResponse](t, resp)
	if res.Allowed {
		t.Fatal("unresolved reference must deny")
	}
	if res.Reason == "" {
		t.Fatal("expected a reason for the deny")
	}
}

func TestAccessCheckValidation(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("carol")

	resp := api.post("/v1/access/check", map[string]any{}, auth)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty reference: expected 400, got %d", resp.StatusCode)
	}

	resp2 := api.post("/v1/access/check", map[string]any{
		"resource_type": "shop",
		"action":        "edit",
	}, auth)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("partial instance reference: expected 400, got %d", resp2.StatusCode)
	}
}
