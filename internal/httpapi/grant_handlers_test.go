package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"tableside.org/internal/authz"
)

func TestGrantRevokeFlow(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("admin")
	ctx := context.Background()

	perm, err := api.catalog.CreatePermission(ctx, "Approve Refunds", "", "refunds", "approve")
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	resp := api.post("/v1/users/"+api.customerID+"/permissions", map[string]any{
		"permission_id": perm.ID,
	}, auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	grant := decode[authz.Grant](t, resp)
	if grant.UserID != api.customerID || grant.GrantedBy != api.adminID {
		t.Fatalf("unexpected grant: %+v", grant)
	}

	ok, err := api.engine.HasPermission(ctx, api.customerID, "refunds", "approve")
	if err != nil || !ok {
		t.Fatalf("grant not effective: ok=%v err=%v", ok, err)
	}

	// Effective listing contains the new permission.
	resp = api.get("/v1/users/"+api.customerID+"/permissions", nil, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	listed := decode[map[string][]authz.Permission](t, resp)
	found := false
	for _, p := range listed["permissions"] {
		if p.ID == perm.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("granted permission missing from effective listing")
	}

	// Revoke with a reason.
	resp = api.do(http.MethodDelete, "/v1/users/"+api.customerID+"/permissions", map[string]any{
		"permission_id": perm.ID,
		"reason":        "no longer needed",
	}, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	revoked := decode[authz.Grant](t, resp)
	if revoked.Active || revoked.RevocationReason != "no longer needed" {
		t.Fatalf("unexpected revoked grant: %+v", revoked)
	}

	ok, err = api.engine.HasPermission(ctx, api.customerID, "refunds", "approve")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if ok {
		t.Fatal("revoked permission still effective")
	}

	// Revoking again is a 404: nothing effective remains.
	resp = api.do(http.MethodDelete, "/v1/users/"+api.customerID+"/permissions", map[string]any{
		"permission_id": perm.ID,
	}, auth)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestBulkGrantPartialFailure(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("admin")
	ctx := context.Background()

	one, err := api.catalog.CreatePermission(ctx, "Feature One", "", "features", "one")
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	two, err := api.catalog.CreatePermission(ctx, "Feature Two", "", "features", "two")
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	resp := api.post("/v1/users/"+api.customerID+"/permissions", map[string]any{
		"permission_ids": []string{one.ID, "bogus-id", two.ID},
	}, auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	res := decode[authz.BulkResult](t, resp)
	if len(res.Granted) != 2 || len(res.Failed) != 1 {
		t.Fatalf("expected 2 granted + 1 failed, got %d/%d", len(res.Granted), len(res.Failed))
	}
	if res.Failed[0].PermissionID != "bogus-id" || res.Failed[0].Reason == "" {
		t.Fatalf("unexpected failure element: %+v", res.Failed[0])
	}
}

func TestGrantHistoryListing(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("admin")
	ctx := context.Background()

	perm, err := api.catalog.CreatePermission(ctx, "Audit Trail", "", "trail", "view")
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	if _, err := api.engine.Grant(ctx, api.customerID, perm.ID, api.adminID, nil); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := api.engine.Revoke(ctx, api.customerID, perm.ID, api.adminID, "rotation"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := api.engine.Grant(ctx, api.customerID, perm.ID, api.adminID, nil); err != nil {
		t.Fatalf("re-grant: %v", err)
	}

	resp := api.get("/v1/users/"+api.customerID+"/permissions", url.Values{"include": []string{"all"}}, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	history := decode[map[string][]authz.Grant](t, resp)
	count := 0
	for _, g := range history["grants"] {
		if g.PermissionID == perm.ID {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 grant rows for the permission, got %d", count)
	}
}

func TestGrantManagementRequiresPermission(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("carol")

	resp := api.post("/v1/users/"+api.customerID+"/permissions", map[string]any{
		"permission_id": "anything",
	}, auth)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateUserEndpoint(t *testing.T) {
	api := newTestAPI(t)
	auth := api.obtainToken("admin")

	resp := api.post("/v1/users", map[string]any{
		"username": "dave",
		"email":    "dave@example.test",
		"password": "dave-password",
		"role":     "customer",
	}, auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	if created["id"] == "" || created["username"] != "dave" {
		t.Fatalf("unexpected user payload: %v", created)
	}
	if _, ok := created["password_hash"]; ok {
		t.Fatal("password hash leaked in response")
	}

	// Username collision.
	resp = api.post("/v1/users", map[string]any{
		"username": "dave",
		"email":    "dave2@example.test",
		"password": "dave-password",
		"role":     "customer",
	}, auth)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
