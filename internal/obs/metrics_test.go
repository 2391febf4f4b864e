package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                               "/",
		"/metrics":                       "/metrics",
		"/v1/permissions":                "/v1/permissions",
		"/v1/permissions/01J5X":          "/v1/permissions/:id",
		"/v1/users/01J5X/permissions":    "/v1/users/:id/permissions",
		"/v1/users/01J5X":                "/v1/users/:id",
		"/v1/shops/01J5X":                "/v1/shops/:id",
		"/v1/shops":                      "/v1/shops",
		"/v1/access/check":               "/v1/access/check",
		"/v1/permissions?resource=shops": "/v1/permissions",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
