package identity

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func setSecret(t *testing.T, value string) {
	t.Helper()
	t.Setenv("TABLESIDE_AUTH_SECRET", value)
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestTokenRoundTrip(t *testing.T) {
	setSecret(t, "unit-test-secret")

	token, err := GenerateToken("user-42", RoleShopOwner, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != RoleShopOwner {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	setSecret(t, "unit-test-secret")

	if _, err := GenerateToken("  ", RoleAdmin, time.Minute); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if _, err := GenerateToken("user-42", RoleAdmin, 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	setSecret(t, "unit-test-secret")

	token, err := GenerateToken("user-42", RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA"
	if _, err := ParseAndValidate(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseAndValidate(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	setSecret(t, "secret-one")
	token, err := GenerateToken("user-42", RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	setSecret(t, "secret-two")
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken under a different secret, got %v", err)
	}
}

func TestSupportsTokens(t *testing.T) {
	setSecret(t, "")
	if SupportsTokens() {
		t.Fatal("SupportsTokens should be false without a secret")
	}
	if _, err := GenerateToken("user-42", RoleAdmin, time.Minute); err == nil {
		t.Fatal("expected error without a secret")
	}

	setSecret(t, "unit-test-secret")
	if !SupportsTokens() {
		t.Fatal("SupportsTokens should be true with a secret")
	}
}
