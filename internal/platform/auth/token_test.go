package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestTokenManager(t *testing.T, cfg TokenManagerConfig) *TokenManager {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = "test-signing-secret"
	}
	m, err := NewTokenManager(cfg)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return m
}

func TestTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager(TokenManagerConfig{Secret: "   "}); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestTokenManagerIssueAndVerify(t *testing.T) {
	m := newTestTokenManager(t, TokenManagerConfig{Issuer: "kurumsal-tedarikci"})

	token, expiresAt, err := m.Issue("usr_1", "firma@example.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected signed token")
	}
	if remaining := time.Until(expiresAt); remaining < 23*time.Hour || remaining > 25*time.Hour {
		t.Fatalf("unexpected user token lifetime: %v", remaining)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "usr_1" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if claims.Email != "firma@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Role != RoleUser {
		t.Errorf("role = %q", claims.Role)
	}
	if claims.Issuer != "kurumsal-tedarikci" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestTokenManagerAdminTokensUseShorterTTL(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(t, TokenManagerConfig{
		Clock: func() time.Time { return now },
	})

	_, expiresAt, err := m.Issue("admin", "yonetici@example.com", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := now.Add(8 * time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("admin expiry = %v, want %v", expiresAt, want)
	}
}

func TestTokenManagerVerifyExpired(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	m := newTestTokenManager(t, TokenManagerConfig{
		Clock: func() time.Time { return past },
	})

	token, _, err := m.Issue("usr_1", "firma@example.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenManagerVerifyRejectsForeignSignature(t *testing.T) {
	issuer := newTestTokenManager(t, TokenManagerConfig{Secret: "secret-a"})
	verifier := newTestTokenManager(t, TokenManagerConfig{Secret: "secret-b"})

	token, _, err := issuer.Issue("usr_1", "firma@example.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenManagerVerifyRejectsGarbage(t *testing.T) {
	m := newTestTokenManager(t, TokenManagerConfig{})
	for _, raw := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		if _, err := m.Verify(raw); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q): expected ErrTokenInvalid, got %v", raw, err)
		}
	}
}
