package erp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAPI(t *testing.T, handler http.Handler) API {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api, err := NewHTTPAPI(HTTPAPIConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTPAPI: %v", err)
	}
	return api
}

func TestHTTPAPILogin(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode login body: %v", err)
		}
		if body["email"] != "svc@example.com" {
			t.Fatalf("unexpected email %q", body["email"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "abc"})
	}))

	result, err := api.Login(context.Background(), "svc@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token != "abc" {
		t.Fatalf("unexpected token %q", result.Token)
	}
}

func TestHTTPAPILoginRejectedCredentials(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := api.Login(context.Background(), "svc@example.com", "wrong")
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestHTTPAPIFindAccountMissIsNotAnError(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "buyer@example.com" {
			t.Fatalf("unexpected email query %q", got)
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	_, found, err := api.FindAccountByEmail(context.Background(), "token", "Buyer@Example.com")
	if err != nil {
		t.Fatalf("FindAccountByEmail: %v", err)
	}
	if found {
		t.Fatal("expected lookup miss")
	}
}

func TestHTTPAPICreateSaleForwardsHeaders(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer service-token" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("X-Forwarded-Authorization"); got != "Bearer user-token" {
			t.Fatalf("unexpected forwarded header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode sale body: %v", err)
		}
		if body["externalRef"] != "ord_123" {
			t.Fatalf("unexpected external ref %v", body["externalRef"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"saleNumber": "ERP-7"})
	}))

	result, err := api.CreateSale(context.Background(), "service-token", SaleRequest{
		SaleNumber:   "WEB-2026-0001",
		ExternalRef:  "ord_123",
		AccountID:    "cari-1",
		PaymentType:  1,
		ForwardToken: "user-token",
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if result.SaleNumber != "ERP-7" {
		t.Fatalf("unexpected sale number %q", result.SaleNumber)
	}
}

func TestHTTPAPIUpstreamErrorsMapToUnavailable(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := api.CreateAccount(context.Background(), "token", AccountRequest{Name: "x", Email: "x@example.com"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, _, err := api.FindAccountByEmail(context.Background(), "token", "x@example.com"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
