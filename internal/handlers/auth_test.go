package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/platform/auth"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

func newAuthRouter(h *AuthHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/", h.Routes)
	return router
}

func TestAuthHandlersRegister(t *testing.T) {
	var captured services.RegisterCommand
	handler := NewAuthHandlers(nil, &stubAuthService{
		registerFunc: func(ctx context.Context, cmd services.RegisterCommand) (services.AuthResult, error) {
			captured = cmd
			return services.AuthResult{
				Token:     "tok-123",
				ExpiresAt: time.Date(2025, 5, 7, 12, 0, 0, 0, time.UTC),
				User: services.User{
					ID:             "usr_1",
					Email:          cmd.Email,
					Name:           cmd.Name,
					Role:           domain.RoleUser,
					MembershipType: domain.MembershipCorporate,
				},
			}, nil
		},
	})

	body := []byte(`{"email":"firma@example.com","password":"gizli-sifre","name":"Ahmet","company_name":"Firma AS","tax_number":"1234567890","membership_type":"corporate"}`)
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	newAuthRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Email != "firma@example.com" {
		t.Fatalf("unexpected email %q", captured.Email)
	}
	if captured.MembershipType != domain.MembershipCorporate {
		t.Fatalf("unexpected membership %q", captured.MembershipType)
	}

	var payload struct {
		Success   bool        `json:"success"`
		Token     string      `json:"token"`
		ExpiresAt string      `json:"expires_at"`
		User      userPayload `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if !payload.Success || payload.Token != "tok-123" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.User.ID != "usr_1" {
		t.Fatalf("unexpected user %+v", payload.User)
	}
}

func TestAuthHandlersRegisterValidation(t *testing.T) {
	handler := NewAuthHandlers(nil, &stubAuthService{})

	cases := map[string]string{
		"missing email":      `{"password":"gizli-sifre","name":"Ahmet"}`,
		"short password":     `{"email":"a@b.co","password":"kisa","name":"Ahmet"}`,
		"missing name":       `{"email":"a@b.co","password":"gizli-sifre"}`,
		"unknown membership": `{"email":"a@b.co","password":"gizli-sifre","name":"Ahmet","membership_type":"gold"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte(body)))
			rr := httptest.NewRecorder()
			newAuthRouter(handler).ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestAuthHandlersLoginBadCredentials(t *testing.T) {
	handler := NewAuthHandlers(nil, &stubAuthService{
		loginFunc: func(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error) {
			return services.AuthResult{}, services.ErrAuthInvalidCredentials
		},
	})

	body := []byte(`{"email":"a@b.co","password":"yanlis"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	newAuthRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if payload["error"] != "invalid_credentials" {
		t.Fatalf("unexpected error code %v", payload["error"])
	}
}

func TestAuthHandlersLoginHidesInternalFailureDetail(t *testing.T) {
	const internalDetail = "rpc error: code = Unavailable desc = firestore host 10.0.3.7 unreachable"
	handler := NewAuthHandlers(nil, &stubAuthService{
		loginFunc: func(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error) {
			return services.AuthResult{}, errors.New(internalDetail)
		},
	})

	body := []byte(`{"email":"a@b.co","password":"parola-123"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	newAuthRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("10.0.3.7")) || bytes.Contains(rr.Body.Bytes(), []byte("firestore")) {
		t.Fatalf("internal failure detail leaked into response: %s", rr.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if payload["error"] != "auth_error" {
		t.Fatalf("unexpected error code %v", payload["error"])
	}
	if payload["message"] != "failed to process authentication request" {
		t.Fatalf("unexpected message %v", payload["message"])
	}
}

func TestAuthHandlersRateLimit(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	handler := NewAuthHandlers(nil, &stubAuthService{
		loginFunc: func(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error) {
			return services.AuthResult{Token: "tok"}, nil
		},
	}, WithAuthRateLimiter(newLoginThrottle(2, time.Minute, func() time.Time { return now })))

	router := newAuthRouter(handler)
	body := `{"email":"a@b.co","password":"gizli-sifre"}`

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(body)))
		req.RemoteAddr = "10.0.0.9:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(body)))
	req.RemoteAddr = "10.0.0.9:4000"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}

	// A different client address keeps its own budget.
	req = httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(body)))
	req.RemoteAddr = "10.0.0.10:4000"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for second client, got %d", rr.Code)
	}
}

func TestAuthHandlersForgotPasswordAlwaysSucceeds(t *testing.T) {
	handler := NewAuthHandlers(nil, &stubAuthService{
		forgotPasswordFunc: func(ctx context.Context, email string) error {
			return nil
		},
	})

	body := []byte(`{"email":"unknown@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/forgot-password", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	newAuthRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestAuthHandlersProfileRequiresIdentity(t *testing.T) {
	handler := NewAuthHandlers(nil, &stubAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rr := httptest.NewRecorder()
	newAuthRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestAuthHandlersProfile(t *testing.T) {
	handler := NewAuthHandlers(nil, &stubAuthService{
		profileFunc: func(ctx context.Context, userID string) (services.User, error) {
			return services.User{ID: userID, Email: "a@b.co", Name: "Ahmet"}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "usr_1"}))
	rr := httptest.NewRecorder()
	newAuthRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var payload struct {
		User userPayload `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if payload.User.ID != "usr_1" {
		t.Fatalf("unexpected user %+v", payload.User)
	}
}

func TestAuthHandlersUpdateProfilePatchesFields(t *testing.T) {
	var captured services.UpdateProfileCommand
	handler := NewAuthHandlers(nil, &stubAuthService{
		updateProfileFunc: func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
			captured = cmd
			return services.User{ID: cmd.UserID, Name: "Mehmet"}, nil
		},
	})

	body := []byte(`{"name":"Mehmet","tax_office":"Kadikoy"}`)
	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "usr_1"}))
	rr := httptest.NewRecorder()
	newAuthRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "usr_1" {
		t.Fatalf("unexpected user id %q", captured.UserID)
	}
	if captured.Name == nil || *captured.Name != "Mehmet" {
		t.Fatalf("expected name patch, got %+v", captured.Name)
	}
	if captured.Phone != nil {
		t.Fatalf("expected phone untouched, got %v", *captured.Phone)
	}
	if captured.TaxOffice == nil || *captured.TaxOffice != "Kadikoy" {
		t.Fatalf("expected tax office patch, got %+v", captured.TaxOffice)
	}
}
