package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/platform/auth"
	"github.com/kurumsal-tedarikci/api/internal/platform/httpx"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

// AuthHandlers exposes the credential endpoints and the authenticated profile
// surface. The credential endpoints share a per-client rate limit.
type AuthHandlers struct {
	authn   *auth.Authenticator
	service services.AuthService
	limiter loginThrottle
}

// AuthOption customises AuthHandlers construction.
type AuthOption func(*AuthHandlers)

// WithAuthRateLimiter throttles the credential endpoints with the provided limiter.
func WithAuthRateLimiter(limiter loginThrottle) AuthOption {
	return func(h *AuthHandlers) {
		h.limiter = limiter
	}
}

// WithAuthRateLimit throttles the credential endpoints to limit requests per
// window per client address. Non-positive values disable throttling.
func WithAuthRateLimit(limit int, window time.Duration) AuthOption {
	return func(h *AuthHandlers) {
		h.limiter = newLoginThrottle(limit, window, nil)
	}
}

// NewAuthHandlers constructs a new AuthHandlers instance.
func NewAuthHandlers(authn *auth.Authenticator, service services.AuthService, opts ...AuthOption) *AuthHandlers {
	h := &AuthHandlers{
		authn:   authn,
		service: service,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/admin-login", h.adminLogin)
	r.Post("/forgot-password", h.forgotPassword)

	r.Group(func(pr chi.Router) {
		if h.authn != nil {
			pr.Use(h.authn.RequireAuth())
		}
		pr.Get("/profile", h.profile)
		pr.Put("/profile", h.updateProfile)
	})
}

func (h *AuthHandlers) throttle(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	if h.limiter.Allow(rateKey(r)) {
		return true
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests, slow down", http.StatusTooManyRequests))
	return false
}

type registerRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Name           string `json:"name" validate:"required"`
	Phone          string `json:"phone"`
	CompanyName    string `json:"company_name"`
	TaxNumber      string `json:"tax_number"`
	TaxOffice      string `json:"tax_office"`
	MembershipType string `json:"membership_type" validate:"omitempty,oneof=individual corporate"`
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.throttle(w, r) {
		return
	}

	var req registerRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	result, err := h.service.Register(ctx, services.RegisterCommand{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Phone:          req.Phone,
		CompanyName:    req.CompanyName,
		TaxNumber:      req.TaxNumber,
		TaxOffice:      req.TaxOffice,
		MembershipType: domain.MembershipType(strings.TrimSpace(req.MembershipType)),
	})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	writeAuthResult(w, result)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.throttle(w, r) {
		return
	}

	var req loginRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	result, err := h.service.Login(ctx, services.LoginCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	writeAuthResult(w, result)
}

func (h *AuthHandlers) adminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.throttle(w, r) {
		return
	}

	var req loginRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	result, err := h.service.AdminLogin(ctx, services.LoginCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      result.Token,
		"expires_at": formatTime(result.ExpiresAt),
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.throttle(w, r) {
		return
	}

	var req forgotPasswordRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	if err := h.service.ForgotPassword(ctx, req.Email); err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "if the account exists, a temporary password has been sent")
}

func (h *AuthHandlers) profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	user, err := h.service.Profile(ctx, identity.UID)
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": buildUserPayload(user)})
}

type updateProfileRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	CompanyName *string `json:"company_name"`
	TaxNumber   *string `json:"tax_number"`
	TaxOffice   *string `json:"tax_office"`
}

func (h *AuthHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		httpx.WriteError(ctx, w, httpx.NewError("auth_service_unavailable", "auth service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req updateProfileRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	user, err := h.service.UpdateProfile(ctx, services.UpdateProfileCommand{
		UserID:      identity.UID,
		Name:        req.Name,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
		TaxNumber:   req.TaxNumber,
		TaxOffice:   req.TaxOffice,
	})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": buildUserPayload(user)})
}

func writeAuthResult(w http.ResponseWriter, result services.AuthResult) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      result.Token,
		"expires_at": formatTime(result.ExpiresAt),
		"user":       buildUserPayload(result.User),
	})
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAuthEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("email_taken", "email already registered", http.StatusBadRequest))
	case errors.Is(err, services.ErrAuthInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "email or password is incorrect", http.StatusBadRequest))
	case errors.Is(err, services.ErrAuthInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAuthUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	default:
		writeInternalError(ctx, w, "auth_error", "failed to process authentication request", err)
	}
}
