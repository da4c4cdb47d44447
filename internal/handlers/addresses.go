package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kurumsal-tedarikci/api/internal/platform/auth"
	"github.com/kurumsal-tedarikci/api/internal/platform/httpx"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

// AddressHandlers exposes the authenticated address book endpoints.
type AddressHandlers struct {
	authn     *auth.Authenticator
	addresses services.AddressService
}

// NewAddressHandlers constructs a new AddressHandlers instance.
func NewAddressHandlers(authn *auth.Authenticator, addresses services.AddressService) *AddressHandlers {
	return &AddressHandlers{
		authn:     authn,
		addresses: addresses,
	}
}

// Routes registers the /addresses endpoints.
func (h *AddressHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{addressID}", func(r chi.Router) {
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Put("/default", h.setDefault)
	})
}

func (h *AddressHandlers) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.addresses == nil {
		httpx.WriteError(ctx, w, httpx.NewError("address_service_unavailable", "address service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *AddressHandlers) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	addresses, err := h.addresses.ListAddresses(ctx, identity.UID)
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}

	items := make([]addressPayload, 0, len(addresses))
	for _, addr := range addresses {
		items = append(items, buildAddressPayload(addr))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"addresses": items})
}

type addressRequest struct {
	Title         string `json:"title" validate:"required"`
	FullName      string `json:"full_name" validate:"required"`
	Phone         string `json:"phone"`
	City          string `json:"city" validate:"required"`
	District      string `json:"district"`
	StreetAddress string `json:"street_address" validate:"required"`
	IsDefault     bool   `json:"is_default"`
}

func (req addressRequest) toInput() services.AddressInput {
	return services.AddressInput{
		Title:         req.Title,
		FullName:      req.FullName,
		Phone:         req.Phone,
		City:          req.City,
		District:      req.District,
		StreetAddress: req.StreetAddress,
		IsDefault:     req.IsDefault,
	}
}

func (h *AddressHandlers) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req addressRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	saved, err := h.addresses.CreateAddress(ctx, identity.UID, req.toInput())
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+saved.ID)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"address": buildAddressPayload(saved)})
}

func (h *AddressHandlers) update(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if addressID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "address id is required", http.StatusBadRequest))
		return
	}

	var req addressRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	saved, err := h.addresses.UpdateAddress(ctx, identity.UID, addressID, req.toInput())
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"address": buildAddressPayload(saved)})
}

func (h *AddressHandlers) delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if addressID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "address id is required", http.StatusBadRequest))
		return
	}

	if err := h.addresses.DeleteAddress(ctx, identity.UID, addressID); err != nil {
		writeAddressError(ctx, w, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "address deleted")
}

func (h *AddressHandlers) setDefault(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if addressID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "address id is required", http.StatusBadRequest))
		return
	}

	saved, err := h.addresses.SetDefaultAddress(ctx, identity.UID, addressID)
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"address": buildAddressPayload(saved)})
}

func writeAddressError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAddressNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("address_not_found", "address not found", http.StatusNotFound))
	case errors.Is(err, services.ErrAddressInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_address", err.Error(), http.StatusBadRequest))
	default:
		writeInternalError(ctx, w, "address_error", "failed to process address request", err)
	}
}
