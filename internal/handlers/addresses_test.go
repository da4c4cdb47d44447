package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kurumsal-tedarikci/api/internal/platform/auth"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

func newAddressRouter(h *AddressHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/", h.Routes)
	return router
}

func withUser(req *http.Request, uid string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid}))
}

func TestAddressHandlersList(t *testing.T) {
	handler := NewAddressHandlers(nil, &stubAddressService{
		listFunc: func(ctx context.Context, userID string) ([]services.Address, error) {
			if userID != "usr_1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return []services.Address{
				{ID: "adr_1", Title: "Depo", FullName: "Ahmet", City: "Istanbul", StreetAddress: "Sanayi Cd. 5", IsDefault: true},
			}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), "usr_1")
	rr := httptest.NewRecorder()
	newAddressRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var payload struct {
		Addresses []addressPayload `json:"addresses"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if len(payload.Addresses) != 1 || payload.Addresses[0].ID != "adr_1" {
		t.Fatalf("unexpected addresses %+v", payload.Addresses)
	}
	if !payload.Addresses[0].IsDefault {
		t.Fatalf("expected default flag preserved")
	}
}

func TestAddressHandlersCreate(t *testing.T) {
	var captured services.AddressInput
	handler := NewAddressHandlers(nil, &stubAddressService{
		createFunc: func(ctx context.Context, userID string, input services.AddressInput) (services.Address, error) {
			captured = input
			return services.Address{ID: "adr_2", Title: input.Title, FullName: input.FullName, City: input.City, StreetAddress: input.StreetAddress}, nil
		},
	})

	body := []byte(`{"title":"Merkez","full_name":"Ahmet Y","phone":"05551112233","city":"Ankara","district":"Cankaya","street_address":"Ataturk Blv. 1","is_default":true}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), "usr_1")
	rr := httptest.NewRecorder()
	newAddressRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Title != "Merkez" || !captured.IsDefault {
		t.Fatalf("unexpected input %+v", captured)
	}
	if loc := rr.Header().Get("Location"); loc != "/adr_2" {
		t.Fatalf("unexpected location header %q", loc)
	}
}

func TestAddressHandlersCreateValidation(t *testing.T) {
	handler := NewAddressHandlers(nil, &stubAddressService{})

	body := []byte(`{"title":"Merkez"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), "usr_1")
	rr := httptest.NewRecorder()
	newAddressRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAddressHandlersUpdateNotFound(t *testing.T) {
	handler := NewAddressHandlers(nil, &stubAddressService{
		updateFunc: func(ctx context.Context, userID, addressID string, input services.AddressInput) (services.Address, error) {
			return services.Address{}, services.ErrAddressNotFound
		},
	})

	body := []byte(`{"title":"Merkez","full_name":"Ahmet","city":"Ankara","street_address":"Blv. 1"}`)
	req := withUser(httptest.NewRequest(http.MethodPut, "/adr_404", bytes.NewReader(body)), "usr_1")
	rr := httptest.NewRecorder()
	newAddressRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAddressHandlersDelete(t *testing.T) {
	var deleted string
	handler := NewAddressHandlers(nil, &stubAddressService{
		deleteFunc: func(ctx context.Context, userID, addressID string) error {
			deleted = addressID
			return nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodDelete, "/adr_1", nil), "usr_1")
	rr := httptest.NewRecorder()
	newAddressRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if deleted != "adr_1" {
		t.Fatalf("expected adr_1 deleted, got %q", deleted)
	}
}

func TestAddressHandlersSetDefault(t *testing.T) {
	handler := NewAddressHandlers(nil, &stubAddressService{
		setDefaultFunc: func(ctx context.Context, userID, addressID string) (services.Address, error) {
			return services.Address{ID: addressID, Title: "Depo", FullName: "Ahmet", City: "Istanbul", StreetAddress: "Sanayi Cd. 5", IsDefault: true}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodPut, "/adr_1/default", nil), "usr_1")
	rr := httptest.NewRecorder()
	newAddressRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var payload struct {
		Address addressPayload `json:"address"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if !payload.Address.IsDefault {
		t.Fatalf("expected default flag set, got %+v", payload.Address)
	}
}

func TestAddressHandlersRequireIdentity(t *testing.T) {
	handler := NewAddressHandlers(nil, &stubAddressService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	newAddressRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}
