package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

func newProductRouter(h *ProductHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/", h.Routes)
	return router
}

func TestProductHandlersListHidesCost(t *testing.T) {
	handler := NewProductHandlers(&stubProductService{
		listPublicFunc: func(ctx context.Context, page services.Pagination) (domain.CursorPage[services.Product], error) {
			return domain.CursorPage[services.Product]{
				Items: []services.Product{
					{ID: "prd_1", Name: "Widget", SKU: "WID-001", Price: decimal.NewFromInt(100), Stock: 5, IsActive: true},
				},
				NextPageToken: "tok",
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	newProductRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var payload struct {
		Products      []map[string]any `json:"products"`
		NextPageToken string           `json:"next_page_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON response: %v", err)
	}
	if len(payload.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(payload.Products))
	}
	if _, ok := payload.Products[0]["cost_price"]; ok {
		t.Fatalf("cost_price must not appear on the public listing")
	}
	if payload.Products[0]["sku"] != "WID-001" {
		t.Fatalf("unexpected sku %v", payload.Products[0]["sku"])
	}
	if payload.NextPageToken != "tok" {
		t.Fatalf("unexpected page token %q", payload.NextPageToken)
	}
}

func TestProductHandlersListPagination(t *testing.T) {
	var captured services.Pagination
	handler := NewProductHandlers(&stubProductService{
		listPublicFunc: func(ctx context.Context, page services.Pagination) (domain.CursorPage[services.Product], error) {
			captured = page
			return domain.CursorPage[services.Product]{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/?page_size=500&page_token=abc", nil)
	rr := httptest.NewRecorder()
	newProductRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.PageSize != maxPageSize {
		t.Fatalf("expected page size clamped to %d, got %d", maxPageSize, captured.PageSize)
	}
	if captured.PageToken != "abc" {
		t.Fatalf("unexpected page token %q", captured.PageToken)
	}
}

func TestProductHandlersListRejectsBadPageSize(t *testing.T) {
	handler := NewProductHandlers(&stubProductService{})

	req := httptest.NewRequest(http.MethodGet, "/?page_size=abc", nil)
	rr := httptest.NewRecorder()
	newProductRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
