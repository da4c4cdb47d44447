package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kurumsal-tedarikci/api/internal/platform/httpx"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

// ProductHandlers exposes the unauthenticated storefront catalog.
type ProductHandlers struct {
	catalog services.ProductService
}

// NewProductHandlers constructs a new ProductHandlers instance.
func NewProductHandlers(catalog services.ProductService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes registers the /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.catalog.ListPublicProducts(ctx, page)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(result.Items))
	for _, product := range result.Items {
		items = append(items, buildPublicProductPayload(product))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"products":        items,
		"next_page_token": strings.TrimSpace(result.NextPageToken),
	})
}

func writeProductError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductSKUTaken):
		httpx.WriteError(ctx, w, httpx.NewError("sku_taken", "sku already in use", http.StatusBadRequest))
	case errors.Is(err, services.ErrProductInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "insufficient stock for movement", http.StatusBadRequest))
	case errors.Is(err, services.ErrProductInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		writeInternalError(ctx, w, "catalog_error", "failed to process catalog request", err)
	}
}
