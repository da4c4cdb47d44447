package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/platform/auth"
	"github.com/kurumsal-tedarikci/api/internal/platform/httpx"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

// AdminHandlers exposes catalog administration, the ERP sync triggers, the
// dashboard, and the user directory. Every route requires the admin role.
type AdminHandlers struct {
	authn     *auth.Authenticator
	catalog   services.ProductService
	orders    services.OrderService
	reporting services.ReportingService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(authn *auth.Authenticator, catalog services.ProductService, orders services.OrderService, reporting services.ReportingService) *AdminHandlers {
	return &AdminHandlers{
		authn:     authn,
		catalog:   catalog,
		orders:    orders,
		reporting: reporting,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth(auth.RoleAdmin))
	}

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/report", h.stockReport)
		r.Route("/{productID}", func(r chi.Router) {
			r.Get("/", h.getProduct)
			r.Put("/", h.updateProduct)
			r.Delete("/", h.deleteProduct)
			r.Post("/stock", h.applyStockMovement)
		})
	})

	r.Post("/orders/sync", h.syncOrder)
	r.Post("/sync-cari", h.syncCari)
	r.Get("/dashboard", h.dashboard)
	r.Get("/users", h.listUsers)
	r.Get("/users/{userID}", h.getUser)
}

type createProductRequest struct {
	Name         string          `json:"name" validate:"required"`
	SKU          string          `json:"sku" validate:"required"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	InitialStock int64           `json:"initial_stock" validate:"gte=0"`
	MinStock     int64           `json:"min_stock" validate:"gte=0"`
	MaxStock     int64           `json:"max_stock" validate:"gte=0"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createProductRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(ctx, services.CreateProductCommand{
		Name:         req.Name,
		SKU:          req.SKU,
		Price:        req.Price,
		CostPrice:    req.CostPrice,
		InitialStock: req.InitialStock,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		Category:     req.Category,
		Unit:         req.Unit,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

type updateProductRequest struct {
	Name      *string          `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	CostPrice *decimal.Decimal `json:"cost_price"`
	MinStock  *int64           `json:"min_stock" validate:"omitempty,gte=0"`
	MaxStock  *int64           `json:"max_stock" validate:"omitempty,gte=0"`
	Category  *string          `json:"category"`
	Unit      *string          `json:"unit"`
	IsActive  *bool            `json:"is_active"`
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	var req updateProductRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, services.UpdateProductCommand{
		ProductID: productID,
		Name:      req.Name,
		Price:     req.Price,
		CostPrice: req.CostPrice,
		MinStock:  req.MinStock,
		MaxStock:  req.MaxStock,
		Category:  req.Category,
		Unit:      req.Unit,
		IsActive:  req.IsActive,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	hard := strings.TrimSpace(r.URL.Query().Get("hard")) == "true"
	if err := h.catalog.DeleteProduct(ctx, productID, hard); err != nil {
		writeProductError(ctx, w, err)
		return
	}

	if hard {
		httpx.WriteMessage(w, http.StatusOK, "product deleted")
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "product deactivated")
}

func (h *AdminHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	payload := buildProductPayload(product)
	movements := make([]movementPayload, 0, len(product.Movements))
	for _, movement := range product.Movements {
		movements = append(movements, buildMovementPayload(movement))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"product":   payload,
		"movements": movements,
	})
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
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

	query := services.ProductListQuery{
		OnlyActive: strings.TrimSpace(r.URL.Query().Get("active")) == "true",
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		Pagination: page,
	}

	result, err := h.catalog.ListProducts(ctx, query)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(result.Items))
	for _, product := range result.Items {
		items = append(items, buildProductPayload(product))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"products":        items,
		"next_page_token": strings.TrimSpace(result.NextPageToken),
	})
}

type stockMovementRequest struct {
	Type string `json:"type" validate:"required,oneof=in out adjustment"`
	// Quantity zero is a legal adjustment (stock reset), so range checks
	// stay in the service.
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

func (h *AdminHandlers) applyStockMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, _ := auth.IdentityFromContext(ctx)

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	var req stockMovementRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cmd := services.StockMovementCommand{
		ProductID: productID,
		Type:      domain.MovementType(req.Type),
		Quantity:  req.Quantity,
		Reason:    req.Reason,
	}
	if identity != nil {
		cmd.ActorUserID = identity.UID
	}

	result, err := h.catalog.ApplyStockMovement(ctx, cmd)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"product":  buildProductPayload(result.Product),
		"movement": buildMovementPayload(result.Movement),
	})
}

func (h *AdminHandlers) stockReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	report, err := h.catalog.StockSummary(ctx)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	lowStock := make([]productPayload, 0, len(report.LowStock))
	for _, product := range report.LowStock {
		lowStock = append(lowStock, buildProductPayload(product))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total_products":    report.TotalProducts,
		"active_products":   report.ActiveProducts,
		"total_stock_value": report.TotalStockValue,
		"low_stock":         lowStock,
		"generated_at":      formatTime(report.GeneratedAt),
	})
}

type syncOrderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

func (h *AdminHandlers) syncOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req syncOrderRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	order, err := h.orders.SyncToErp(ctx, req.OrderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"sale_number": order.ErpSaleNumber,
		"order":       buildOrderPayload(order),
	})
}

type syncCariRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *AdminHandlers) syncCari(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req syncCariRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cariID, err := h.orders.SyncCari(ctx, req.UserID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cari_id": cariID})
}

func (h *AdminHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reporting == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reporting_service_unavailable", "reporting service unavailable", http.StatusServiceUnavailable))
		return
	}

	report, err := h.reporting.Dashboard(ctx)
	if err != nil {
		writeReportingError(ctx, w, err)
		return
	}

	daily := make([]map[string]any, 0, len(report.DailyOrders))
	for _, bucket := range report.DailyOrders {
		daily = append(daily, map[string]any{
			"date":  bucket.Date,
			"count": bucket.Count,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total_users":    report.TotalUsers,
		"total_orders":   report.TotalOrders,
		"today_orders":   report.TodayOrders,
		"pending_orders": report.PendingOrders,
		"synced_revenue": report.SyncedRevenue,
		"daily_orders":   daily,
		"generated_at":   formatTime(report.GeneratedAt),
	})
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reporting == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reporting_service_unavailable", "reporting service unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.reporting.ListUsers(ctx, services.UserListQuery{
		Role:           strings.TrimSpace(r.URL.Query().Get("role")),
		MembershipType: strings.TrimSpace(r.URL.Query().Get("membership_type")),
		Pagination:     page,
	})
	if err != nil {
		writeReportingError(ctx, w, err)
		return
	}

	items := make([]userPayload, 0, len(result.Items))
	for _, user := range result.Items {
		items = append(items, buildUserPayload(user))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"users":           items,
		"next_page_token": strings.TrimSpace(result.NextPageToken),
	})
}

func (h *AdminHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reporting == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reporting_service_unavailable", "reporting service unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user id is required", http.StatusBadRequest))
		return
	}

	user, err := h.reporting.GetUser(ctx, userID)
	if err != nil {
		writeReportingError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": buildUserPayload(user)})
}

func writeReportingError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReportingUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReportingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		writeInternalError(ctx, w, "reporting_error", "failed to process reporting request", err)
	}
}
