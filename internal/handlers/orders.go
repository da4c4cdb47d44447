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

// OrderHandlers exposes checkout and order tracking for authenticated users,
// plus the admin-only list and lifecycle endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	userAuth := func(next http.Handler) http.Handler { return next }
	adminAuth := userAuth
	if h.authn != nil {
		userAuth = h.authn.RequireAuth()
		adminAuth = h.authn.RequireAuth(auth.RoleAdmin)
	}

	r.With(userAuth).Post("/", h.create)
	r.With(userAuth).Get("/my", h.listMine)
	r.With(userAuth).Get("/{orderID}", h.get)

	r.With(adminAuth).Get("/", h.listAll)
	r.With(adminAuth).Put("/{orderID}/status", h.updateStatus)
	r.With(adminAuth).Put("/{orderID}/shipment", h.updateShipment)
}

func (h *OrderHandlers) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

type createOrderRequest struct {
	Items             []createOrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID string            `json:"shipping_address_id" validate:"required"`
	InvoiceAddressID  string            `json:"invoice_address_id"`
	PaymentMethod     string            `json:"payment_method" validate:"required,oneof=card transfer open_account"`
}

type createOrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
}

func (h *OrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req createOrderRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	lines := make([]services.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, services.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	// The caller's own bearer token is retained on the order so a later
	// admin-triggered ERP sync still acts on their behalf.
	order, err := h.orders.CreateFromCart(ctx, services.CreateOrderCommand{
		UserID:            identity.UID,
		Items:             lines,
		ShippingAddressID: req.ShippingAddressID,
		InvoiceAddressID:  req.InvoiceAddressID,
		PaymentMethod:     domain.PaymentMethod(req.PaymentMethod),
		ForwardToken:      identity.RawToken,
		ForwardExpiry:     identity.ExpiresAt,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order_id":     order.ID,
		"order_number": order.Number,
		"order":        buildOrderPayload(order),
	})
}

func (h *OrderHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	page, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.orders.ListMyOrders(ctx, identity.UID, page)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeOrderList(w, result)
}

func (h *OrderHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	_, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	page, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.OrderListQuery{Pagination: page}
	for _, raw := range r.URL.Query()["status"] {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			status := domain.OrderStatus(value)
			if !domain.ValidOrderStatus(status) {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown order status "+value, http.StatusBadRequest))
				return
			}
			query.Status = append(query.Status, status)
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("unsynced")); raw != "" {
		query.UnsyncedOnly = raw == "true" || raw == "1"
	}

	result, err := h.orders.ListOrders(ctx, query)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeOrderList(w, result)
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID, services.Actor{
		UserID: identity.UID,
		Admin:  identity.HasRole(auth.RoleAdmin),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateOrderStatusRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.TransitionOrderCommand{
		OrderID:     orderID,
		NewStatus:   req.Status,
		ActorUserID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

type updateShipmentRequest struct {
	Carrier        *string    `json:"carrier"`
	TrackingNumber *string    `json:"tracking_number"`
	PieceCount     *int       `json:"piece_count" validate:"omitempty,gte=0"`
	Weight         *float64   `json:"weight" validate:"omitempty,gte=0"`
	Status         *string    `json:"status" validate:"omitempty,oneof=preparing handed_to_carrier in_transit out_for_delivery delivered"`
	DeliveredAt    *time.Time `json:"delivered_at"`
}

func (h *OrderHandlers) updateShipment(w http.ResponseWriter, r *http.Request) {
	_, ok := h.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateShipmentRequest
	if err := decodeValid(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	patch := services.ShipmentPatch{
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
		PieceCount:     req.PieceCount,
		Weight:         req.Weight,
		DeliveredAt:    req.DeliveredAt,
	}
	if req.Status != nil {
		status := domain.ShipmentStatus(*req.Status)
		patch.Status = &status
	}

	order, err := h.orders.UpdateShipment(ctx, services.UpdateShipmentCommand{
		OrderID: orderID,
		Patch:   patch,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

func writeOrderList(w http.ResponseWriter, page domain.CursorPage[domain.Order]) {
	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"orders":          items,
		"next_page_token": strings.TrimSpace(page.NextPageToken),
	})
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "order belongs to another user", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderCredentialExpired):
		httpx.WriteError(ctx, w, httpx.NewError("credential_expired", "forwarding credential expired, the customer must sign in again", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderErpUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("erp_unavailable", err.Error(), http.StatusBadGateway))
	case errors.Is(err, services.ErrOrderUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		writeInternalError(ctx, w, "order_error", "failed to process order request", err)
	}
}
