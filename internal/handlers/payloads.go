package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/kurumsal-tedarikci/api/internal/services"
)

type userPayload struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	CompanyName    string `json:"company_name,omitempty"`
	TaxNumber      string `json:"tax_number,omitempty"`
	TaxOffice      string `json:"tax_office,omitempty"`
	Role           string `json:"role"`
	MembershipType string `json:"membership_type"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

func buildUserPayload(u services.User) userPayload {
	return userPayload{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Phone:          u.Phone,
		CompanyName:    u.CompanyName,
		TaxNumber:      u.TaxNumber,
		TaxOffice:      u.TaxOffice,
		Role:           u.Role,
		MembershipType: string(u.MembershipType),
		CreatedAt:      formatTime(u.CreatedAt),
		UpdatedAt:      formatTime(u.UpdatedAt),
	}
}

type addressPayload struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone,omitempty"`
	City          string `json:"city"`
	District      string `json:"district,omitempty"`
	StreetAddress string `json:"street_address"`
	IsDefault     bool   `json:"is_default"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func buildAddressPayload(addr services.Address) addressPayload {
	return addressPayload{
		ID:            addr.ID,
		Title:         addr.Title,
		FullName:      addr.FullName,
		Phone:         addr.Phone,
		City:          addr.City,
		District:      addr.District,
		StreetAddress: addr.StreetAddress,
		IsDefault:     addr.IsDefault,
		CreatedAt:     formatTime(addr.CreatedAt),
		UpdatedAt:     formatTime(addr.UpdatedAt),
	}
}

type productPayload struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	SKU       string           `json:"sku"`
	Price     decimal.Decimal  `json:"price"`
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`
	Stock     int64            `json:"stock"`
	MinStock  int64            `json:"min_stock"`
	MaxStock  int64            `json:"max_stock,omitempty"`
	Category  string           `json:"category,omitempty"`
	Unit      string           `json:"unit,omitempty"`
	IsActive  bool             `json:"is_active"`
	CreatedAt string           `json:"created_at,omitempty"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

// buildProductPayload renders a catalog entry for admin consumers, cost
// included.
func buildProductPayload(p services.Product) productPayload {
	payload := buildPublicProductPayload(p)
	cost := p.CostPrice
	payload.CostPrice = &cost
	return payload
}

// buildPublicProductPayload renders a catalog entry for the storefront. Cost
// never leaves the admin surface.
func buildPublicProductPayload(p services.Product) productPayload {
	return productPayload{
		ID:        p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Price:     p.Price,
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		MaxStock:  p.MaxStock,
		Category:  p.Category,
		Unit:      p.Unit,
		IsActive:  p.IsActive,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

type movementPayload struct {
	Type        string `json:"type"`
	Quantity    int64  `json:"quantity"`
	StockBefore int64  `json:"stock_before"`
	StockAfter  int64  `json:"stock_after"`
	Reason      string `json:"reason,omitempty"`
	ActorUserID string `json:"actor_user_id,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}

func buildMovementPayload(m services.StockMovement) movementPayload {
	return movementPayload{
		Type:        string(m.Type),
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		ActorUserID: m.ActorUserID,
		OccurredAt:  formatTime(m.OccurredAt),
	}
}

type orderItemPayload struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type shipmentPayload struct {
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	PieceCount     int    `json:"piece_count,omitempty"`
	Weight         float64 `json:"weight,omitempty"`
	Status         string `json:"status,omitempty"`
	ShippedAt      string `json:"shipped_at,omitempty"`
	DeliveredAt    string `json:"delivered_at,omitempty"`
}

// orderPayload is the full order rendering. The forwarding credential stays
// server side and is never serialised.
type orderPayload struct {
	ID              string           `json:"id"`
	Number          string           `json:"number"`
	OwnerUserID     string           `json:"owner_user_id"`
	CustomerEmail   string           `json:"customer_email"`
	Items           []orderItemPayload `json:"items"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Tax             decimal.Decimal  `json:"tax"`
	Total           decimal.Decimal  `json:"total"`
	PaymentMethod   string           `json:"payment_method"`
	Status          string           `json:"status"`
	ShippingAddress addressPayload   `json:"shipping_address"`
	InvoiceAddress  addressPayload   `json:"invoice_address"`
	ErpSync         bool             `json:"erp_sync"`
	ErpSaleNumber   string           `json:"erp_sale_number,omitempty"`
	LastErpError    string           `json:"last_erp_error,omitempty"`
	Shipment        *shipmentPayload `json:"shipment,omitempty"`
	CreatedAt       string           `json:"created_at,omitempty"`
	UpdatedAt       string           `json:"updated_at,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}

	payload := orderPayload{
		ID:              order.ID,
		Number:          order.Number,
		OwnerUserID:     order.OwnerUserID,
		CustomerEmail:   order.CustomerEmail,
		Items:           items,
		Subtotal:        order.Totals.Subtotal,
		Tax:             order.Totals.Tax,
		Total:           order.Totals.Total,
		PaymentMethod:   string(order.PaymentMethod),
		Status:          string(order.Status),
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		InvoiceAddress:  buildAddressPayload(order.InvoiceAddress),
		ErpSync:         order.ErpSync,
		ErpSaleNumber:   order.ErpSaleNumber,
		LastErpError:    order.LastErpError,
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
	}

	if order.Shipment != (services.ShipmentInfo{}) {
		payload.Shipment = &shipmentPayload{
			Carrier:        order.Shipment.Carrier,
			TrackingNumber: order.Shipment.TrackingNumber,
			PieceCount:     order.Shipment.PieceCount,
			Weight:         order.Shipment.Weight,
			Status:         string(order.Shipment.Status),
			ShippedAt:      formatTimePtr(order.Shipment.ShippedAt),
			DeliveredAt:    formatTimePtr(order.Shipment.DeliveredAt),
		}
	}

	return payload
}

type orderSummaryPayload struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	OwnerUserID   string          `json:"owner_user_id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	PaymentMethod string          `json:"payment_method"`
	ErpSync       bool            `json:"erp_sync"`
	ErpSaleNumber string          `json:"erp_sale_number,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:            order.ID,
		Number:        order.Number,
		OwnerUserID:   order.OwnerUserID,
		Status:        string(order.Status),
		Total:         order.Totals.Total,
		ItemCount:     len(order.Items),
		PaymentMethod: string(order.PaymentMethod),
		ErpSync:       order.ErpSync,
		ErpSaleNumber: order.ErpSaleNumber,
		CreatedAt:     formatTime(order.CreatedAt),
	}
}
