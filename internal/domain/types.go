package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role labels carried in access-token claims. Elevation to admin happens only
// at issuance time; there is no dynamic revocation.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// MembershipType distinguishes retail-style accounts from corporate buyers.
type MembershipType string

const (
	MembershipIndividual MembershipType = "individual"
	MembershipCorporate  MembershipType = "corporate"
)

// User is the identity record. PasswordHash is a bcrypt digest and never
// leaves the repository layer unredacted.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Name           string
	Phone          string
	CompanyName    string
	TaxNumber      string
	TaxOffice      string
	Role           string
	MembershipType MembershipType
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Address is an entry of a user's address book. At most one address per user
// carries IsDefault=true; the repository enforces that inside the write
// transaction.
type Address struct {
	ID            string
	Title         string
	FullName      string
	Phone         string
	City          string
	District      string
	StreetAddress string
	IsDefault     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MovementType enumerates stock ledger entry kinds.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement is one append-only ledger entry. StockAfter always equals the
// product's stock immediately after the movement was applied.
type StockMovement struct {
	Type        MovementType
	Quantity    int64
	StockBefore int64
	StockAfter  int64
	Reason      string
	ActorUserID string
	OccurredAt  time.Time
}

// Product is a catalog entry. Stock changes only through the movement
// operation, never by direct field edits.
type Product struct {
	ID        string
	Name      string
	SKU       string
	Price     decimal.Decimal
	CostPrice decimal.Decimal
	Stock     int64
	MinStock  int64
	MaxStock  int64
	Category  string
	Unit      string
	IsActive  bool
	Movements []StockMovement
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LowOnStock reports whether the product has fallen to or below its reorder
// threshold.
func (p Product) LowOnStock() bool {
	return p.Stock <= p.MinStock
}

// PaymentMethod is the closed set of settlement options offered at checkout.
type PaymentMethod string

const (
	PaymentCard        PaymentMethod = "card"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentOpenAccount PaymentMethod = "open_account"
)

// ValidPaymentMethod reports whether the supplied value belongs to the enum.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCard, PaymentTransfer, PaymentOpenAccount:
		return true
	}
	return false
}

// OrderStatus is the closed order lifecycle enumeration.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusPreparing        OrderStatus = "preparing"
	OrderStatusShippedToCarrier OrderStatus = "shipped_to_carrier"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether the supplied value belongs to the enum.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusShippedToCarrier,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderItem is one line of an order. UnitPrice and LineTotal are captured at
// order time and never re-read from the catalog.
type OrderItem struct {
	ProductID string
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int64
	LineTotal decimal.Decimal
}

// OrderTotals carries the computed money fields of an order.
type OrderTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ShipmentStatus tracks the carrier-side progress of an order, independent of
// the order lifecycle status.
type ShipmentStatus string

const (
	ShipmentPreparing       ShipmentStatus = "preparing"
	ShipmentHandedToCarrier ShipmentStatus = "handed_to_carrier"
	ShipmentInTransit       ShipmentStatus = "in_transit"
	ShipmentOutForDelivery  ShipmentStatus = "out_for_delivery"
	ShipmentDelivered       ShipmentStatus = "delivered"
)

// ShipmentInfo is embedded in an order once carrier handling begins.
type ShipmentInfo struct {
	Carrier        string
	TrackingNumber string
	PieceCount     int
	Weight         float64
	Status         ShipmentStatus
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
}

// ForwardCredential is the purchasing user's own bearer token, retained so an
// admin-triggered ERP sync can attribute the sale to the original principal.
type ForwardCredential struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the credential can no longer be forwarded.
func (c ForwardCredential) Expired(now time.Time) bool {
	if c.Token == "" {
		return true
	}
	return !c.ExpiresAt.After(now)
}

// Order is the persisted order aggregate. Address fields are snapshots copied
// at creation time; later edits to the owner's address book never alter them.
type Order struct {
	ID              string
	Number          string
	OwnerUserID     string
	CustomerEmail   string
	Items           []OrderItem
	Totals          OrderTotals
	PaymentMethod   PaymentMethod
	Status          OrderStatus
	ShippingAddress Address
	InvoiceAddress  Address
	ErpSync         bool
	ErpSaleNumber   string
	ErpForward      ForwardCredential
	LastErpError    string
	Shipment        ShipmentInfo
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CursorPage wraps a page of results together with the opaque token that
// fetches the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Pagination carries page-size and cursor inputs for list queries.
type Pagination struct {
	PageSize  int
	PageToken string
}
