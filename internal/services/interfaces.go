package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/notifications"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	User               = domain.User
	MembershipType     = domain.MembershipType
	Address            = domain.Address
	Product            = domain.Product
	StockMovement      = domain.StockMovement
	MovementType       = domain.MovementType
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderTotals        = domain.OrderTotals
	OrderStatus        = domain.OrderStatus
	PaymentMethod      = domain.PaymentMethod
	ShipmentInfo       = domain.ShipmentInfo
	ShipmentStatus     = domain.ShipmentStatus
	ForwardCredential  = domain.ForwardCredential
	SystemHealthReport = domain.SystemHealthReport
)

// AuthService covers registration, credential checks, token issuance, and
// profile maintenance for both regular users and the bootstrap admin account.
type AuthService interface {
	Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error)
	Login(ctx context.Context, cmd LoginCommand) (AuthResult, error)
	AdminLogin(ctx context.Context, cmd LoginCommand) (AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	Profile(ctx context.Context, userID string) (User, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error)
}

// AddressService manages a user's address book. Every operation is scoped to
// the owning user; cross-user access surfaces as not-found.
type AddressService interface {
	ListAddresses(ctx context.Context, userID string) ([]Address, error)
	CreateAddress(ctx context.Context, userID string, input AddressInput) (Address, error)
	UpdateAddress(ctx context.Context, userID string, addressID string, input AddressInput) (Address, error)
	DeleteAddress(ctx context.Context, userID string, addressID string) error
	SetDefaultAddress(ctx context.Context, userID string, addressID string) (Address, error)
}

// ProductService covers catalog administration, the public storefront listing,
// the stock movement ledger, and the stock summary report.
type ProductService interface {
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	// DeleteProduct removes the product when hard is true; otherwise it
	// deactivates the product so the storefront stops listing it.
	DeleteProduct(ctx context.Context, productID string, hard bool) error
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter ProductListQuery) (domain.CursorPage[Product], error)
	ListPublicProducts(ctx context.Context, page Pagination) (domain.CursorPage[Product], error)
	ApplyStockMovement(ctx context.Context, cmd StockMovementCommand) (StockMovementResult, error)
	StockSummary(ctx context.Context) (StockSummaryReport, error)
}

// OrderService drives the order lifecycle from cart checkout through shipment
// tracking, plus the admin-triggered ERP synchronisation paths.
type OrderService interface {
	CreateFromCart(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	ListMyOrders(ctx context.Context, userID string, page Pagination) (domain.CursorPage[Order], error)
	ListOrders(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, orderID string, actor Actor) (Order, error)
	TransitionStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error)
	UpdateShipment(ctx context.Context, cmd UpdateShipmentCommand) (Order, error)
	// SyncToErp retries pushing an order into the ERP. Already-synced orders
	// return unchanged without an upstream call.
	SyncToErp(ctx context.Context, orderID string) (Order, error)
	// SyncCari ensures the ERP account (cari) exists for the given user and
	// returns its ERP-side identifier.
	SyncCari(ctx context.Context, userID string) (string, error)
}

// ReportingService backs the admin dashboard and user directory.
type ReportingService interface {
	Dashboard(ctx context.Context) (DashboardReport, error)
	ListUsers(ctx context.Context, query UserListQuery) (domain.CursorPage[User], error)
	GetUser(ctx context.Context, userID string) (User, error)
}

// SystemService reports aggregated dependency health for liveness probes.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// TokenIssuer signs access tokens. Satisfied by the platform token manager.
type TokenIssuer interface {
	Issue(subject, email, role string) (string, time.Time, error)
}

// ErpGateway is the outbound seam to the accounting system.
type ErpGateway interface {
	FindOrCreateAccount(ctx context.Context, customer domain.User) (string, error)
	CreateSale(ctx context.Context, order domain.Order, accountID string, forwardToken string) (string, error)
}

// Notifier delivers customer messages without blocking the request path.
// Satisfied by the notifications dispatcher.
type Notifier interface {
	EmailAsync(ctx context.Context, msg notifications.EmailMessage)
	SMSAsync(ctx context.Context, msg notifications.SMSMessage)
}

// OrderEventPublisher emits order lifecycle events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderEventMessage is the payload published on order lifecycle events.
type OrderEventMessage struct {
	Event         string    `json:"event"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	OwnerUserID   string    `json:"ownerUserId"`
	Status        string    `json:"status"`
	ErpSaleNumber string    `json:"erpSaleNumber,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Actor identifies the principal performing an operation for ownership checks.
type Actor struct {
	UserID string
	Admin  bool
}

// CanAccess reports whether the actor may read resources owned by ownerID.
func (a Actor) CanAccess(ownerID string) bool {
	return a.Admin || (a.UserID != "" && a.UserID == ownerID)
}

// Auth command DTOs ----------------------------------------------------------

type RegisterCommand struct {
	Email          string
	Password       string
	Name           string
	Phone          string
	CompanyName    string
	TaxNumber      string
	TaxOffice      string
	MembershipType MembershipType
}

type LoginCommand struct {
	Email    string
	Password string
}

// AuthResult carries the issued token alongside the authenticated user.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// UpdateProfileCommand patches mutable profile fields; nil means keep.
type UpdateProfileCommand struct {
	UserID      string
	Name        *string
	Phone       *string
	CompanyName *string
	TaxNumber   *string
	TaxOffice   *string
}

// Address command DTOs -------------------------------------------------------

type AddressInput struct {
	Title         string
	FullName      string
	Phone         string
	City          string
	District      string
	StreetAddress string
	IsDefault     bool
}

// Product command DTOs -------------------------------------------------------

type CreateProductCommand struct {
	Name         string
	SKU          string
	Price        decimal.Decimal
	CostPrice    decimal.Decimal
	InitialStock int64
	MinStock     int64
	MaxStock     int64
	Category     string
	Unit         string
}

// UpdateProductCommand patches catalog fields; nil means keep. Stock is absent
// on purpose, it changes only through movements.
type UpdateProductCommand struct {
	ProductID string
	Name      *string
	Price     *decimal.Decimal
	CostPrice *decimal.Decimal
	MinStock  *int64
	MaxStock  *int64
	Category  *string
	Unit      *string
	IsActive  *bool
}

type ProductListQuery struct {
	OnlyActive bool
	Category   string
	Pagination Pagination
}

type StockMovementCommand struct {
	ProductID   string
	Type        MovementType
	Quantity    int64
	Reason      string
	ActorUserID string
}

// StockMovementResult returns the updated product together with the ledger
// entry that was appended.
type StockMovementResult struct {
	Product  Product
	Movement StockMovement
}

// StockSummaryReport aggregates catalog stock levels for the admin report.
type StockSummaryReport struct {
	TotalProducts   int64
	ActiveProducts  int64
	TotalStockValue decimal.Decimal
	LowStock        []Product
	GeneratedAt     time.Time
}

// Order command DTOs ---------------------------------------------------------

// CartLine is one requested line at checkout; pricing comes from the catalog.
type CartLine struct {
	ProductID string
	Quantity  int64
}

type CreateOrderCommand struct {
	UserID            string
	Items             []CartLine
	ShippingAddressID string
	InvoiceAddressID  string
	PaymentMethod     PaymentMethod
	// ForwardToken is the purchaser's own bearer token, retained so a later
	// admin-triggered ERP sync can attribute the sale to them.
	ForwardToken  string
	ForwardExpiry time.Time
}

type OrderListQuery struct {
	Status       []OrderStatus
	UnsyncedOnly bool
	Pagination   Pagination
}

type TransitionOrderCommand struct {
	OrderID     string
	NewStatus   string
	ActorUserID string
}

type UpdateShipmentCommand struct {
	OrderID string
	Patch   ShipmentPatch
}

// ShipmentPatch merges into the stored shipment block; nil means keep.
type ShipmentPatch struct {
	Carrier        *string
	TrackingNumber *string
	PieceCount     *int
	Weight         *float64
	Status         *ShipmentStatus
	DeliveredAt    *time.Time
}

// Reporting DTOs -------------------------------------------------------------

type UserListQuery struct {
	Role           string
	MembershipType string
	Pagination     Pagination
}

// DashboardReport is the admin dashboard snapshot. DailyOrders holds the
// trailing seven calendar days, oldest first.
type DashboardReport struct {
	TotalUsers    int64
	TotalOrders   int64
	TodayOrders   int64
	PendingOrders int64
	SyncedRevenue decimal.Decimal
	DailyOrders   []DailyOrderCount
	GeneratedAt   time.Time
}

// DailyOrderCount is one histogram bucket keyed by local calendar day.
type DailyOrderCount struct {
	Date  string
	Count int64
}
