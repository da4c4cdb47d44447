package repositories

import (
	"context"
	"time"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Users() UserRepository
	Addresses() AddressRepository
	Products() ProductRepository
	Orders() OrderRepository
	Counters() CounterRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository stores user accounts and supports lookup by credential email.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context, filter UserListFilter) (domain.CursorPage[domain.User], error)
	Count(ctx context.Context) (int64, error)
}

// AddressRepository stores delivery and invoice addresses underneath a user document.
type AddressRepository interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Get(ctx context.Context, userID string, addressID string) (domain.Address, error)
	Upsert(ctx context.Context, userID string, addr domain.Address) (domain.Address, error)
	Delete(ctx context.Context, userID string, addressID string) error
	// SetDefault marks the given address as the single default for the user,
	// clearing the flag on every sibling inside one transaction.
	SetDefault(ctx context.Context, userID string, addressID string, now time.Time) (domain.Address, error)
}

// ProductRepository persists products together with their embedded stock movement ledger.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	Count(ctx context.Context) (int64, error)
	// ApplyMovement adjusts the stock level and appends a ledger entry in a single
	// transaction. The movement's StockBefore/StockAfter fields are stamped from
	// the stored document; a movement that would drive stock negative fails with
	// an insufficient-stock error.
	ApplyMovement(ctx context.Context, productID string, movement domain.StockMovement) (domain.Product, error)
}

// OrderRepository persists order headers and provides query helpers for users and admins.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error)
	// ListCreatedSince returns orders created at or after the cutoff, oldest first.
	// Used for trailing-window reporting where bucketing happens in the service.
	ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Order, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// Filter DTOs shared across repositories ------------------------------------

type UserListFilter struct {
	Role           string
	MembershipType string
	Pagination     domain.Pagination
}

type ProductListFilter struct {
	OnlyActive bool
	Category   string
	Pagination domain.Pagination
}

type OrderListFilter struct {
	OwnerUserID  string
	Status       []domain.OrderStatus
	ErpSync      *bool
	CreatedAfter *time.Time
	Pagination   domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
