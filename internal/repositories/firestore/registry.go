package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/kurumsal-tedarikci/api/internal/platform/firestore"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract so wiring stays in one place.
type Registry struct {
	provider  *pfirestore.Provider
	users     *UserRepository
	addresses *AddressRepository
	products  *ProductRepository
	orders    *OrderRepository
	counters  *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every repository over the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	addresses, err := NewAddressRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:  provider,
		users:     users,
		addresses: addresses,
		products:  products,
		orders:    orders,
		counters:  counters,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Users returns the user repository.
func (r *Registry) Users() repositories.UserRepository {
	if r == nil {
		return nil
	}
	return r.users
}

// Addresses returns the address repository.
func (r *Registry) Addresses() repositories.AddressRepository {
	if r == nil {
		return nil
	}
	return r.addresses
}

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository {
	if r == nil {
		return nil
	}
	return r.products
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository {
	if r == nil {
		return nil
	}
	return r.orders
}

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository {
	if r == nil {
		return nil
	}
	return r.counters
}

// RunInTx executes fn inside a Firestore transaction. Repository calls made
// with the returned context do not automatically join the transaction; the
// hook exists for callers that coordinate their own transactional reads.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	if fn == nil {
		return errors.New("registry: transaction func is required")
	}
	return r.provider.RunTransaction(ctx, func(txCtx context.Context, _ *firestore.Transaction) error {
		return fn(txCtx)
	})
}
