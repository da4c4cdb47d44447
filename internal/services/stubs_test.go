package services

import (
	"context"
	"sync"
	"time"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/notifications"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

type stubRepositoryError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepositoryError) Error() string       { return "repository error" }
func (e stubRepositoryError) IsNotFound() bool    { return e.notFound }
func (e stubRepositoryError) IsConflict() bool    { return e.conflict }
func (e stubRepositoryError) IsUnavailable() bool { return e.unavailable }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func staticID(id string) func() string {
	return func() string { return id }
}

func strPtr(s string) *string { return &s }

type stubUserRepository struct {
	insertFn      func(ctx context.Context, user domain.User) error
	updateFn      func(ctx context.Context, user domain.User) error
	findByIDFn    func(ctx context.Context, userID string) (domain.User, error)
	findByEmailFn func(ctx context.Context, email string) (domain.User, error)
	listFn        func(ctx context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.User], error)
	countFn       func(ctx context.Context) (int64, error)

	inserted []domain.User
	updated  []domain.User
}

func (s *stubUserRepository) Insert(ctx context.Context, user domain.User) error {
	s.inserted = append(s.inserted, user)
	if s.insertFn != nil {
		return s.insertFn(ctx, user)
	}
	return nil
}

func (s *stubUserRepository) Update(ctx context.Context, user domain.User) error {
	s.updated = append(s.updated, user)
	if s.updateFn != nil {
		return s.updateFn(ctx, user)
	}
	return nil
}

func (s *stubUserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, userID)
	}
	return domain.User{}, stubRepositoryError{notFound: true}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if s.findByEmailFn != nil {
		return s.findByEmailFn(ctx, email)
	}
	return domain.User{}, stubRepositoryError{notFound: true}
}

func (s *stubUserRepository) List(ctx context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.User], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.User]{}, nil
}

func (s *stubUserRepository) Count(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return 0, nil
}

type stubAddressRepository struct {
	listFn       func(ctx context.Context, userID string) ([]domain.Address, error)
	getFn        func(ctx context.Context, userID, addressID string) (domain.Address, error)
	upsertFn     func(ctx context.Context, userID string, addr domain.Address) (domain.Address, error)
	deleteFn     func(ctx context.Context, userID, addressID string) error
	setDefaultFn func(ctx context.Context, userID, addressID string, now time.Time) (domain.Address, error)

	upserted []domain.Address
}

func (s *stubAddressRepository) List(ctx context.Context, userID string) ([]domain.Address, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubAddressRepository) Get(ctx context.Context, userID, addressID string) (domain.Address, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID, addressID)
	}
	return domain.Address{}, stubRepositoryError{notFound: true}
}

func (s *stubAddressRepository) Upsert(ctx context.Context, userID string, addr domain.Address) (domain.Address, error) {
	s.upserted = append(s.upserted, addr)
	if s.upsertFn != nil {
		return s.upsertFn(ctx, userID, addr)
	}
	return addr, nil
}

func (s *stubAddressRepository) Delete(ctx context.Context, userID, addressID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID, addressID)
	}
	return nil
}

func (s *stubAddressRepository) SetDefault(ctx context.Context, userID, addressID string, now time.Time) (domain.Address, error) {
	if s.setDefaultFn != nil {
		return s.setDefaultFn(ctx, userID, addressID, now)
	}
	return domain.Address{}, stubRepositoryError{notFound: true}
}

type stubProductRepository struct {
	insertFn        func(ctx context.Context, product domain.Product) error
	updateFn        func(ctx context.Context, product domain.Product) error
	deleteFn        func(ctx context.Context, productID string) error
	findByIDFn      func(ctx context.Context, productID string) (domain.Product, error)
	findBySKUFn     func(ctx context.Context, sku string) (domain.Product, error)
	listFn          func(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error)
	countFn         func(ctx context.Context) (int64, error)
	applyMovementFn func(ctx context.Context, productID string, movement domain.StockMovement) (domain.Product, error)

	inserted []domain.Product
	updated  []domain.Product
	deleted  []string
}

func (s *stubProductRepository) Insert(ctx context.Context, product domain.Product) error {
	s.inserted = append(s.inserted, product)
	if s.insertFn != nil {
		return s.insertFn(ctx, product)
	}
	return nil
}

func (s *stubProductRepository) Update(ctx context.Context, product domain.Product) error {
	s.updated = append(s.updated, product)
	if s.updateFn != nil {
		return s.updateFn(ctx, product)
	}
	return nil
}

func (s *stubProductRepository) Delete(ctx context.Context, productID string) error {
	s.deleted = append(s.deleted, productID)
	if s.deleteFn != nil {
		return s.deleteFn(ctx, productID)
	}
	return nil
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, productID)
	}
	return domain.Product{}, stubRepositoryError{notFound: true}
}

func (s *stubProductRepository) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	if s.findBySKUFn != nil {
		return s.findBySKUFn(ctx, sku)
	}
	return domain.Product{}, stubRepositoryError{notFound: true}
}

func (s *stubProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

func (s *stubProductRepository) Count(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return 0, nil
}

func (s *stubProductRepository) ApplyMovement(ctx context.Context, productID string, movement domain.StockMovement) (domain.Product, error) {
	if s.applyMovementFn != nil {
		return s.applyMovementFn(ctx, productID, movement)
	}
	return domain.Product{}, stubRepositoryError{notFound: true}
}

type stubOrderRepository struct {
	insertFn           func(ctx context.Context, order domain.Order) error
	updateFn           func(ctx context.Context, order domain.Order) error
	findByIDFn         func(ctx context.Context, orderID string) (domain.Order, error)
	listFn             func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	countFn            func(ctx context.Context) (int64, error)
	countByStatusFn    func(ctx context.Context, status domain.OrderStatus) (int64, error)
	listCreatedSinceFn func(ctx context.Context, since time.Time) ([]domain.Order, error)

	inserted []domain.Order
	updated  []domain.Order
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	s.inserted = append(s.inserted, order)
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepository) Update(ctx context.Context, order domain.Order) error {
	s.updated = append(s.updated, order)
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, orderID)
	}
	return domain.Order{}, stubRepositoryError{notFound: true}
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderRepository) Count(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return 0, nil
}

func (s *stubOrderRepository) CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	if s.countByStatusFn != nil {
		return s.countByStatusFn(ctx, status)
	}
	return 0, nil
}

func (s *stubOrderRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	if s.listCreatedSinceFn != nil {
		return s.listCreatedSinceFn(ctx, since)
	}
	return nil, nil
}

type stubCounterRepository struct {
	nextFn func(ctx context.Context, counterID string, step int64) (int64, error)
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

func (s *stubCounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	return nil
}

type stubErpGateway struct {
	findOrCreateFn func(ctx context.Context, customer domain.User) (string, error)
	createSaleFn   func(ctx context.Context, order domain.Order, accountID, forwardToken string) (string, error)

	findOrCreateCalls int
	createSaleCalls   int
}

func (s *stubErpGateway) FindOrCreateAccount(ctx context.Context, customer domain.User) (string, error) {
	s.findOrCreateCalls++
	if s.findOrCreateFn != nil {
		return s.findOrCreateFn(ctx, customer)
	}
	return "acct-1", nil
}

func (s *stubErpGateway) CreateSale(ctx context.Context, order domain.Order, accountID, forwardToken string) (string, error) {
	s.createSaleCalls++
	if s.createSaleFn != nil {
		return s.createSaleFn(ctx, order, accountID, forwardToken)
	}
	return "WEB-2025-0001", nil
}

type stubEventPublisher struct {
	publishFn func(ctx context.Context, message OrderEventMessage) (string, error)

	published []OrderEventMessage
}

func (s *stubEventPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	s.published = append(s.published, message)
	if s.publishFn != nil {
		return s.publishFn(ctx, message)
	}
	return "msg-1", nil
}

type stubNotifier struct {
	mu     sync.Mutex
	emails []notifications.EmailMessage
	sms    []notifications.SMSMessage
}

func (s *stubNotifier) EmailAsync(ctx context.Context, msg notifications.EmailMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, msg)
}

func (s *stubNotifier) SMSAsync(ctx context.Context, msg notifications.SMSMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sms = append(s.sms, msg)
}

type stubTokenIssuer struct {
	issueFn func(subject, email, role string) (string, time.Time, error)
}

func (s *stubTokenIssuer) Issue(subject, email, role string) (string, time.Time, error) {
	if s.issueFn != nil {
		return s.issueFn(subject, email, role)
	}
	return "token-" + subject, time.Date(2025, 5, 7, 12, 0, 0, 0, time.UTC), nil
}
