package handlers

import (
	"context"
	"errors"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

var errStubNotWired = errors.New("stub not wired")

type stubAuthService struct {
	registerFunc       func(ctx context.Context, cmd services.RegisterCommand) (services.AuthResult, error)
	loginFunc          func(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error)
	adminLoginFunc     func(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error)
	forgotPasswordFunc func(ctx context.Context, email string) error
	profileFunc        func(ctx context.Context, userID string) (services.User, error)
	updateProfileFunc  func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, cmd services.RegisterCommand) (services.AuthResult, error) {
	if s.registerFunc == nil {
		return services.AuthResult{}, errStubNotWired
	}
	return s.registerFunc(ctx, cmd)
}

func (s *stubAuthService) Login(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error) {
	if s.loginFunc == nil {
		return services.AuthResult{}, errStubNotWired
	}
	return s.loginFunc(ctx, cmd)
}

func (s *stubAuthService) AdminLogin(ctx context.Context, cmd services.LoginCommand) (services.AuthResult, error) {
	if s.adminLoginFunc == nil {
		return services.AuthResult{}, errStubNotWired
	}
	return s.adminLoginFunc(ctx, cmd)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	if s.forgotPasswordFunc == nil {
		return nil
	}
	return s.forgotPasswordFunc(ctx, email)
}

func (s *stubAuthService) Profile(ctx context.Context, userID string) (services.User, error) {
	if s.profileFunc == nil {
		return services.User{}, errStubNotWired
	}
	return s.profileFunc(ctx, userID)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
	if s.updateProfileFunc == nil {
		return services.User{}, errStubNotWired
	}
	return s.updateProfileFunc(ctx, cmd)
}

type stubAddressService struct {
	listFunc       func(ctx context.Context, userID string) ([]services.Address, error)
	createFunc     func(ctx context.Context, userID string, input services.AddressInput) (services.Address, error)
	updateFunc     func(ctx context.Context, userID, addressID string, input services.AddressInput) (services.Address, error)
	deleteFunc     func(ctx context.Context, userID, addressID string) error
	setDefaultFunc func(ctx context.Context, userID, addressID string) (services.Address, error)
}

func (s *stubAddressService) ListAddresses(ctx context.Context, userID string) ([]services.Address, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx, userID)
}

func (s *stubAddressService) CreateAddress(ctx context.Context, userID string, input services.AddressInput) (services.Address, error) {
	if s.createFunc == nil {
		return services.Address{}, errStubNotWired
	}
	return s.createFunc(ctx, userID, input)
}

func (s *stubAddressService) UpdateAddress(ctx context.Context, userID, addressID string, input services.AddressInput) (services.Address, error) {
	if s.updateFunc == nil {
		return services.Address{}, errStubNotWired
	}
	return s.updateFunc(ctx, userID, addressID, input)
}

func (s *stubAddressService) DeleteAddress(ctx context.Context, userID, addressID string) error {
	if s.deleteFunc == nil {
		return errStubNotWired
	}
	return s.deleteFunc(ctx, userID, addressID)
}

func (s *stubAddressService) SetDefaultAddress(ctx context.Context, userID, addressID string) (services.Address, error) {
	if s.setDefaultFunc == nil {
		return services.Address{}, errStubNotWired
	}
	return s.setDefaultFunc(ctx, userID, addressID)
}

type stubProductService struct {
	createFunc       func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error)
	updateFunc       func(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error)
	deleteFunc       func(ctx context.Context, productID string, hard bool) error
	getFunc          func(ctx context.Context, productID string) (services.Product, error)
	listFunc         func(ctx context.Context, filter services.ProductListQuery) (domain.CursorPage[services.Product], error)
	listPublicFunc   func(ctx context.Context, page services.Pagination) (domain.CursorPage[services.Product], error)
	applyFunc        func(ctx context.Context, cmd services.StockMovementCommand) (services.StockMovementResult, error)
	stockSummaryFunc func(ctx context.Context) (services.StockSummaryReport, error)
}

func (s *stubProductService) CreateProduct(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
	if s.createFunc == nil {
		return services.Product{}, errStubNotWired
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubProductService) UpdateProduct(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
	if s.updateFunc == nil {
		return services.Product{}, errStubNotWired
	}
	return s.updateFunc(ctx, cmd)
}

func (s *stubProductService) DeleteProduct(ctx context.Context, productID string, hard bool) error {
	if s.deleteFunc == nil {
		return errStubNotWired
	}
	return s.deleteFunc(ctx, productID, hard)
}

func (s *stubProductService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getFunc == nil {
		return services.Product{}, errStubNotWired
	}
	return s.getFunc(ctx, productID)
}

func (s *stubProductService) ListProducts(ctx context.Context, filter services.ProductListQuery) (domain.CursorPage[services.Product], error) {
	if s.listFunc == nil {
		return domain.CursorPage[services.Product]{}, nil
	}
	return s.listFunc(ctx, filter)
}

func (s *stubProductService) ListPublicProducts(ctx context.Context, page services.Pagination) (domain.CursorPage[services.Product], error) {
	if s.listPublicFunc == nil {
		return domain.CursorPage[services.Product]{}, nil
	}
	return s.listPublicFunc(ctx, page)
}

func (s *stubProductService) ApplyStockMovement(ctx context.Context, cmd services.StockMovementCommand) (services.StockMovementResult, error) {
	if s.applyFunc == nil {
		return services.StockMovementResult{}, errStubNotWired
	}
	return s.applyFunc(ctx, cmd)
}

func (s *stubProductService) StockSummary(ctx context.Context) (services.StockSummaryReport, error) {
	if s.stockSummaryFunc == nil {
		return services.StockSummaryReport{}, errStubNotWired
	}
	return s.stockSummaryFunc(ctx)
}

type stubOrderService struct {
	createFunc         func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error)
	listMineFunc       func(ctx context.Context, userID string, page services.Pagination) (domain.CursorPage[services.Order], error)
	listFunc           func(ctx context.Context, query services.OrderListQuery) (domain.CursorPage[services.Order], error)
	getFunc            func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error)
	transitionFunc     func(ctx context.Context, cmd services.TransitionOrderCommand) (services.Order, error)
	updateShipmentFunc func(ctx context.Context, cmd services.UpdateShipmentCommand) (services.Order, error)
	syncToErpFunc      func(ctx context.Context, orderID string) (services.Order, error)
	syncCariFunc       func(ctx context.Context, userID string) (string, error)
}

func (s *stubOrderService) CreateFromCart(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFunc == nil {
		return services.Order{}, errStubNotWired
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubOrderService) ListMyOrders(ctx context.Context, userID string, page services.Pagination) (domain.CursorPage[services.Order], error) {
	if s.listMineFunc == nil {
		return domain.CursorPage[services.Order]{}, nil
	}
	return s.listMineFunc(ctx, userID, page)
}

func (s *stubOrderService) ListOrders(ctx context.Context, query services.OrderListQuery) (domain.CursorPage[services.Order], error) {
	if s.listFunc == nil {
		return domain.CursorPage[services.Order]{}, nil
	}
	return s.listFunc(ctx, query)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string, actor services.Actor) (services.Order, error) {
	if s.getFunc == nil {
		return services.Order{}, errStubNotWired
	}
	return s.getFunc(ctx, orderID, actor)
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.TransitionOrderCommand) (services.Order, error) {
	if s.transitionFunc == nil {
		return services.Order{}, errStubNotWired
	}
	return s.transitionFunc(ctx, cmd)
}

func (s *stubOrderService) UpdateShipment(ctx context.Context, cmd services.UpdateShipmentCommand) (services.Order, error) {
	if s.updateShipmentFunc == nil {
		return services.Order{}, errStubNotWired
	}
	return s.updateShipmentFunc(ctx, cmd)
}

func (s *stubOrderService) SyncToErp(ctx context.Context, orderID string) (services.Order, error) {
	if s.syncToErpFunc == nil {
		return services.Order{}, errStubNotWired
	}
	return s.syncToErpFunc(ctx, orderID)
}

func (s *stubOrderService) SyncCari(ctx context.Context, userID string) (string, error) {
	if s.syncCariFunc == nil {
		return "", errStubNotWired
	}
	return s.syncCariFunc(ctx, userID)
}

type stubReportingService struct {
	dashboardFunc func(ctx context.Context) (services.DashboardReport, error)
	listUsersFunc func(ctx context.Context, query services.UserListQuery) (domain.CursorPage[services.User], error)
	getUserFunc   func(ctx context.Context, userID string) (services.User, error)
}

func (s *stubReportingService) Dashboard(ctx context.Context) (services.DashboardReport, error) {
	if s.dashboardFunc == nil {
		return services.DashboardReport{}, errStubNotWired
	}
	return s.dashboardFunc(ctx)
}

func (s *stubReportingService) ListUsers(ctx context.Context, query services.UserListQuery) (domain.CursorPage[services.User], error) {
	if s.listUsersFunc == nil {
		return domain.CursorPage[services.User]{}, nil
	}
	return s.listUsersFunc(ctx, query)
}

func (s *stubReportingService) GetUser(ctx context.Context, userID string) (services.User, error) {
	if s.getUserFunc == nil {
		return services.User{}, errStubNotWired
	}
	return s.getUserFunc(ctx, userID)
}

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) Health(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

var (
	_ services.AuthService      = (*stubAuthService)(nil)
	_ services.AddressService   = (*stubAddressService)(nil)
	_ services.ProductService   = (*stubProductService)(nil)
	_ services.OrderService     = (*stubOrderService)(nil)
	_ services.ReportingService = (*stubReportingService)(nil)
	_ services.SystemService    = (*stubSystemService)(nil)
)
