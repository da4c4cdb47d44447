package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kurumsal-tedarikci/api/internal/platform/config"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Auth      services.AuthService
	Addresses services.AddressService
	Products  services.ProductService
	Orders    services.OrderService
	Reporting services.ReportingService
	System    services.SystemService
}

// Dependencies carries the outbound seams that live outside the repository
// registry: token signing, the ERP gateway, notification delivery, and the
// order event stream. Nil members disable the corresponding integration.
type Dependencies struct {
	Tokens   services.TokenIssuer
	Erp      services.ErpGateway
	Notifier services.Notifier
	Events   services.OrderEventPublisher
	Health   repositories.HealthRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories, services, and outbound integrations for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries and stub seams.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Dependencies) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, deps Dependencies) (Services, error) {
	var svc Services

	usersRepo := reg.Users()
	addressRepo := reg.Addresses()
	productRepo := reg.Products()
	orderRepo := reg.Orders()
	counterRepo := reg.Counters()

	if usersRepo != nil && deps.Tokens != nil {
		authSvc, err := services.NewAuthService(services.AuthServiceDeps{
			Users:         usersRepo,
			Tokens:        deps.Tokens,
			Notifier:      deps.Notifier,
			AdminEmail:    cfg.Auth.AdminEmail,
			AdminPassword: cfg.Auth.AdminPassword,
			BcryptCost:    cfg.Auth.BcryptCost,
			Clock:         time.Now,
			Logger:        deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build auth service: %w", err)
		}
		svc.Auth = authSvc
	}

	if addressRepo != nil {
		addressSvc, err := services.NewAddressService(services.AddressServiceDeps{
			Addresses: addressRepo,
			Clock:     time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build address service: %w", err)
		}
		svc.Addresses = addressSvc
	}

	if productRepo != nil {
		productSvc, err := services.NewProductService(services.ProductServiceDeps{
			Products: productRepo,
			Clock:    time.Now,
			Logger:   deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build product service: %w", err)
		}
		svc.Products = productSvc
	}

	if orderRepo != nil && productRepo != nil && addressRepo != nil && usersRepo != nil && counterRepo != nil {
		orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
			Orders:       orderRepo,
			Products:     productRepo,
			Addresses:    addressRepo,
			Users:        usersRepo,
			Counters:     counterRepo,
			Erp:          deps.Erp,
			Events:       deps.Events,
			Notifier:     deps.Notifier,
			PushOnCreate: cfg.ERP.PushOnCreate,
			Clock:        time.Now,
			Logger:       deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build order service: %w", err)
		}
		svc.Orders = orderSvc
	}

	if usersRepo != nil && orderRepo != nil {
		reportingSvc, err := services.NewReportingService(services.ReportingServiceDeps{
			Users:  usersRepo,
			Orders: orderRepo,
			Clock:  time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build reporting service: %w", err)
		}
		svc.Reporting = reportingSvc
	}

	if deps.Health != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: deps.Health,
			Clock:            time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
