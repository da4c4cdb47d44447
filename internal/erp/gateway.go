package erp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
)

const saleVatRate = 20

// EventLogger defines the logging contract for gateway operations.
type EventLogger func(ctx context.Context, event string, fields map[string]any)

// GatewayConfig configures the Gateway.
type GatewayConfig struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration

	// API overrides the HTTP client, primarily for tests.
	API    API
	Tokens TokenProvider
	Clock  func() time.Time
	Logger EventLogger
	Rand   func(n int) int
}

// Gateway drives customer and sale synchronisation against the ERP.
// All upstream calls run under the cached service token; a 401 invalidates
// the token, re-authenticates, and retries the original call exactly once.
type Gateway struct {
	api    API
	tokens TokenProvider
	clock  func() time.Time
	logger EventLogger
	randn  func(n int) int
}

// NewGateway constructs a Gateway from the given configuration.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	api := cfg.API
	if api == nil {
		var err error
		api, err = NewHTTPAPI(HTTPAPIConfig{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
		if err != nil {
			return nil, err
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	tokens := cfg.Tokens
	if tokens == nil {
		email := strings.TrimSpace(cfg.Email)
		if email == "" || cfg.Password == "" {
			return nil, errors.New("erp: service credentials are required")
		}
		provider, err := NewCachedTokenProvider(func(ctx context.Context) (string, time.Time, error) {
			result, err := api.Login(ctx, email, cfg.Password)
			if err != nil {
				return "", time.Time{}, err
			}
			return result.Token, result.ExpiresAt, nil
		}, clock)
		if err != nil {
			return nil, err
		}
		tokens = provider
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	randn := cfg.Rand
	if randn == nil {
		randn = rand.Intn
	}

	return &Gateway{
		api:    api,
		tokens: tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
		randn:  randn,
	}, nil
}

// FindOrCreateAccount resolves the cari for the given customer, creating it on
// a lookup miss.
func (g *Gateway) FindOrCreateAccount(ctx context.Context, customer domain.User) (string, error) {
	if g == nil {
		return "", errors.New("erp: gateway is nil")
	}
	email := strings.ToLower(strings.TrimSpace(customer.Email))
	if email == "" {
		return "", errors.New("erp: customer email is required")
	}

	var accountID string
	err := g.withToken(ctx, func(token string) error {
		account, found, err := g.api.FindAccountByEmail(ctx, token, email)
		if err != nil {
			return err
		}
		if found {
			accountID = account.ID
			return nil
		}

		name := strings.TrimSpace(customer.CompanyName)
		if name == "" {
			name = strings.TrimSpace(customer.Name)
		}
		created, err := g.api.CreateAccount(ctx, token, AccountRequest{
			Name:      name,
			Email:     email,
			Phone:     strings.TrimSpace(customer.Phone),
			TaxNumber: strings.TrimSpace(customer.TaxNumber),
			TaxOffice: strings.TrimSpace(customer.TaxOffice),
		})
		if err != nil {
			return err
		}
		accountID = created
		g.logger(ctx, "erp.cari.created", map[string]any{
			"accountId": created,
			"email":     email,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// CreateSale pushes the order as a sales transaction attributed to the
// purchasing user via the forwarded credential. Returns the sale number.
func (g *Gateway) CreateSale(ctx context.Context, order domain.Order, accountID string, forwardToken string) (string, error) {
	if g == nil {
		return "", errors.New("erp: gateway is nil")
	}
	if strings.TrimSpace(accountID) == "" {
		return "", errors.New("erp: account id is required")
	}
	if len(order.Items) == 0 {
		return "", errors.New("erp: order has no items")
	}

	request := SaleRequest{
		SaleNumber:   g.saleNumber(),
		ExternalRef:  strings.TrimSpace(order.ID),
		AccountID:    strings.TrimSpace(accountID),
		PaymentType:  paymentTypeCode(order.PaymentMethod),
		Total:        order.Totals.Total.InexactFloat64(),
		ForwardToken: strings.TrimSpace(forwardToken),
	}
	request.Lines = make([]SaleLine, 0, len(order.Items))
	for _, item := range order.Items {
		request.Lines = append(request.Lines, SaleLine{
			Description: item.Title,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			VatRate:     saleVatRate,
		})
	}

	var saleNumber string
	err := g.withToken(ctx, func(token string) error {
		result, err := g.api.CreateSale(ctx, token, request)
		if err != nil {
			return err
		}
		saleNumber = result.SaleNumber
		return nil
	})
	if err != nil {
		return "", err
	}

	g.logger(ctx, "erp.sale.created", map[string]any{
		"saleNumber":  saleNumber,
		"externalRef": request.ExternalRef,
		"accountId":   request.AccountID,
	})
	return saleNumber, nil
}

// withToken runs op under the cached token. A rejected token is invalidated,
// refreshed, and the op retried once; a second rejection counts as an outage.
func (g *Gateway) withToken(ctx context.Context, op func(token string) error) error {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return err
	}

	err = op(token)
	if !errors.Is(err, errUnauthorized) {
		return err
	}

	g.tokens.Invalidate(token)
	token, err = g.tokens.Token(ctx)
	if err != nil {
		return err
	}
	err = op(token)
	if errors.Is(err, errUnauthorized) {
		return fmt.Errorf("%w: token rejected after refresh", ErrUnavailable)
	}
	return err
}

// saleNumber builds the client-side sale number, e.g. "WEB-2026-0481".
func (g *Gateway) saleNumber() string {
	return fmt.Sprintf("WEB-%d-%04d", g.clock().Year(), g.randn(10000))
}

func paymentTypeCode(method domain.PaymentMethod) int {
	switch method {
	case domain.PaymentCard:
		return 1
	case domain.PaymentTransfer:
		return 2
	case domain.PaymentOpenAccount:
		return 3
	}
	return 0
}
