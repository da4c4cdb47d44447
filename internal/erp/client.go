package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// httpDoer is the seam for injecting a fake transport in tests.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// API is the low-level ERP surface the gateway drives. Fakes implement it in
// service tests; httpAPI is the production implementation.
type API interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	FindAccountByEmail(ctx context.Context, token, email string) (Account, bool, error)
	CreateAccount(ctx context.Context, token string, req AccountRequest) (string, error)
	CreateSale(ctx context.Context, token string, req SaleRequest) (SaleResult, error)
}

// LoginResult carries the service bearer token returned by the ERP.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// Account is the ERP-side customer ("cari") record.
type Account struct {
	ID    string
	Name  string
	Email string
}

// AccountRequest creates a new cari record.
type AccountRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	TaxNumber string `json:"taxNumber,omitempty"`
	TaxOffice string `json:"taxOffice,omitempty"`
}

// SaleLine is one invoice line of a sale.
type SaleLine struct {
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	VatRate     int     `json:"vatRate"`
}

// SaleRequest creates a sales transaction attributed to the purchasing user
// via the forwarded credential.
type SaleRequest struct {
	SaleNumber   string     `json:"saleNumber"`
	ExternalRef  string     `json:"externalRef"`
	AccountID    string     `json:"accountId"`
	PaymentType  int        `json:"paymentType"`
	Lines        []SaleLine `json:"lines"`
	Total        float64    `json:"total"`
	ForwardToken string     `json:"-"`
}

// SaleResult carries the ERP-assigned sale identifiers.
type SaleResult struct {
	SaleNumber string
}

// HTTPAPIConfig configures the production ERP client.
type HTTPAPIConfig struct {
	BaseURL string
	Timeout time.Duration
	Client  httpDoer
}

type httpAPI struct {
	baseURL string
	doer    httpDoer
}

// NewHTTPAPI constructs the HTTP-backed ERP client.
func NewHTTPAPI(cfg HTTPAPIConfig) (API, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("erp: base url is required")
	}
	doer := cfg.Client
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}
	return &httpAPI{baseURL: base, doer: doer}, nil
}

func (c *httpAPI) Login(ctx context.Context, email, password string) (LoginResult, error) {
	payload := map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}

	var body struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	status, err := c.postJSON(ctx, "/auth/login", "", "", payload, &body)
	if err != nil {
		return LoginResult{}, err
	}
	switch {
	case status == http.StatusOK && strings.TrimSpace(body.Token) != "":
		result := LoginResult{Token: strings.TrimSpace(body.Token)}
		if raw := strings.TrimSpace(body.ExpiresAt); raw != "" {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				result.ExpiresAt = ts
			}
		}
		return result, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusBadRequest:
		return LoginResult{}, ErrAuthFailed
	default:
		return LoginResult{}, fmt.Errorf("%w: login returned status %d", ErrUnavailable, status)
	}
}

func (c *httpAPI) FindAccountByEmail(ctx context.Context, token, email string) (Account, bool, error) {
	endpoint := "/cari?email=" + url.QueryEscape(strings.ToLower(strings.TrimSpace(email)))

	var body struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	status, err := c.getJSON(ctx, endpoint, token, &body)
	if err != nil {
		return Account{}, false, err
	}
	switch status {
	case http.StatusOK:
		if strings.TrimSpace(body.ID) == "" {
			return Account{}, false, nil
		}
		return Account{ID: body.ID, Name: body.Name, Email: body.Email}, true, nil
	case http.StatusNotFound:
		return Account{}, false, nil
	case http.StatusUnauthorized:
		return Account{}, false, errUnauthorized
	default:
		return Account{}, false, fmt.Errorf("%w: cari lookup returned status %d", ErrUnavailable, status)
	}
}

func (c *httpAPI) CreateAccount(ctx context.Context, token string, req AccountRequest) (string, error) {
	var body struct {
		ID string `json:"id"`
	}
	status, err := c.postJSON(ctx, "/cari/create", token, "", req, &body)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		if strings.TrimSpace(body.ID) == "" {
			return "", fmt.Errorf("%w: cari create returned no id", ErrUnavailable)
		}
		return body.ID, nil
	case http.StatusUnauthorized:
		return "", errUnauthorized
	default:
		return "", fmt.Errorf("%w: cari create returned status %d", ErrUnavailable, status)
	}
}

func (c *httpAPI) CreateSale(ctx context.Context, token string, req SaleRequest) (SaleResult, error) {
	var body struct {
		SaleNumber string `json:"saleNumber"`
	}
	status, err := c.postJSON(ctx, "/transactions/create", token, req.ForwardToken, req, &body)
	if err != nil {
		return SaleResult{}, err
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		result := SaleResult{SaleNumber: strings.TrimSpace(body.SaleNumber)}
		if result.SaleNumber == "" {
			result.SaleNumber = req.SaleNumber
		}
		return result, nil
	case http.StatusUnauthorized:
		return SaleResult{}, errUnauthorized
	default:
		return SaleResult{}, fmt.Errorf("%w: sale create returned status %d", ErrUnavailable, status)
	}
}

func (c *httpAPI) postJSON(ctx context.Context, endpoint, token, forwardToken string, payload any, out any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("erp: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("erp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if forwardToken != "" {
		req.Header.Set("X-Forwarded-Authorization", "Bearer "+forwardToken)
	}
	return c.do(req, out)
}

func (c *httpAPI) getJSON(ctx context.Context, endpoint, token string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("erp: build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *httpAPI) do(req *http.Request, out any) (int, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if out != nil && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	return resp.StatusCode, nil
}
