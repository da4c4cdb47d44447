package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBrevoBaseURL = "https://api.brevo.com/v3"
	defaultSendTimeout  = 10 * time.Second
)

// ErrSendFailed indicates the provider rejected or could not deliver a message.
var ErrSendFailed = errors.New("notifications: send failed")

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BrevoConfig configures the Brevo transactional email client.
type BrevoConfig struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	Timeout     time.Duration
	Client      httpDoer
}

// BrevoClient sends transactional email through the Brevo REST API.
type BrevoClient struct {
	apiKey      string
	baseURL     string
	senderEmail string
	senderName  string
	doer        httpDoer
}

// NewBrevoClient constructs a Brevo email client.
func NewBrevoClient(cfg BrevoConfig) (*BrevoClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("brevo: api key is required")
	}
	senderEmail := strings.TrimSpace(cfg.SenderEmail)
	if senderEmail == "" {
		return nil, errors.New("brevo: sender email is required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBrevoBaseURL
	}
	doer := cfg.Client
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultSendTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}

	return &BrevoClient{
		apiKey:      apiKey,
		baseURL:     base,
		senderEmail: senderEmail,
		senderName:  strings.TrimSpace(cfg.SenderName),
		doer:        doer,
	}, nil
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoSendRequest struct {
	Sender      brevoRecipient   `json:"sender"`
	To          []brevoRecipient `json:"to"`
	Subject     string           `json:"subject"`
	HTMLContent string           `json:"htmlContent,omitempty"`
	TextContent string           `json:"textContent,omitempty"`
}

// SendEmail delivers one transactional email.
func (c *BrevoClient) SendEmail(ctx context.Context, msg EmailMessage) error {
	if c == nil {
		return errors.New("brevo: client is nil")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("brevo: recipient is required")
	}

	payload := brevoSendRequest{
		Sender:      brevoRecipient{Email: c.senderEmail, Name: c.senderName},
		To:          []brevoRecipient{{Email: to, Name: strings.TrimSpace(msg.ToName)}},
		Subject:     strings.TrimSpace(msg.Subject),
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("brevo: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/smtp/email", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("brevo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: brevo returned status %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}

var _ EmailSender = (*BrevoClient)(nil)
