package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultNetgsmBaseURL = "https://api.netgsm.com.tr"

// NetgsmConfig configures the Netgsm SMS client.
type NetgsmConfig struct {
	UserCode string
	Password string
	Header   string
	BaseURL  string
	Timeout  time.Duration
	Client   httpDoer
}

// NetgsmClient sends SMS through the Netgsm GET API.
type NetgsmClient struct {
	userCode string
	password string
	header   string
	baseURL  string
	doer     httpDoer
}

// NewNetgsmClient constructs a Netgsm SMS client.
func NewNetgsmClient(cfg NetgsmConfig) (*NetgsmClient, error) {
	userCode := strings.TrimSpace(cfg.UserCode)
	if userCode == "" {
		return nil, errors.New("netgsm: user code is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("netgsm: password is required")
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultNetgsmBaseURL
	}
	doer := cfg.Client
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultSendTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}

	return &NetgsmClient{
		userCode: userCode,
		password: cfg.Password,
		header:   strings.TrimSpace(cfg.Header),
		baseURL:  base,
		doer:     doer,
	}, nil
}

// SendSMS delivers one text message. Netgsm answers with a plain-text code;
// "00", "01" and "02" all mean the message was accepted.
func (c *NetgsmClient) SendSMS(ctx context.Context, msg SMSMessage) error {
	if c == nil {
		return errors.New("netgsm: client is nil")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("netgsm: recipient is required")
	}

	params := url.Values{}
	params.Set("usercode", c.userCode)
	params.Set("password", c.password)
	params.Set("gsmno", to)
	params.Set("message", msg.Body)
	params.Set("dil", "TR")
	if c.header != "" {
		params.Set("msgheader", c.header)
	}

	endpoint := c.baseURL + "/sms/send/get?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("netgsm: build request: %w", err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: netgsm returned status %d", ErrSendFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrSendFailed, err)
	}

	code := strings.TrimSpace(string(body))
	if i := strings.IndexAny(code, " \t"); i >= 0 {
		code = code[:i]
	}
	switch code {
	case "00", "01", "02":
		return nil
	}
	return fmt.Errorf("%w: netgsm response code %q", ErrSendFailed, code)
}

var _ SMSSender = (*NetgsmClient)(nil)
