package erp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// expirySlack is subtracted from the token expiry so a token about to lapse is
// refreshed before an upstream call can see it rejected.
const expirySlack = 30 * time.Second

// TokenProvider supplies the service-account bearer token used on ERP calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate(staleToken string)
}

// Authenticator exchanges service credentials for a bearer token.
type Authenticator func(ctx context.Context) (token string, expiresAt time.Time, err error)

// CachedTokenProvider caches the service token and refreshes it on demand.
// Refreshes are serialised under the mutex, so a caller racing a refresh
// blocks until the winner stored the fresh token and then reuses it.
type CachedTokenProvider struct {
	authenticate Authenticator
	clock        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewCachedTokenProvider constructs a token provider around the authenticator.
func NewCachedTokenProvider(authenticate Authenticator, clock func() time.Time) (*CachedTokenProvider, error) {
	if authenticate == nil {
		return nil, errors.New("erp: authenticator is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &CachedTokenProvider{
		authenticate: authenticate,
		clock:        clock,
	}, nil
}

// Token returns the cached token, refreshing it when absent or near expiry.
func (p *CachedTokenProvider) Token(ctx context.Context) (string, error) {
	if p == nil {
		return "", errors.New("erp: token provider not initialised")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.fresh() {
		return p.token, nil
	}

	token, expiresAt, err := p.authenticate(ctx)
	if err != nil {
		return "", err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrAuthFailed
	}

	p.token = token
	p.expiresAt = expiresAt
	return token, nil
}

// Invalidate drops the cached token, but only when the caller's stale token is
// still the cached one. A racer that lost a refresh hands in the old token and
// must not evict the fresh one the winner just stored.
func (p *CachedTokenProvider) Invalidate(staleToken string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if staleToken != "" && staleToken != p.token {
		return
	}
	p.token = ""
	p.expiresAt = time.Time{}
}

func (p *CachedTokenProvider) fresh() bool {
	if p.expiresAt.IsZero() {
		return true
	}
	return p.clock().Before(p.expiresAt.Add(-expirySlack))
}
