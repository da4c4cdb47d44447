package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	defaultTokenTTL      = 24 * time.Hour
	defaultAdminTokenTTL = 8 * time.Hour
)

var (
	// ErrTokenExpired signals that the provided access token has expired.
	ErrTokenExpired = errors.New("auth: access token expired")
	// ErrTokenInvalid signals that the provided access token is malformed or
	// carries a bad signature. Callers treat it the same as expiry.
	ErrTokenInvalid = errors.New("auth: access token invalid")
)

// Claims is the payload carried by locally issued access tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManagerConfig configures a TokenManager.
type TokenManagerConfig struct {
	Secret   string
	Issuer   string
	TTL      time.Duration
	AdminTTL time.Duration
	Clock    func() time.Time
}

// TokenManager issues and verifies HS256 access tokens. Verification decodes
// claims without a store round-trip; signed claims are trusted as-is.
type TokenManager struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	adminTTL time.Duration
	clock    func() time.Time
}

// NewTokenManager constructs a TokenManager from the supplied configuration.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: token signing secret is required")
	}
	m := &TokenManager{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		ttl:      cfg.TTL,
		adminTTL: cfg.AdminTTL,
		clock:    cfg.Clock,
	}
	if m.ttl <= 0 {
		m.ttl = defaultTokenTTL
	}
	if m.adminTTL <= 0 {
		m.adminTTL = defaultAdminTokenTTL
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m, nil
}

// Issue signs an access token for the subject. Admin tokens get the shorter
// admin TTL.
func (m *TokenManager) Issue(subject, email, role string) (string, time.Time, error) {
	if m == nil {
		return "", time.Time{}, errors.New("auth: token manager not initialised")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("auth: token subject is required")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = RoleUser
	}

	now := m.clock().UTC()
	ttl := m.ttl
	if role == RoleAdmin {
		ttl = m.adminTTL
	}
	expiresAt := now.Add(ttl)

	claims := Claims{
		Email: strings.TrimSpace(email),
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a bearer token string. Malformed tokens, bad
// signatures, and expiry all surface as sentinel errors so callers can map
// them to a single unauthorized outcome.
func (m *TokenManager) Verify(tokenStr string) (*Claims, error) {
	if m == nil {
		return nil, ErrTokenInvalid
	}
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
