package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultTokenTTL            = 24 * time.Hour
	defaultAdminTokenTTL       = 8 * time.Hour
	defaultTokenIssuer         = "kurumsal-tedarikci"
	defaultBcryptCost          = 10
	defaultERPTimeout          = 15 * time.Second
	defaultNotifyTimeout       = 10 * time.Second
	defaultBrevoBaseURL        = "https://api.brevo.com/v3"
	defaultNetgsmBaseURL       = "https://api.netgsm.com.tr"
	defaultRateLimitAuth       = 30
	defaultRateLimitWindow     = time.Minute
	defaultSecurityEnvironment = "local"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Firestore     FirestoreConfig
	Auth          AuthConfig
	ERP           ERPConfig
	Notifications NotificationsConfig
	Events        EventsConfig
	RateLimits    RateLimitConfig
	Security      SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// AuthConfig groups token issuance and the bootstrap admin credentials.
type AuthConfig struct {
	TokenSecret   string
	TokenIssuer   string
	TokenTTL      time.Duration
	AdminTokenTTL time.Duration
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
}

// ERPConfig holds the upstream ERP endpoint and its service-account login.
type ERPConfig struct {
	BaseURL      string
	Email        string
	Password     string
	Timeout      time.Duration
	PushOnCreate bool
}

// NotificationsConfig collects transactional email and SMS settings.
type NotificationsConfig struct {
	Timeout     time.Duration
	SenderEmail string
	SenderName  string
	Brevo       BrevoConfig
	Netgsm      NetgsmConfig
}

// BrevoConfig configures the transactional email client.
type BrevoConfig struct {
	APIKey  string
	BaseURL string
}

// NetgsmConfig configures the SMS client.
type NetgsmConfig struct {
	UserCode string
	Password string
	Header   string
	BaseURL  string
}

// EventsConfig configures the Pub/Sub order event stream. Publishing is
// disabled when Topic is empty.
type EventsConfig struct {
	ProjectID string
	Topic     string
}

// RateLimitConfig controls request throttling on the credential endpoints.
type RateLimitConfig struct {
	AuthPerWindow int
	AuthWindow    time.Duration
}

// SecurityConfig carries deployment-environment metadata.
type SecurityConfig struct {
	Environment string
}

// SecretResolver resolves references to external secrets (e.g. secret:// URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	secrets []missingSecret
}

type missingSecret struct {
	name     string
	redacted string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.secrets) == 0 {
		return "missing required secrets"
	}
	names := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		names = append(names, secret.redacted)
	}
	sort.Strings(names)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(names, ", "))
}

// RedactedNames returns a copy of the redacted secret identifiers.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.redacted)
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks the provided secret identifiers as mandatory.
// Identifiers match the config field names recorded by the loader
// (e.g. "Auth.TokenSecret" or "ERP.Password").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, environment variables, and optional secret resolver lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Auth: AuthConfig{
			TokenSecret:   stringWithDefault(lookup, "API_AUTH_TOKEN_SECRET", ""),
			TokenIssuer:   stringWithDefault(lookup, "API_AUTH_TOKEN_ISSUER", defaultTokenIssuer),
			TokenTTL:      durationWithDefault(lookup, "API_AUTH_TOKEN_TTL", defaultTokenTTL),
			AdminTokenTTL: durationWithDefault(lookup, "API_AUTH_ADMIN_TOKEN_TTL", defaultAdminTokenTTL),
			AdminEmail:    stringWithDefault(lookup, "API_AUTH_ADMIN_EMAIL", ""),
			AdminPassword: stringWithDefault(lookup, "API_AUTH_ADMIN_PASSWORD", ""),
			BcryptCost:    intWithDefault(lookup, "API_AUTH_BCRYPT_COST", defaultBcryptCost),
		},
		ERP: ERPConfig{
			BaseURL:      stringWithDefault(lookup, "API_ERP_BASE_URL", ""),
			Email:        stringWithDefault(lookup, "API_ERP_EMAIL", ""),
			Password:     stringWithDefault(lookup, "API_ERP_PASSWORD", ""),
			Timeout:      durationWithDefault(lookup, "API_ERP_TIMEOUT", defaultERPTimeout),
			PushOnCreate: boolWithDefault(lookup, "API_ERP_PUSH_ON_CREATE", false),
		},
		Notifications: NotificationsConfig{
			Timeout:     durationWithDefault(lookup, "API_NOTIFY_TIMEOUT", defaultNotifyTimeout),
			SenderEmail: stringWithDefault(lookup, "API_NOTIFY_SENDER_EMAIL", ""),
			SenderName:  stringWithDefault(lookup, "API_NOTIFY_SENDER_NAME", ""),
			Brevo: BrevoConfig{
				APIKey:  stringWithDefault(lookup, "API_NOTIFY_BREVO_API_KEY", ""),
				BaseURL: stringWithDefault(lookup, "API_NOTIFY_BREVO_BASE_URL", defaultBrevoBaseURL),
			},
			Netgsm: NetgsmConfig{
				UserCode: stringWithDefault(lookup, "API_NOTIFY_NETGSM_USERCODE", ""),
				Password: stringWithDefault(lookup, "API_NOTIFY_NETGSM_PASSWORD", ""),
				Header:   stringWithDefault(lookup, "API_NOTIFY_NETGSM_HEADER", ""),
				BaseURL:  stringWithDefault(lookup, "API_NOTIFY_NETGSM_BASE_URL", defaultNetgsmBaseURL),
			},
		},
		Events: EventsConfig{
			ProjectID: stringWithDefault(lookup, "API_EVENTS_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "API_EVENTS_TOPIC", ""),
		},
		RateLimits: RateLimitConfig{
			AuthPerWindow: intWithDefault(lookup, "API_RATELIMIT_AUTH_PER_WINDOW", defaultRateLimitAuth),
			AuthWindow:    durationWithDefault(lookup, "API_RATELIMIT_AUTH_WINDOW", defaultRateLimitWindow),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
	}

	// Events project defaults to the Firestore project when unspecified.
	if cfg.Events.ProjectID == "" {
		cfg.Events.ProjectID = cfg.Firestore.ProjectID
	}

	resolvedSecrets := make(map[string]string)
	resolveField := func(name string, field *string) error {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return err
		}
		*field = resolved
		resolvedSecrets[name] = strings.TrimSpace(resolved)
		return nil
	}

	secretFields := []struct {
		name  string
		field *string
	}{
		{"Auth.TokenSecret", &cfg.Auth.TokenSecret},
		{"Auth.AdminPassword", &cfg.Auth.AdminPassword},
		{"ERP.Password", &cfg.ERP.Password},
		{"Notifications.Brevo.APIKey", &cfg.Notifications.Brevo.APIKey},
		{"Notifications.Netgsm.Password", &cfg.Notifications.Netgsm.Password},
	}
	for _, target := range secretFields {
		if err := resolveField(target.name, target.field); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		return Config{}, missing
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" {
		return value, nil
	}
	if !isSecretReference(value) {
		return value, nil
	}
	if resolver == nil {
		normalized := normalizeSecretReference(value)
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	normalized := normalizeSecretReference(value)
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if strings.TrimSpace(cfg.Auth.TokenSecret) == "" {
		missing = append(missing, "Auth.TokenSecret")
	}
	if cfg.Auth.TokenTTL <= 0 {
		missing = append(missing, "Auth.TokenTTL")
	}
	if strings.TrimSpace(cfg.ERP.BaseURL) == "" {
		missing = append(missing, "ERP.BaseURL")
	}
	if strings.TrimSpace(cfg.ERP.Email) == "" {
		missing = append(missing, "ERP.Email")
	}
	if strings.TrimSpace(cfg.ERP.Password) == "" {
		missing = append(missing, "ERP.Password")
	}
	if cfg.ERP.Timeout <= 0 {
		missing = append(missing, "ERP.Timeout")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	if len(required) == 0 {
		return nil
	}
	missing := make([]missingSecret, 0, len(required))
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if value := strings.TrimSpace(resolved[trimmed]); value != "" {
			continue
		}
		missing = append(missing, missingSecret{
			name:     trimmed,
			redacted: redactSecretName(trimmed),
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{secrets: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
