package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/notifications"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const (
	userIDPrefix = "usr_"

	minPasswordLength  = 8
	tempPasswordBytes  = 9
	adminLoginSubject  = "admin"
	passwordResetEvent = "auth.password.reset"
)

var (
	// ErrAuthInvalidInput signals the caller provided invalid registration or profile data.
	ErrAuthInvalidInput = errors.New("auth: invalid input")
	// ErrAuthInvalidCredentials covers every failed login regardless of cause.
	ErrAuthInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAuthEmailTaken indicates the registration email is already in use.
	ErrAuthEmailTaken = errors.New("auth: email already registered")
	// ErrAuthUserNotFound indicates the requested account does not exist.
	ErrAuthUserNotFound = errors.New("auth: user not found")
)

// AuthServiceDeps bundles collaborators required to construct the auth service.
type AuthServiceDeps struct {
	Users         repositories.UserRepository
	Tokens        TokenIssuer
	Notifier      Notifier
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
	Clock         func() time.Time
	IDGenerator   func() string
	TempPassword  func() (string, error)
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type authService struct {
	users         repositories.UserRepository
	tokens        TokenIssuer
	notifier      Notifier
	adminEmail    string
	adminPassword string
	bcryptCost    int
	clock         func() time.Time
	newID         func() string
	tempPassword  func() (string, error)
	logger        func(context.Context, string, map[string]any)
}

// NewAuthService wires dependencies into a concrete AuthService implementation.
func NewAuthService(deps AuthServiceDeps) (AuthService, error) {
	if deps.Users == nil {
		return nil, errors.New("auth service: user repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("auth service: token issuer is required")
	}

	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth service: bcrypt cost %d out of range", cost)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	tempPW := deps.TempPassword
	if tempPW == nil {
		tempPW = randomTempPassword
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &authService{
		users:         deps.Users,
		tokens:        deps.Tokens,
		notifier:      deps.Notifier,
		adminEmail:    strings.ToLower(strings.TrimSpace(deps.AdminEmail)),
		adminPassword: deps.AdminPassword,
		bcryptCost:    cost,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:        idGen,
		tempPassword: tempPW,
		logger:       logger,
	}, nil
}

func (s *authService) Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error) {
	email := normaliseEmail(cmd.Email)
	if email == "" || !strings.Contains(email, "@") {
		return AuthResult{}, fmt.Errorf("%w: a valid email is required", ErrAuthInvalidInput)
	}
	if len(cmd.Password) < minPasswordLength {
		return AuthResult{}, fmt.Errorf("%w: password must be at least %d characters", ErrAuthInvalidInput, minPasswordLength)
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return AuthResult{}, fmt.Errorf("%w: name is required", ErrAuthInvalidInput)
	}

	membership := cmd.MembershipType
	if membership == "" {
		membership = domain.MembershipIndividual
	}
	if membership != domain.MembershipIndividual && membership != domain.MembershipCorporate {
		return AuthResult{}, fmt.Errorf("%w: unknown membership type %q", ErrAuthInvalidInput, membership)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrAuthEmailTaken
	} else if !isRepoNotFound(err) {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth: hash password: %w", err)
	}

	now := s.clock()
	user := domain.User{
		ID:             userIDPrefix + s.newID(),
		Email:          email,
		PasswordHash:   string(hash),
		Name:           name,
		Phone:          strings.TrimSpace(cmd.Phone),
		CompanyName:    strings.TrimSpace(cmd.CompanyName),
		TaxNumber:      strings.TrimSpace(cmd.TaxNumber),
		TaxOffice:      strings.TrimSpace(cmd.TaxOffice),
		Role:           domain.RoleUser,
		MembershipType: membership,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if isRepoConflict(err) {
			return AuthResult{}, ErrAuthEmailTaken
		}
		return AuthResult{}, err
	}

	s.logger(ctx, "auth.user.registered", map[string]any{
		"userId":     user.ID,
		"membership": string(membership),
	})

	return s.issueFor(user)
}

func (s *authService) Login(ctx context.Context, cmd LoginCommand) (AuthResult, error) {
	email := normaliseEmail(cmd.Email)
	if email == "" || cmd.Password == "" {
		return AuthResult{}, ErrAuthInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isRepoNotFound(err) {
			return AuthResult{}, ErrAuthInvalidCredentials
		}
		return AuthResult{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)) != nil {
		return AuthResult{}, ErrAuthInvalidCredentials
	}

	return s.issueFor(user)
}

func (s *authService) AdminLogin(ctx context.Context, cmd LoginCommand) (AuthResult, error) {
	if s.adminEmail == "" || s.adminPassword == "" {
		return AuthResult{}, ErrAuthInvalidCredentials
	}

	email := normaliseEmail(cmd.Email)
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(cmd.Password), []byte(s.adminPassword)) == 1
	if !emailOK || !passwordOK {
		return AuthResult{}, ErrAuthInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(adminLoginSubject, s.adminEmail, domain.RoleAdmin)
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth: issue admin token: %w", err)
	}

	s.logger(ctx, "auth.admin.login", map[string]any{"email": s.adminEmail})

	return AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User: domain.User{
			ID:    adminLoginSubject,
			Email: s.adminEmail,
			Role:  domain.RoleAdmin,
		},
	}, nil
}

// ForgotPassword replaces the account password with a temporary one and emails
// it to the account. It always reports success so callers cannot probe which
// addresses exist.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normaliseEmail(email)
	if email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !isRepoNotFound(err) {
			s.logger(ctx, passwordResetEvent, map[string]any{"error": err.Error()})
		}
		return nil
	}

	temp, err := s.tempPassword()
	if err != nil {
		s.logger(ctx, passwordResetEvent, map[string]any{"userId": user.ID, "error": err.Error()})
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(temp), s.bcryptCost)
	if err != nil {
		s.logger(ctx, passwordResetEvent, map[string]any{"userId": user.ID, "error": err.Error()})
		return nil
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		s.logger(ctx, passwordResetEvent, map[string]any{"userId": user.ID, "error": err.Error()})
		return nil
	}

	if s.notifier != nil {
		s.notifier.EmailAsync(ctx, notifications.EmailMessage{
			To:      user.Email,
			ToName:  user.Name,
			Subject: "Geçici şifreniz",
			Text:    fmt.Sprintf("Geçici şifreniz: %s\nGiriş yaptıktan sonra lütfen şifrenizi değiştirin.", temp),
		})
	}

	s.logger(ctx, passwordResetEvent, map[string]any{"userId": user.ID})
	return nil
}

func (s *authService) Profile(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrAuthInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return User{}, ErrAuthUserNotFound
		}
		return User{}, err
	}
	return redactUser(user), nil
}

func (s *authService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrAuthInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return User{}, ErrAuthUserNotFound
		}
		return User{}, err
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return User{}, fmt.Errorf("%w: name cannot be empty", ErrAuthInvalidInput)
		}
		user.Name = name
	}
	if cmd.Phone != nil {
		user.Phone = strings.TrimSpace(*cmd.Phone)
	}
	if cmd.CompanyName != nil {
		user.CompanyName = strings.TrimSpace(*cmd.CompanyName)
	}
	if cmd.TaxNumber != nil {
		user.TaxNumber = strings.TrimSpace(*cmd.TaxNumber)
	}
	if cmd.TaxOffice != nil {
		user.TaxOffice = strings.TrimSpace(*cmd.TaxOffice)
	}

	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		return User{}, err
	}
	return redactUser(user), nil
}

func (s *authService) issueFor(user domain.User) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("auth: issue token: %w", err)
	}
	return AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      redactUser(user),
	}, nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomTempPassword() (string, error) {
	buf := make([]byte, tempPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate temporary password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
