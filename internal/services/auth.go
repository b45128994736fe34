package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tenantdesk/apiserver/internal/store"
	"github.com/tenantdesk/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

// Registration is the self-service signup input: a new tenant and its
// first administrator.
type Registration struct {
	TenantName string `json:"tenant_name" validate:"required,max=200"`
	TenantSlug string `json:"tenant_slug" validate:"required,slug"`
	FullName   string `json:"full_name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email,max=320"`
	Password   string `json:"password" validate:"required,password"`
}

// AuthService issues and verifies bearer tokens.
type AuthService struct {
	users    UserRepository
	tenants  TenantRepository
	validate *Validator
	events   *Events
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(users UserRepository, tenants TenantRepository, validate *Validator, events *Events, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{
		users:    users,
		tenants:  tenants,
		validate: validate,
		events:   events,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Register creates a tenant together with its first tenant_admin in a single
// transaction and returns a token for the new admin.
func (s *AuthService) Register(ctx context.Context, reg Registration) (string, types.Tenant, types.User, error) {
	reg.TenantName = strings.TrimSpace(reg.TenantName)
	reg.TenantSlug = normalizeSlug(reg.TenantSlug)
	reg.FullName = strings.TrimSpace(reg.FullName)
	reg.Email = normalizeEmail(reg.Email)
	if err := s.validate.Struct(reg); err != nil {
		return "", types.Tenant{}, types.User{}, err
	}

	hash, err := hashPassword(reg.Password)
	if err != nil {
		return "", types.Tenant{}, types.User{}, err
	}

	tenant, admin, err := s.tenants.CreateWithAdmin(ctx,
		types.Tenant{Name: reg.TenantName, Slug: reg.TenantSlug, IsActive: true},
		types.User{
			FullName:     reg.FullName,
			Email:        reg.Email,
			PasswordHash: hash,
			Role:         types.RoleTenantAdmin,
			IsActive:     true,
		},
	)
	if err != nil {
		return "", types.Tenant{}, types.User{}, err
	}

	token, err := s.IssueToken(admin)
	if err != nil {
		return "", types.Tenant{}, types.User{}, err
	}

	s.events.emit(ctx, types.EventTenantCreated, admin.TenantID, admin.ID, tenant)
	s.events.emit(ctx, types.EventUserCreated, admin.TenantID, admin.ID, admin)
	return token, tenant, admin, nil
}

// Login verifies credentials. An invalid tenantID addresses super-admins.
func (s *AuthService) Login(ctx context.Context, email, password string, tenantID uuid.NullUUID) (string, types.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", types.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", types.User{}, ErrInvalidCredentials
		}
		return "", types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", types.User{}, ErrInvalidCredentials
	}
	if err := s.checkActive(ctx, user); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return "", types.User{}, ErrInvalidCredentials
		}
		return "", types.User{}, err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", types.User{}, err
	}
	return token, user, nil
}

// Authenticate resolves a bearer token to its user. Tokens of unknown or
// deactivated users, or of users in a deactivated tenant, are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (types.User, error) {
	subject, err := s.parseSubject(token)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthorized
		}
		return types.User{}, err
	}
	if err := s.checkActive(ctx, user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (s *AuthService) checkActive(ctx context.Context, user types.User) error {
	if !user.IsActive {
		return ErrUnauthorized
	}
	if !user.TenantID.Valid {
		return nil
	}
	tenant, err := s.tenants.Get(ctx, user.TenantID.UUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !tenant.IsActive {
		return ErrUnauthorized
	}
	return nil
}

// IssueToken signs an HS256 token whose subject is the user ID.
func (s *AuthService) IssueToken(user types.User) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *AuthService) parseSubject(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
