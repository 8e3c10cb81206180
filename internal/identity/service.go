// Package identity provides user registration, authentication, and token
// lifecycle management.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/clinicdesk/clinicdesk/internal/pkg/ctxlog"
	"github.com/clinicdesk/clinicdesk/internal/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator mints and parses signed access tokens.
type Authenticator interface {
	Mint(user *domain.User) (*domain.AccessToken, string, error)
	Parse(token string) (userID string, role domain.Role, tokenID string, err error)
}

// Service implements identity business logic.
type Service struct {
	repo Repository
	auth Authenticator
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator) *Service {
	return &Service{repo: repo, auth: auth}
}

// RegisterInput holds data for registering a user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// Register creates a user with the named role and issues an access token.
// The user row, role attachment, and token record are written in one
// transaction: a failure leaves no partial state behind.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	if !input.Role.IsValid() {
		return nil, "", ErrInvalidRole
	}

	existing, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Roles:        []domain.Role{input.Role},
	}

	record, signed, err := s.auth.Mint(user)
	if err != nil {
		return nil, "", fmt.Errorf("mint token: %w", err)
	}

	if err := s.repo.CreateUserWithToken(ctx, user, input.Role, record); err != nil {
		// The unique index may beat the lookup above under concurrency.
		if errors.Is(err, ErrEmailExists) {
			return nil, "", ErrEmailExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	metrics.RegisteredUsers.WithLabelValues(string(input.Role)).Inc()

	return user, signed, nil
}

// Login verifies credentials and issues a fresh access token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	record, signed, err := s.auth.Mint(user)
	if err != nil {
		return nil, "", fmt.Errorf("mint token: %w", err)
	}

	if err := s.repo.SaveAccessToken(ctx, record); err != nil {
		return nil, "", fmt.Errorf("save token: %w", err)
	}

	return user, signed, nil
}

// ValidateToken resolves a signed token to the caller's identity. The token
// must carry a valid signature and its record must still exist server-side.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, domain.Role, string, error) {
	userID, role, tokenID, err := s.auth.Parse(token)
	if err != nil {
		return "", "", "", ErrInvalidToken
	}

	record, err := s.repo.GetAccessToken(ctx, tokenID)
	if err != nil {
		return "", "", "", ErrInvalidToken
	}
	if record == nil || record.UserID != userID || record.IsExpired() {
		return "", "", "", ErrInvalidToken
	}

	return userID, role, tokenID, nil
}

// Logout revokes the token record. Any later request presenting the same
// token fails authentication.
func (s *Service) Logout(ctx context.Context, tokenID string) error {
	if err := s.repo.DeleteAccessToken(ctx, tokenID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// GetUserByID loads a user with their roles.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// SweepExpiredTokens removes expired token records. Called periodically
// from the app.
func (s *Service) SweepExpiredTokens(ctx context.Context) {
	n, err := s.repo.DeleteExpiredAccessTokens(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).Error("sweep expired tokens", "error", err)
		return
	}
	if n > 0 {
		ctxlog.FromContext(ctx).Info("swept expired tokens", "count", n)
	}
}
