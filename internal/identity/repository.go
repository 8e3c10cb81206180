package identity

import (
	"context"

	"github.com/clinicdesk/clinicdesk/internal/domain"
)

// Repository defines the interface for user, role, and token persistence.
type Repository interface {
	// CreateUserWithToken persists the user, attaches the named role, and
	// stores the access token record in a single transaction. Either all
	// three writes land or none do.
	CreateUserWithToken(ctx context.Context, user *domain.User, role domain.Role, token *domain.AccessToken) error

	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	GetRoleByName(ctx context.Context, name domain.Role) (*domain.RoleRef, error)

	SaveAccessToken(ctx context.Context, token *domain.AccessToken) error
	GetAccessToken(ctx context.Context, id string) (*domain.AccessToken, error)
	DeleteAccessToken(ctx context.Context, id string) error
	DeleteExpiredAccessTokens(ctx context.Context) (int64, error)
}
