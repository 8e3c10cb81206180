// Package postgres provides PostgreSQL implementation of the identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/clinicdesk/clinicdesk/internal/identity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository implements the identity.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateUserWithToken creates the user, attaches the role, and stores the
// access token record in one transaction.
func (r *Repository) CreateUserWithToken(ctx context.Context, user *domain.User, role domain.Role, token *domain.AccessToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, user.ID, user.Name, user.Email, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	// Roles are seeded by migration; upsert keeps registration working
	// even if the reference row is missing.
	var roleID string
	err = tx.QueryRow(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, role).Scan(&roleID)
	if err != nil {
		return fmt.Errorf("ensure role: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
	`, user.ID, roleID)
	if err != nil {
		return fmt.Errorf("attach role: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO access_tokens (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, token.ID, token.UserID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert access token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user with their roles.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user with their roles.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *Repository) getUser(ctx context.Context, column, value string) (*domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, column)

	var user domain.User
	err := r.db.QueryRow(ctx, query, value).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}

	roles, err := r.getUserRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return &user, nil
}

// getUserRoles loads roles in assignment order; the first one is the
// user's primary role.
func (r *Repository) getUserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.assigned_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0, 1)
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

// GetRoleByName retrieves a role reference row.
func (r *Repository) GetRoleByName(ctx context.Context, name domain.Role) (*domain.RoleRef, error) {
	var ref domain.RoleRef
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description FROM roles WHERE name = $1
	`, name).Scan(&ref.ID, &ref.Name, &ref.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return &ref, nil
}

// SaveAccessToken stores an access token record.
func (r *Repository) SaveAccessToken(ctx context.Context, token *domain.AccessToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO access_tokens (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, token.ID, token.UserID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return nil
}

// GetAccessToken retrieves a token record, or ErrInvalidToken if absent.
func (r *Repository) GetAccessToken(ctx context.Context, id string) (*domain.AccessToken, error) {
	var token domain.AccessToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, expires_at, created_at
		FROM access_tokens
		WHERE id = $1
	`, id).Scan(&token.ID, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get access token: %w", err)
	}
	return &token, nil
}

// DeleteAccessToken removes a token record. Deleting an already-deleted
// token is not an error.
func (r *Repository) DeleteAccessToken(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete access token: %w", err)
	}
	return nil
}

// DeleteExpiredAccessTokens removes expired token records.
func (r *Repository) DeleteExpiredAccessTokens(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM access_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
