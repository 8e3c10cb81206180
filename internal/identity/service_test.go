package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users  map[string]*domain.User // keyed by email
	tokens map[string]*domain.AccessToken

	createErr      error
	getUserByEmail func(email string) (*domain.User, error)
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:  make(map[string]*domain.User),
		tokens: make(map[string]*domain.AccessToken),
	}
}

func (m *mockRepository) CreateUserWithToken(_ context.Context, user *domain.User, _ domain.Role, token *domain.AccessToken) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.users[user.Email] = user
	m.tokens[token.ID] = token
	return nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.getUserByEmail != nil {
		return m.getUserByEmail(email)
	}
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetRoleByName(_ context.Context, name domain.Role) (*domain.RoleRef, error) {
	return &domain.RoleRef{ID: "role-" + string(name), Name: name}, nil
}

func (m *mockRepository) SaveAccessToken(_ context.Context, token *domain.AccessToken) error {
	m.tokens[token.ID] = token
	return nil
}

func (m *mockRepository) GetAccessToken(_ context.Context, id string) (*domain.AccessToken, error) {
	if t, ok := m.tokens[id]; ok {
		return t, nil
	}
	return nil, ErrInvalidToken
}

func (m *mockRepository) DeleteAccessToken(_ context.Context, id string) error {
	delete(m.tokens, id)
	return nil
}

func (m *mockRepository) DeleteExpiredAccessTokens(_ context.Context) (int64, error) {
	var n int64
	for id, t := range m.tokens {
		if t.IsExpired() {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

// mockAuthenticator implements Authenticator for testing. It mints
// predictable tokens and parses them back by lookup.
type mockAuthenticator struct {
	nextTokenID string
	minted      map[string]*domain.AccessToken // signed -> record
	mintedRole  map[string]domain.Role
	mintErr     error
}

func newMockAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{
		nextTokenID: "token-1",
		minted:      make(map[string]*domain.AccessToken),
		mintedRole:  make(map[string]domain.Role),
	}
}

func (m *mockAuthenticator) Mint(user *domain.User) (*domain.AccessToken, string, error) {
	if m.mintErr != nil {
		return nil, "", m.mintErr
	}
	record := &domain.AccessToken{
		ID:        m.nextTokenID,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	signed := "signed-" + m.nextTokenID
	m.minted[signed] = record
	m.mintedRole[signed] = user.PrimaryRole()
	return record, signed, nil
}

func (m *mockAuthenticator) Parse(token string) (string, domain.Role, string, error) {
	record, ok := m.minted[token]
	if !ok {
		return "", "", "", errors.New("bad signature")
	}
	return record.UserID, m.mintedRole[token], record.ID, nil
}

func TestRegister_CreatesUserWithRoleAndToken(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	auth := newMockAuthenticator()
	service := NewService(repo, auth)

	// Act
	user, token, err := service.Register(context.Background(), RegisterInput{
		Name:     "Dr. Alice",
		Email:    "alice@example.com",
		Password: "password123",
		Role:     domain.RoleDoctor,
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "signed-token-1", token)
	assert.Equal(t, []domain.Role{domain.RoleDoctor}, user.Roles)

	// Password stored hashed, not plain
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))

	// Token record landed alongside the user
	record, err := repo.GetAccessToken(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, record.UserID)
}

func TestRegister_InvalidRole(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, newMockAuthenticator())

	user, token, err := service.Register(context.Background(), RegisterInput{
		Name:     "Mallory",
		Email:    "mallory@example.com",
		Password: "password123",
		Role:     "superuser",
	})

	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Empty(t, repo.users, "no user should be created")
}

func TestRegister_EmailAlreadyExists(t *testing.T) {
	repo := newMockRepository()
	repo.users["existing@example.com"] = &domain.User{ID: "u1", Email: "existing@example.com"}
	service := NewService(repo, newMockAuthenticator())

	user, _, err := service.Register(context.Background(), RegisterInput{
		Name:     "Eve",
		Email:    "existing@example.com",
		Password: "password123",
		Role:     domain.RolePatient,
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_ConcurrentDuplicateMapsToEmailExists(t *testing.T) {
	// The repository reports the unique-index violation even though the
	// pre-check saw no user.
	repo := newMockRepository()
	repo.createErr = ErrEmailExists
	service := NewService(repo, newMockAuthenticator())

	user, _, err := service.Register(context.Background(), RegisterInput{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "password123",
		Role:     domain.RolePatient,
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_CreateFailsLeavesNoToken(t *testing.T) {
	repo := newMockRepository()
	repo.createErr = errors.New("database error")
	service := NewService(repo, newMockAuthenticator())

	user, token, err := service.Register(context.Background(), RegisterInput{
		Name:     "Carol",
		Email:    "carol@example.com",
		Password: "password123",
		Role:     domain.RoleReceptionist,
	})

	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.Error(t, err)
	assert.Empty(t, repo.tokens, "no token record should survive a failed registration")
}

func registerTestUser(t *testing.T, service *Service, email, password string, role domain.Role) (*domain.User, string) {
	t.Helper()
	user, token, err := service.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: password,
		Role:     role,
	})
	require.NoError(t, err)
	return user, token
}

func TestLogin_Success(t *testing.T) {
	repo := newMockRepository()
	auth := newMockAuthenticator()
	service := NewService(repo, auth)
	registered, _ := registerTestUser(t, service, "alice@example.com", "password123", domain.RoleDoctor)

	auth.nextTokenID = "token-2"
	user, token, err := service.Login(context.Background(), "alice@example.com", "password123")

	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "signed-token-2", token)

	// A fresh token record was persisted
	record, err := repo.GetAccessToken(context.Background(), "token-2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, record.UserID)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, newMockAuthenticator())
	registerTestUser(t, service, "alice@example.com", "password123", domain.RoleDoctor)

	user, _, err := service.Login(context.Background(), "alice@example.com", "wrong-password")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	service := NewService(newMockRepository(), newMockAuthenticator())

	user, _, err := service.Login(context.Background(), "nobody@example.com", "password123")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_Success(t *testing.T) {
	repo := newMockRepository()
	auth := newMockAuthenticator()
	service := NewService(repo, auth)
	user, signed := registerTestUser(t, service, "alice@example.com", "password123", domain.RoleDoctor)

	userID, role, tokenID, err := service.ValidateToken(context.Background(), signed)

	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, domain.RoleDoctor, role)
	assert.Equal(t, "token-1", tokenID)
}

func TestValidateToken_BadSignature(t *testing.T) {
	service := NewService(newMockRepository(), newMockAuthenticator())

	_, _, _, err := service.ValidateToken(context.Background(), "garbage")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_RevokedRecord(t *testing.T) {
	// A structurally valid token whose server-side record is gone must fail.
	repo := newMockRepository()
	auth := newMockAuthenticator()
	service := NewService(repo, auth)
	_, signed := registerTestUser(t, service, "alice@example.com", "password123", domain.RoleDoctor)

	require.NoError(t, service.Logout(context.Background(), "token-1"))

	_, _, _, err := service.ValidateToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_ExpiredRecord(t *testing.T) {
	repo := newMockRepository()
	auth := newMockAuthenticator()
	service := NewService(repo, auth)
	_, signed := registerTestUser(t, service, "alice@example.com", "password123", domain.RoleDoctor)

	repo.tokens["token-1"].ExpiresAt = time.Now().Add(-time.Minute)

	_, _, _, err := service.ValidateToken(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSweepExpiredTokens(t *testing.T) {
	repo := newMockRepository()
	repo.tokens["stale"] = &domain.AccessToken{ID: "stale", UserID: "u1", ExpiresAt: time.Now().Add(-time.Hour)}
	repo.tokens["live"] = &domain.AccessToken{ID: "live", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	service := NewService(repo, newMockAuthenticator())

	service.SweepExpiredTokens(context.Background())

	_, err := repo.GetAccessToken(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = repo.GetAccessToken(context.Background(), "live")
	assert.NoError(t, err)
}
