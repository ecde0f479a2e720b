package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"shopfront/internal/domain"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
)

// Mock repositories for testing
type mockUserRepository struct {
	users       map[string]*domain.User
	orderCounts map[uuid.UUID]int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:       make(map[string]*domain.User),
		orderCounts: make(map[uuid.UUID]int),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, search string, page, pageSize int) ([]*domain.User, int, error) {
	matched := []*domain.User{}
	for _, user := range m.users {
		if search == "" || strings.Contains(user.Name, search) || strings.Contains(user.Email, search) {
			matched = append(matched, user)
		}
	}
	return matched, len(matched), nil
}

func (m *mockUserRepository) CountOrders(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.orderCounts[userID], nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	for email, user := range m.users {
		if user.ID == id {
			delete(m.users, email)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func TestProperty_RegistrationCreatesHashedPasswords(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("passwords are hashed with bcrypt and not stored as plaintext", prop.ForAll(
		func(name string, email string, password string) bool {
			userRepo := newMockUserRepository()
			refreshTokenRepo := newMockRefreshTokenRepository()
			service := NewUserService(userRepo, refreshTokenRepo, "test-secret")
			ctx := context.Background()

			user, err := service.Register(ctx, name, email, password)
			if err != nil {
				return true // Skip if registration fails
			}

			if user.PasswordHash == password {
				t.Logf("FAIL: Password stored as plaintext for email %s", email)
				return false
			}

			err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
			if err != nil {
				t.Logf("FAIL: Password hash is not a valid bcrypt hash or doesn't match: %v", err)
				return false
			}

			storedUser, err := userRepo.FindByEmail(ctx, email)
			if err != nil {
				t.Logf("FAIL: Could not find stored user: %v", err)
				return false
			}

			if storedUser.PasswordHash != user.PasswordHash {
				t.Logf("FAIL: Stored password hash doesn't match returned password hash")
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_JWTTokensContainRequiredClaims(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("access tokens contain user ID and role claims", prop.ForAll(
		func(name string, email string, password string, role domain.Role) bool {
			userRepo := newMockUserRepository()
			refreshTokenRepo := newMockRefreshTokenRepository()
			service := NewUserService(userRepo, refreshTokenRepo, "test-secret-key")
			ctx := context.Background()

			user, err := service.Register(ctx, name, email, password)
			if err != nil {
				return true // Skip if registration fails
			}

			// Override role for testing
			user.Role = role
			userRepo.users[email] = user

			accessToken, _, _, err := service.Login(ctx, email, password)
			if err != nil {
				t.Logf("FAIL: Login failed: %v", err)
				return false
			}

			claims, err := service.ValidateToken(accessToken)
			if err != nil {
				t.Logf("FAIL: Token validation failed: %v", err)
				return false
			}

			if claims.UserID != user.ID {
				t.Logf("FAIL: User ID claim mismatch. Expected %s, got %s", user.ID, claims.UserID)
				return false
			}

			if claims.Role != role {
				t.Logf("FAIL: Role claim mismatch. Expected %s, got %s", role, claims.Role)
				return false
			}

			if claims.ExpiresAt == nil {
				t.Logf("FAIL: Token missing expiration claim")
				return false
			}

			if claims.IssuedAt == nil {
				t.Logf("FAIL: Token missing issued at claim")
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.OneConstOf(domain.RoleUser, domain.RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_TokenRefreshRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid refresh token returns new valid access token", prop.ForAll(
		func(name string, email string, password string) bool {
			userRepo := newMockUserRepository()
			refreshTokenRepo := newMockRefreshTokenRepository()
			service := NewUserService(userRepo, refreshTokenRepo, "test-secret-key")
			ctx := context.Background()

			_, err := service.Register(ctx, name, email, password)
			if err != nil {
				return true // Skip if registration fails
			}

			_, refreshToken, user, err := service.Login(ctx, email, password)
			if err != nil {
				t.Logf("FAIL: Login failed: %v", err)
				return false
			}

			newAccessToken, err := service.RefreshToken(ctx, refreshToken)
			if err != nil {
				t.Logf("FAIL: Token refresh failed: %v", err)
				return false
			}

			claims, err := service.ValidateToken(newAccessToken)
			if err != nil {
				t.Logf("FAIL: New access token validation failed: %v", err)
				return false
			}

			if claims.UserID != user.ID {
				t.Logf("FAIL: User ID mismatch in refreshed token")
				return false
			}

			if claims.Role != user.Role {
				t.Logf("FAIL: Role mismatch in refreshed token")
				return false
			}

			if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
				t.Logf("FAIL: Refreshed token is already expired")
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_LogoutInvalidatesRefreshToken(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("logout marks refresh token as revoked", prop.ForAll(
		func(name string, email string, password string) bool {
			userRepo := newMockUserRepository()
			refreshTokenRepo := newMockRefreshTokenRepository()
			service := NewUserService(userRepo, refreshTokenRepo, "test-secret-key")
			ctx := context.Background()

			_, err := service.Register(ctx, name, email, password)
			if err != nil {
				return true // Skip if registration fails
			}

			_, refreshToken, _, err := service.Login(ctx, email, password)
			if err != nil {
				t.Logf("FAIL: Login failed: %v", err)
				return false
			}

			_, err = service.RefreshToken(ctx, refreshToken)
			if err != nil {
				t.Logf("FAIL: Refresh token should work before logout: %v", err)
				return false
			}

			err = service.Logout(ctx, refreshToken)
			if err != nil {
				t.Logf("FAIL: Logout failed: %v", err)
				return false
			}

			_, err = service.RefreshToken(ctx, refreshToken)
			if err != ErrInvalidToken {
				t.Logf("FAIL: Expected ErrInvalidToken after logout, got: %v", err)
				return false
			}

			_, err = refreshTokenRepo.FindByToken(ctx, refreshToken)
			if err != repository.ErrRefreshTokenRevoked {
				t.Logf("FAIL: Token should be revoked in repository, got error: %v", err)
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_DefaultsToUserRole(t *testing.T) {
	userRepo := newMockUserRepository()
	service := NewUserService(userRepo, newMockRefreshTokenRepository(), "test-secret")

	user, err := service.Register(context.Background(), "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if user.Role != domain.RoleUser {
		t.Errorf("expected new accounts to get role USER, got %s", user.Role)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	userRepo := newMockUserRepository()
	service := NewUserService(userRepo, newMockRefreshTokenRepository(), "test-secret")
	ctx := context.Background()

	if _, err := service.Register(ctx, "Alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := service.Register(ctx, "Other Alice", "alice@example.com", "different456")
	if err != repository.ErrUserAlreadyExists {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestDeleteUser_SelfDeletionRejected(t *testing.T) {
	userRepo := newMockUserRepository()
	service := NewUserService(userRepo, newMockRefreshTokenRepository(), "test-secret")

	admin, err := service.Register(context.Background(), "Admin", "admin@example.com", "password123")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	err = service.DeleteUser(context.Background(), admin.ID, admin.ID)
	if err != ErrSelfDeletion {
		t.Fatalf("expected ErrSelfDeletion, got %v", err)
	}
}

func TestDeleteUser_UserWithOrdersProtected(t *testing.T) {
	userRepo := newMockUserRepository()
	service := NewUserService(userRepo, newMockRefreshTokenRepository(), "test-secret")
	ctx := context.Background()

	admin, err := service.Register(ctx, "Admin", "admin@example.com", "password123")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	customer, err := service.Register(ctx, "Customer", "customer@example.com", "password123")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	userRepo.orderCounts[customer.ID] = 3

	err = service.DeleteUser(ctx, admin.ID, customer.ID)
	if err != repository.ErrUserHasOrders {
		t.Fatalf("expected ErrUserHasOrders, got %v", err)
	}
}

func TestDeleteUser_RemovesAccount(t *testing.T) {
	userRepo := newMockUserRepository()
	service := NewUserService(userRepo, newMockRefreshTokenRepository(), "test-secret")
	ctx := context.Background()

	admin, err := service.Register(ctx, "Admin", "admin@example.com", "password123")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	customer, err := service.Register(ctx, "Customer", "customer@example.com", "password123")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if err := service.DeleteUser(ctx, admin.ID, customer.ID); err != nil {
		t.Fatalf("expected deletion to succeed, got %v", err)
	}

	if _, err := userRepo.FindByID(ctx, customer.ID); err != repository.ErrUserNotFound {
		t.Errorf("expected user to be gone, got %v", err)
	}
}
