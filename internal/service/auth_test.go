package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tree-garden/internal/models"

	"github.com/golang-jwt/jwt/v4"
)

type mockAuthDB struct {
	GetUserAuthDataFunc func(username string) (models.User, error)
	IsAdministratorFunc func(userID int) (bool, error)
}

func (m *mockAuthDB) GetUserAuthData(username string) (models.User, error) {
	return m.GetUserAuthDataFunc(username)
}

func (m *mockAuthDB) IsAdministrator(userID int) (bool, error) {
	return m.IsAdministratorFunc(userID)
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	mockDB := &mockAuthDB{
		GetUserAuthDataFunc: func(username string) (models.User, error) {
			if username == "gardener" {
				return models.User{ID: 1, Username: "gardener", PasswordHash: "secret", IsAdmin: true}, nil
			}
			return models.User{}, errors.New("not found")
		},
	}
	authSvc := NewAuthService(mockDB, &mockLogger{}, "jwtSecret")

	tokenStr, err := authSvc.Authenticate("gardener", "secret")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if tokenStr == "" {
		t.Errorf("expected non-empty token")
	}
	parsed, err := jwt.Parse(tokenStr, func(tok *jwt.Token) (interface{}, error) {
		return []byte("jwtSecret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Errorf("failed to parse or invalid token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type: %T", parsed.Claims)
	}
	if claims["user_id"] != float64(1) || claims["username"] != "gardener" {
		t.Errorf("unexpected claims: %v", claims)
	}
	if claims["is_admin"] != true {
		t.Errorf("expected is_admin claim, got %v", claims["is_admin"])
	}
	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		t.Errorf("expected a future expiry, got %v", claims["exp"])
	}
}

func TestAuthService_Authenticate_WrongPassword(t *testing.T) {
	mockDB := &mockAuthDB{
		GetUserAuthDataFunc: func(username string) (models.User, error) {
			return models.User{ID: 1, Username: username, PasswordHash: "secret"}, nil
		},
	}
	authSvc := NewAuthService(mockDB, &mockLogger{}, "jwtSecret")

	if _, err := authSvc.Authenticate("gardener", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	} else if !strings.Contains(err.Error(), "invalid credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthService_Authenticate_UnknownUser(t *testing.T) {
	mockDB := &mockAuthDB{
		GetUserAuthDataFunc: func(username string) (models.User, error) {
			return models.User{}, errors.New("no rows")
		},
	}
	authSvc := NewAuthService(mockDB, &mockLogger{}, "jwtSecret")

	if _, err := authSvc.Authenticate("ghost", "secret"); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestAuthService_Authenticate_EmptySecret(t *testing.T) {
	mockDB := &mockAuthDB{
		GetUserAuthDataFunc: func(username string) (models.User, error) {
			t.Fatal("db must not be consulted with an empty secret")
			return models.User{}, nil
		},
	}
	authSvc := NewAuthService(mockDB, &mockLogger{}, "")

	if _, err := authSvc.Authenticate("gardener", "secret"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
