package service

import (
	"errors"
	"fmt"
	"time"

	"tree-garden/internal/db"
	"tree-garden/pkg"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

type AuthService interface {
	Authenticate(username, password string) (string, error)
}

// Authorizer is the administrative capability check consulted before every
// catalog mutation. db.AuthDB satisfies it.
type Authorizer interface {
	IsAdministrator(userID int) (bool, error)
}

type authService struct {
	authDB    db.AuthDB
	log       pkg.Logger
	jwtSecret string
}

func NewAuthService(authDB db.AuthDB, logger pkg.Logger, jwtSecret string) AuthService {
	return &authService{
		authDB:    authDB,
		log:       logger,
		jwtSecret: jwtSecret,
	}
}

func (s *authService) Authenticate(username, password string) (string, error) {
	if s.jwtSecret == "" {
		s.log.Error("auth: empty JWT secret key")
		return "", errors.New("could not generate token: empty secret key")
	}
	user, err := s.authDB.GetUserAuthData(username)
	if err != nil {
		s.log.Warn("invalid credentials", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("invalid credentials: %w", err)
	}
	if user.PasswordHash != password {
		s.log.Warn("invalid credentials: password mismatch", zap.String("username", username))
		return "", fmt.Errorf("invalid credentials: password mismatch")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"exp":      time.Now().Add(1 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		s.log.Error("failed to generate token", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("could not generate token: %w", err)
	}
	s.log.Info("User authenticated", zap.Int("userID", user.ID), zap.String("username", username))
	return tokenString, nil
}
