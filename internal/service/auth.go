package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cardvault/card-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// AuthService handles registration and login. It owns the User entity; the
// card service only reads identity and ownership.
type AuthService struct {
	users     UserStore
	audit     *AuditService
	clock     Clock
	log       *logrus.Logger
	jwtSecret string
}

// NewAuthService initializes a new auth service
func NewAuthService(users UserStore, audit *AuditService, clock Clock, log *logrus.Logger, jwtSecret string) *AuthService {
	return &AuthService{users: users, audit: audit, clock: clock, log: log, jwtSecret: jwtSecret}
}

// Register creates a new user with a hashed password.
func (s *AuthService) Register(ctx context.Context, meta RequestMeta, username, email, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         models.RoleUser,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.audit.Log(ctx, meta, models.ActionUserRegistered, models.EntityUser, &user.ID,
		fmt.Sprintf("User registered: %s", username))
	s.log.WithField("username", username).Info("User registered")
	return user, nil
}

// Login authenticates a user and returns a signed JWT.
func (s *AuthService) Login(ctx context.Context, meta RequestMeta, username, password string) (string, error) {
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": user.Role,
		"exp":  jwt.NewNumericDate(now.Add(tokenTTL)),
		"iat":  jwt.NewNumericDate(now),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	meta.UserID = &user.ID
	s.audit.Log(ctx, meta, models.ActionUserLogin, models.EntityUser, &user.ID,
		fmt.Sprintf("User logged in: %s", username))
	s.log.WithField("username", username).Info("User logged in")
	return tokenString, nil
}
