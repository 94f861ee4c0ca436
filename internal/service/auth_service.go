package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"surveybot/internal/config"
	"surveybot/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService issues and checks operator tokens for the operator API
type AuthService struct {
	username  string
	password  string
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthService creates an auth service from the auth config section
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		username:  cfg.OperatorUsername,
		password:  cfg.OperatorPassword,
		jwtSecret: []byte(cfg.JWTSecret),
		ttl:       cfg.TokenDurationTime(),
		now:       time.Now,
	}
}

// Login checks operator credentials and returns a signed token. An empty configured
// password disables login.
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if s.password == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	operatorID := "op_" + uuid.New().String()[:8]
	now := s.now()
	expires := now.Add(s.ttl)

	claims := &model.OperatorClaims{
		OperatorID: operatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &model.LoginResponse{
		Token:      tokenString,
		OperatorID: operatorID,
		ExpiresAt:  expires.Unix(),
	}, nil
}

// ValidateOperatorToken validates an operator JWT and returns its claims
func (s *AuthService) ValidateOperatorToken(tokenString string) (*model.OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.OperatorClaims)
	if !ok || !token.Valid || claims.OperatorID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
