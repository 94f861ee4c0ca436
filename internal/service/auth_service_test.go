package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/config"
)

func newTestAuth() *AuthService {
	return NewAuthService(config.AuthConfig{
		OperatorUsername: "admin",
		OperatorPassword: "s3cret",
		JWTSecret:        "test-secret",
		TokenDuration:    3600,
	})
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	svc := newTestAuth()

	resp, err := svc.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Contains(t, resp.OperatorID, "op_")

	claims, err := svc.ValidateOperatorToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.OperatorID, claims.OperatorID)
	assert.Equal(t, "admin", claims.Subject)
}

func TestAuthService_BadCredentials(t *testing.T) {
	svc := newTestAuth()

	_, err := svc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	disabled := NewAuthService(config.AuthConfig{OperatorUsername: "admin", JWTSecret: "x", TokenDuration: 60})
	_, err = disabled.Login("admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	svc := newTestAuth()
	resp, err := svc.Login("admin", "s3cret")
	require.NoError(t, err)

	_, err = svc.ValidateOperatorToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(config.AuthConfig{OperatorUsername: "admin", OperatorPassword: "s3cret", JWTSecret: "other", TokenDuration: 3600})
	_, err = other.ValidateOperatorToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateOperatorToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
