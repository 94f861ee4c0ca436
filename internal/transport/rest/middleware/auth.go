package middleware

import (
	"context"
	"net/http"
	"strings"

	"surveybot/internal/model"
)

type contextKey string

const (
	OperatorIDKey contextKey = "operatorId"
)

// TokenValidator checks operator tokens
type TokenValidator interface {
	ValidateOperatorToken(token string) (*model.OperatorClaims, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireOperator validates an operator JWT from the Authorization header or the token
// query parameter (browsers cannot set headers on WebSocket upgrades)
func (m *AuthMiddleware) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization")
			return
		}

		claims, err := m.validator.ValidateOperatorToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), OperatorIDKey, claims.OperatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOperatorID extracts operator ID from context
func GetOperatorID(ctx context.Context) string {
	if v, ok := ctx.Value(OperatorIDKey).(string); ok {
		return v
	}
	return ""
}

// ExtractToken returns the bearer token, falling back to the token query parameter
func ExtractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}` + "\n"))
}
