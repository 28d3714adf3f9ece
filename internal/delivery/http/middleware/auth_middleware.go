package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"job-match/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

const (
	CtxUserIDKey = "user_id"
	CtxEmailKey  = "email"

	HeaderInternalToken = "X-Internal-Token"
)

type AuthMiddleware struct {
	jwt jwt.Validator
}

func NewAuthMiddleware(v jwt.Validator) *AuthMiddleware {
	return &AuthMiddleware{jwt: v}
}

func (m *AuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerTokenFromHeader(c.Get("Authorization"))
		if !ok {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		claims, err := m.jwt.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
			}
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, err)
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxEmailKey, claims.Email)

		return c.Next()
	}
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

// InternalTokenMiddleware guards service-to-service trigger routes with a
// shared token. An empty configured token rejects every request.
type InternalTokenMiddleware struct {
	token []byte
}

func NewInternalTokenMiddleware(token string) *InternalTokenMiddleware {
	return &InternalTokenMiddleware{token: []byte(strings.TrimSpace(token))}
}

func (m *InternalTokenMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		got := []byte(strings.TrimSpace(c.Get(HeaderInternalToken)))
		if len(m.token) == 0 || subtle.ConstantTimeCompare(got, m.token) != 1 {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}
		return c.Next()
	}
}
