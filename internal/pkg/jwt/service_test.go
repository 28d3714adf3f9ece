package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, c Claims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func claims(tokenType string, exp time.Time) Claims {
	return Claims{
		UserID:    uuid.New(),
		TokenType: tokenType,
		ExpiredAt: exp,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}
}

func TestHMACValidator(t *testing.T) {
	v := NewHMACValidator("secret")
	future := time.Now().Add(time.Hour)

	c := claims(TokenTypeAccess, future)
	got, err := v.ValidateAccessToken(sign(t, "secret", c))
	require.NoError(t, err)
	assert.Equal(t, c.UserID, got.UserID)

	_, err = v.ValidateAccessToken(sign(t, "other", c))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = v.ValidateAccessToken(sign(t, "secret", claims(TokenTypeRefresh, future)))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = v.ValidateAccessToken(sign(t, "secret", claims(TokenTypeAccess, time.Now().Add(-time.Minute))))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = NewHMACValidator("").ValidateAccessToken(sign(t, "secret", c))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
