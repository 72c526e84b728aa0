package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret", 12*time.Hour)

	token, err := s.GenerateToken("user-1")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.WithinDuration(t, claims.IssuedAt.Add(12*time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestJWTService_GenerateRequiresUser(t *testing.T) {
	_, err := NewJWTService("secret", time.Hour).GenerateToken("")
	assert.Error(t, err)
}

func TestJWTService_Rejects(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
			Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte("secret"), jwt.RegisteredClaims{
			Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})},
		{"none algorithm", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{
			Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})},
		{"expired", sign(jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
			Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		})},
		{"missing expiry", sign(jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
			Subject: "u",
		})},
		{"missing subject", sign(jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTService_ExpiresAfterTTL(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	s.now = func() time.Time { return issued }
	token, err := s.GenerateToken("u")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
