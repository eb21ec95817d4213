package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gin-admin-kit/internal/models"
	appErrors "github.com/noah-isme/gin-admin-kit/pkg/errors"
)

func TestTokenServiceAccessClaims(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "gin-admin-kit"})
	now := time.Now()
	user := &models.User{ID: "u-1", Role: models.RoleAdmin}

	token, err := svc.IssueAccess(user, now)
	require.NoError(t, err)

	claims, err := svc.ValidateAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "gin-admin-kit", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestTokenServiceRejectsRefreshAsAccess(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	refresh, err := svc.IssueRefresh("u-1", "token-id", time.Now())
	require.NoError(t, err)

	claims, err := svc.Parse(refresh)
	require.NoError(t, err)
	assert.Equal(t, "token-id", claims.ID)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)

	_, err = svc.ValidateAccess(refresh)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	claims := &models.JWTClaims{Type: models.TokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestTokenServiceExpired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", AccessTTL: time.Minute})
	token, err := svc.IssueAccess(&models.User{ID: "u-1"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = svc.ValidateAccess(token)
	assert.ErrorIs(t, err, appErrors.ErrTokenExpired)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashToken(""))
	assert.Len(t, HashToken("abc"), 64)
}
