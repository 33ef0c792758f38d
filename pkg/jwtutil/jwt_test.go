package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/tradenet/pkg/config"
)

func setup(t *testing.T, access, refresh time.Duration) {
	t.Helper()
	previous := jwtConfig
	Initialize(&config.JWTConfig{SigningKey: "test-key", AccessTTL: access, RefreshTTL: refresh})
	t.Cleanup(func() { jwtConfig = previous })
}

func TestGeneratePairRoundTrip(t *testing.T) {
	setup(t, time.Minute, time.Hour)

	pair, err := GeneratePair("vvv@list.ru", 7)
	require.NoError(t, err)

	access, err := ValidateToken(pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), access.UserID)
	assert.Equal(t, "vvv@list.ru", access.Email)
	assert.NotEmpty(t, access.ID)

	refresh, err := ValidateToken(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
}

func TestValidateTokenRejectsWrongType(t *testing.T) {
	setup(t, time.Minute, time.Hour)

	pair, err := GeneratePair("vvv@list.ru", 1)
	require.NoError(t, err)

	_, err = ValidateToken(pair.Refresh, AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = ValidateToken(pair.Access, RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	setup(t, -time.Minute, time.Hour)

	pair, err := GeneratePair("vvv@list.ru", 1)
	require.NoError(t, err)

	_, err = ValidateToken(pair.Access, AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	setup(t, time.Minute, time.Hour)
	pair, err := GeneratePair("vvv@list.ru", 1)
	require.NoError(t, err)

	Initialize(&config.JWTConfig{SigningKey: "other-key", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	_, err = ValidateToken(pair.Access, AccessToken)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestGenerateAccessFromRefresh(t *testing.T) {
	setup(t, time.Minute, time.Hour)

	pair, err := GeneratePair("vvv@list.ru", 3)
	require.NoError(t, err)
	refresh, err := ValidateToken(pair.Refresh, RefreshToken)
	require.NoError(t, err)

	access, err := GenerateAccess(refresh)
	require.NoError(t, err)
	claims, err := ValidateToken(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
}

func TestUninitialized(t *testing.T) {
	previous := jwtConfig
	jwtConfig = nil
	defer func() { jwtConfig = previous }()

	_, err := GeneratePair("vvv@list.ru", 1)
	assert.Error(t, err)
	_, err = ValidateToken("x", AccessToken)
	assert.Error(t, err)
}
