package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

func jwtConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "krc", ExpirationMinutes: minutes}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := jwtConfig(30)
	now := time.Now().UTC().Truncate(time.Second)
	accountID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		AccountID: accountID,
		Email:     "guest@example.com",
		Roles:     []enums.Role{enums.RoleCustomer},
		JTI:       "access-123",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, "guest@example.com", claims.Email)
	assert.True(t, claims.HasRole(enums.RoleCustomer))
	assert.False(t, claims.HasRole(enums.RoleStaff))
	assert.Equal(t, "access-123", claims.ID)
	assert.Equal(t, accountID.String(), claims.Subject)
	assert.Equal(t, "krc", claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := jwtConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AccountID: uuid.New(), JTI: "  "})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	cfg := jwtConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AccountID: uuid.New(), Roles: []enums.Role{enums.RoleStaff}})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	assert.Error(t, err)

	wrongKey := cfg
	wrongKey.Secret = "other-secret"
	_, err = ParseAccessToken(wrongKey, token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{AccountID: uuid.New()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, unsigned)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := jwtConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{AccountID: uuid.New()})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := jwtConfig(5)
	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"no account":  {cfg, AccessTokenPayload{}},
		"bad role":    {cfg, AccessTokenPayload{AccountID: uuid.New(), Roles: []enums.Role{"wizard"}}},
		"no secret":   {config.JWTConfig{Issuer: "krc", ExpirationMinutes: 5}, AccessTokenPayload{AccountID: uuid.New()}},
		"no issuer":   {config.JWTConfig{Secret: "s", ExpirationMinutes: 5}, AccessTokenPayload{AccountID: uuid.New()}},
		"no lifetime": {config.JWTConfig{Secret: "s", Issuer: "krc"}, AccessTokenPayload{AccountID: uuid.New()}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MintAccessToken(tc.cfg, time.Now(), tc.payload)
			assert.Error(t, err)
		})
	}
}

func TestHasRoleOnNilClaims(t *testing.T) {
	var claims *AccessTokenClaims
	assert.False(t, claims.HasRole(enums.RoleStaff))
}
