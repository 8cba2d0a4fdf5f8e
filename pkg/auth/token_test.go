package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "nightshift", ExpirationMinutes: 30}
}

func mint(t *testing.T, cfg config.JWTConfig, now time.Time) string {
	t.Helper()
	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		TenantID: uuid.New(),
		ActorID:  uuid.New(),
		Role:     enums.ActorRoleWorker,
	})
	require.NoError(t, err)
	return token
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	tenantID, actorID := uuid.New(), uuid.New()

	token, err := MintAccessToken(cfg, time.Now().UTC(), AccessTokenPayload{
		TenantID:  tenantID,
		ActorID:   actorID,
		Role:      enums.ActorRoleManager,
		ActorName: "Riley",
		HumanID:   "EMP-101",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, actorID, claims.ActorID)
	assert.Equal(t, actorID.String(), claims.Subject)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.Equal(t, "EMP-101", claims.HumanID)

	p, err := claims.Principal()
	require.NoError(t, err)
	assert.Equal(t, enums.ActorRoleManager, p.Role)
	assert.Equal(t, "Riley", p.ActorName)
}

func TestParseAccessTokenRejections(t *testing.T) {
	cfg := testConfig()

	otherSecret := cfg
	otherSecret.Secret = "other"
	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
		TenantID: uuid.New(),
		ActorID:  uuid.New(),
		Role:     enums.ActorRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		cfg   config.JWTConfig
		token string
	}{
		{"expired", cfg, mint(t, cfg, time.Now().Add(-2*time.Hour))},
		{"wrong secret", otherSecret, mint(t, cfg, time.Now())},
		{"wrong issuer", otherIssuer, mint(t, cfg, time.Now())},
		{"alg none", cfg, unsigned},
		{"garbage", cfg, "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccessToken(tt.cfg, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseAccessTokenAllowsSmallClockSkew(t *testing.T) {
	cfg := testConfig()
	token := mint(t, cfg, time.Now().Add(10*time.Second))
	_, err := ParseAccessToken(cfg, token)
	assert.NoError(t, err)
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	_, err := MintAccessToken(testConfig(), time.Now(), AccessTokenPayload{Role: enums.ActorRoleAdmin})
	assert.Error(t, err, "missing ids")

	_, err = MintAccessToken(testConfig(), time.Now(), AccessTokenPayload{TenantID: uuid.New(), ActorID: uuid.New(), Role: "OWNER"})
	assert.Error(t, err, "invalid role")

	noTTL := testConfig()
	noTTL.ExpirationMinutes = 0
	_, err = MintAccessToken(noTTL, time.Now(), AccessTokenPayload{TenantID: uuid.New(), ActorID: uuid.New(), Role: enums.ActorRoleAdmin})
	assert.Error(t, err, "missing ttl")
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = BearerToken("  bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, header := range []string{"", "abc.def", "Basic dXNlcjpwYXNz", "Bearer "} {
		_, err := BearerToken(header)
		assert.ErrorIs(t, err, ErrMissingToken, header)
	}
}
