package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actor = &models.Actor{ID: 7, Email: "reg@st.niituniversity.in", Role: models.RoleInstitution, DomainVerified: true}

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	tok, err := GenerateToken(actor, secret, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.ActorID)
	assert.Equal(t, actor.Email, claims.Email)
	assert.Equal(t, models.RoleInstitution, claims.Role)
	assert.True(t, claims.Verified)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken(actor, secret, 7*24*time.Hour, time.Now().Add(-8*24*time.Hour))
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_Rejects(t *testing.T) {
	t.Parallel()

	secret := []byte("right-secret")
	good, err := GenerateToken(actor, secret, time.Hour, time.Now())
	require.NoError(t, err)
	verification, err := GenerateVerificationToken("1", time.Now(), secret)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Kind: kindSession}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{"wrong secret", good, []byte("wrong-secret")},
		{"malformed", "not.a.jwt", secret},
		{"empty", "", secret},
		{"verification token used as session", verification, secret},
		{"alg none", none, secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, common.ErrInvalidToken)
		})
	}
}

func TestVerificationToken_Deterministic(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	a, err := GenerateVerificationToken("42", at, secret)
	require.NoError(t, err)
	b, err := GenerateVerificationToken("42", at, secret)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	claims, err := ParseVerificationToken(a, secret)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Identifier())

	session, err := GenerateToken(actor, secret, time.Hour, time.Now())
	require.NoError(t, err)
	_, err = ParseVerificationToken(session, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = GenerateVerificationToken("", at, secret)
	assert.ErrorIs(t, err, common.ErrValidation)
}
