package security

import (
	"testing"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "campus-auth",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)
	return issuer.WithClock(func() time.Time { return *now })
}

func TestNewTokenIssuer_RejectsSharedOrMissingSecrets(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessSecret: []byte("same"), RefreshSecret: []byte("same")})
	assert.Error(t, err)

	_, err = NewTokenIssuer(TokenConfig{AccessSecret: []byte("only-access")})
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	issuer := newTestIssuer(t, &now)
	id := uuid.New()

	issued, err := issuer.IssueAccessToken(id, domain.RoleFaculty)
	require.NoError(t, err)
	assert.True(t, now.Add(time.Hour).Equal(issued.ExpiresAt))

	claims, err := issuer.VerifyAccessToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.AccountID)
	assert.Equal(t, domain.RoleFaculty, claims.Role)
	assert.True(t, now.Equal(claims.IssuedAt))
}

func TestAccessToken_Expired(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	issuer := newTestIssuer(t, &now)

	issued, err := issuer.IssueAccessToken(uuid.New(), domain.RoleStudent)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = issuer.VerifyAccessToken(issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokens_AreNotInterchangeable(t *testing.T) {
	now := time.Now().UTC()
	issuer := newTestIssuer(t, &now)
	id := uuid.New()

	access, err := issuer.IssueAccessToken(id, domain.RoleAdmin)
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken(id)
	require.NoError(t, err)

	_, err = issuer.VerifyRefreshToken(access.Token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	_, err = issuer.VerifyAccessToken(refresh.Token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefreshToken_UniquePerIssue(t *testing.T) {
	now := time.Now().UTC()
	issuer := newTestIssuer(t, &now)
	id := uuid.New()

	first, err := issuer.IssueRefreshToken(id)
	require.NoError(t, err)
	second, err := issuer.IssueRefreshToken(id)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	claims, err := issuer.VerifyRefreshToken(second.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.AccountID)
	assert.NotEmpty(t, claims.TokenID)
}

func TestRefreshToken_ExpiredKeepsClaims(t *testing.T) {
	now := time.Now().UTC()
	issuer := newTestIssuer(t, &now)
	id := uuid.New()

	issued, err := issuer.IssueRefreshToken(id)
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)
	claims, err := issuer.VerifyRefreshToken(issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.Equal(t, id, claims.AccountID)
}

func TestVerify_RejectsForeignSignature(t *testing.T) {
	now := time.Now().UTC()
	issuer := newTestIssuer(t, &now)
	other, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  []byte("other-access"),
		RefreshSecret: []byte("other-refresh"),
		Issuer:        "campus-auth",
	})
	require.NoError(t, err)

	forged, err := other.IssueAccessToken(uuid.New(), domain.RoleAdmin)
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(forged.Token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	_, err = issuer.VerifyAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
