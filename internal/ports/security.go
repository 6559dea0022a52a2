package ports

import (
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/google/uuid"
)

// PasswordHasher is the Credential Store's one-way hashing contract.
// Compare returns nil on match and an error otherwise.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	AccountID uuid.UUID
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is the verified content of a refresh token.
type RefreshClaims struct {
	AccountID uuid.UUID
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies signed tokens. Verification errors are
// domain.ErrTokenExpired or domain.ErrTokenInvalid. On ErrTokenExpired the
// signature was valid and the returned claims are populated.
type TokenIssuer interface {
	IssueAccessToken(accountID uuid.UUID, role domain.Role) (IssuedToken, error)
	IssueRefreshToken(accountID uuid.UUID) (IssuedToken, error)
	VerifyAccessToken(token string) (AccessClaims, error)
	VerifyRefreshToken(token string) (RefreshClaims, error)
}
