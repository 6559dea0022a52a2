package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig holds signing material and lifetimes for the token issuer.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer implements HS256 access and refresh tokens with distinct secrets,
// so a refresh token can never verify as an access token and vice versa.
type TokenIssuer struct {
	cfg   TokenConfig
	nowFn func() time.Time
}

// NewTokenIssuer validates cfg and builds the issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("jwt access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("jwt access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		cfg:   cfg,
		nowFn: func() time.Time { return time.Now().UTC() },
	}, nil
}

// NewEphemeralSecrets returns two random secrets for local/dev use.
// Tokens signed with them do not survive a restart.
func NewEphemeralSecrets() (access, refresh []byte, err error) {
	access = make([]byte, 32)
	refresh = make([]byte, 32)
	if _, err = rand.Read(access); err != nil {
		return nil, nil, err
	}
	if _, err = rand.Read(refresh); err != nil {
		return nil, nil, err
	}
	return access, refresh, nil
}

// WithClock replaces the issuer's time source; used by tests.
func (t *TokenIssuer) WithClock(nowFn func() time.Time) *TokenIssuer {
	t.nowFn = nowFn
	return t
}

type accessClaims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func (t *TokenIssuer) IssueAccessToken(accountID uuid.UUID, role domain.Role) (ports.IssuedToken, error) {
	now := t.nowFn()
	expiresAt := now.Add(t.cfg.AccessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: role.String(),
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(t.cfg.AccessSecret)
	if err != nil {
		return ports.IssuedToken{}, err
	}
	return ports.IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// IssueRefreshToken carries a random jti so two tokens minted in the same second still differ.
func (t *TokenIssuer) IssueRefreshToken(accountID uuid.UUID) (ports.IssuedToken, error) {
	now := t.nowFn()
	expiresAt := now.Add(t.cfg.RefreshTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		Type: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID.String(),
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(t.cfg.RefreshSecret)
	if err != nil {
		return ports.IssuedToken{}, err
	}
	return ports.IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (t *TokenIssuer) VerifyAccessToken(raw string) (ports.AccessClaims, error) {
	claims := &accessClaims{}
	parseErr := t.parse(raw, claims, t.cfg.AccessSecret)
	if parseErr != nil && !errors.Is(parseErr, domain.ErrTokenExpired) {
		return ports.AccessClaims{}, parseErr
	}
	if claims.Type != tokenTypeAccess {
		return ports.AccessClaims{}, fmt.Errorf("%w: wrong token type", domain.ErrTokenInvalid)
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: bad subject", domain.ErrTokenInvalid)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: bad role", domain.ErrTokenInvalid)
	}
	out := ports.AccessClaims{
		AccountID: accountID,
		Role:      role,
		IssuedAt:  numericTime(claims.IssuedAt),
		ExpiresAt: numericTime(claims.ExpiresAt),
	}
	return out, parseErr
}

func (t *TokenIssuer) VerifyRefreshToken(raw string) (ports.RefreshClaims, error) {
	claims := &refreshClaims{}
	parseErr := t.parse(raw, claims, t.cfg.RefreshSecret)
	if parseErr != nil && !errors.Is(parseErr, domain.ErrTokenExpired) {
		return ports.RefreshClaims{}, parseErr
	}
	if claims.Type != tokenTypeRefresh {
		return ports.RefreshClaims{}, fmt.Errorf("%w: wrong token type", domain.ErrTokenInvalid)
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.RefreshClaims{}, fmt.Errorf("%w: bad subject", domain.ErrTokenInvalid)
	}
	out := ports.RefreshClaims{
		AccountID: accountID,
		TokenID:   claims.ID,
		IssuedAt:  numericTime(claims.IssuedAt),
		ExpiresAt: numericTime(claims.ExpiresAt),
	}
	return out, parseErr
}

// parse verifies signature, algorithm, issuer and expiry. An expired token with a
// valid signature yields domain.ErrTokenExpired and leaves claims populated.
func (t *TokenIssuer) parse(raw string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.nowFn),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) && !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
			return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return domain.ErrTokenInvalid
	}
	return nil
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time.UTC()
}
