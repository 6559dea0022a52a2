package application

import (
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/google/uuid"
)

type Config struct {
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	ResetTokenTTL        time.Duration
	// SignupRoles are the roles an unauthenticated caller may self-assign.
	SignupRoles []domain.Role
	DefaultRole domain.Role
	// LoginHistoryMaxLimit caps page size on login-history reads.
	LoginHistoryMaxLimit int
}

func (c Config) withDefaults() Config {
	if c.FailedLoginThreshold <= 0 {
		c.FailedLoginThreshold = 5
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = 10 * time.Minute
	}
	if len(c.SignupRoles) == 0 {
		c.SignupRoles = []domain.Role{domain.RoleStudent, domain.RoleFaculty}
	}
	if !c.DefaultRole.Valid() {
		c.DefaultRole = domain.RoleStudent
	}
	if c.LoginHistoryMaxLimit <= 0 {
		c.LoginHistoryMaxLimit = 100
	}
	return c
}

// RequestMeta is transport context recorded with login attempts.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountView is the only account shape that is ever serialized outward.
type AccountView struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type AuthResponse struct {
	User                  AccountView `json:"user"`
	Token                 string      `json:"token"`
	RefreshToken          string      `json:"refreshToken"`
	ExpiresAt             time.Time   `json:"expiresAt"`
	RefreshTokenExpiresAt time.Time   `json:"refreshTokenExpiresAt"`
}

type TokenPair struct {
	Token                 string    `json:"token"`
	RefreshToken          string    `json:"refreshToken"`
	ExpiresAt             time.Time `json:"expiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type LoginHistoryQuery struct {
	Page   int
	Limit  int
	Status string
}

type LoginHistoryItem struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failureReason,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
}

type LoginHistoryPage struct {
	Items []LoginHistoryItem `json:"items"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type TokenValidation struct {
	Principal domain.Principal
	ExpiresAt time.Time
}

// Identity is the narrow read model exposed to internal callers over gRPC.
type Identity struct {
	AccountID uuid.UUID
	Email     string
	Role      string
	Status    string
}

func toAccountView(a domain.Account) AccountView {
	return AccountView{
		ID:          a.AccountID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Role:        a.Role.String(),
		Active:      a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
