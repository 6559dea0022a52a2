package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/google/uuid"
)

// Signup creates an account and returns a first token pair.
// caller is nil for anonymous self-signup; an admin caller may assign any role.
func (s *Service) Signup(ctx context.Context, req SignupRequest, caller *domain.Principal) (AuthResponse, error) {
	account, err := s.buildAccount(req)
	if err != nil {
		return AuthResponse{}, err
	}
	isAdmin := caller != nil && caller.Role == domain.RoleAdmin
	if !isAdmin && !slices.Contains(s.cfg.SignupRoles, account.Role) {
		verr := domain.NewValidationError()
		verr.Add("role", fmt.Sprintf("role %s cannot self-register", account.Role))
		return AuthResponse{}, verr
	}

	access, err := s.tokens.IssueAccessToken(account.AccountID, account.Role)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(account.AccountID)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("issue refresh token: %w", err)
	}
	account.RefreshTokenHash = hashToken(refresh.Token)

	created, err := s.accounts.Create(ctx, account, s.registeredEvent(account))
	if err != nil {
		return AuthResponse{}, err
	}
	slog.Default().InfoContext(ctx, "account registered",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "signup",
		"outcome", "success",
		"account_id", created.AccountID,
		"role", created.Role,
	)
	return AuthResponse{
		User:                  toAccountView(created),
		Token:                 access.Token,
		RefreshToken:          refresh.Token,
		ExpiresAt:             access.ExpiresAt,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Provision creates an account without issuing tokens or applying the signup role policy.
// It backs operator tooling.
func (s *Service) Provision(ctx context.Context, req SignupRequest) (AccountView, error) {
	account, err := s.buildAccount(req)
	if err != nil {
		return AccountView{}, err
	}
	created, err := s.accounts.Create(ctx, account, s.registeredEvent(account))
	if err != nil {
		return AccountView{}, err
	}
	return toAccountView(created), nil
}

// buildAccount validates signup input and hashes the password before anything is persisted.
func (s *Service) buildAccount(req SignupRequest) (domain.Account, error) {
	verr := domain.NewValidationError()
	email, err := domain.NormalizeEmail(req.Email)
	verr.Check("email", err)
	verr.Check("password", domain.ValidatePassword(req.Password))
	verr.Check("firstName", domain.ValidateName(req.FirstName))
	verr.Check("lastName", domain.ValidateName(req.LastName))

	role := s.cfg.DefaultRole
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := domain.ParseRole(req.Role)
		verr.Check("role", err)
		role = parsed
	}
	if err := verr.OrNil(); err != nil {
		return domain.Account{}, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	return domain.Account{
		AccountID:    uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) registeredEvent(account domain.Account) ports.OutboxEvent {
	return s.newEvent(eventTypeAccountRegistered, account.AccountID, map[string]any{
		"email": account.Email,
		"role":  account.Role.String(),
	})
}

// Login verifies credentials under the lockout state machine and issues a token pair.
// A locked account is rejected before the password hash is consulted.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (AuthResponse, error) {
	verr := domain.NewValidationError()
	email, err := domain.NormalizeEmail(req.Email)
	verr.Check("email", err)
	if req.Password == "" {
		verr.Add("password", "password is required")
	}
	if err := verr.OrNil(); err != nil {
		return AuthResponse{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return AuthResponse{}, err
		}
		if s.dummyHash != "" {
			_ = s.hasher.Compare(s.dummyHash, req.Password)
		}
		s.recordAttempt(ctx, nil, email, meta, domain.LoginStatusFailed, "ACCOUNT_NOT_FOUND")
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	now := s.nowFn()
	if domain.IsLocked(account.Lockout(), now) {
		s.recordAttempt(ctx, &account.AccountID, email, meta, domain.LoginStatusFailed, "ACCOUNT_LOCKED")
		slog.Default().WarnContext(ctx, "account lockout active",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
			"account_id", account.AccountID,
			"locked_until", account.LockedUntil,
		)
		return AuthResponse{}, &domain.LockedError{Until: *account.LockedUntil}
	}

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		s.recordAttempt(ctx, &account.AccountID, email, meta, domain.LoginStatusFailed, "INVALID_PASSWORD")
		return AuthResponse{}, s.registerFailedLogin(ctx, account)
	}

	if !account.IsActive {
		s.recordAttempt(ctx, &account.AccountID, email, meta, domain.LoginStatusFailed, "ACCOUNT_INACTIVE")
		return AuthResponse{}, domain.ErrAccountInactive
	}

	access, err := s.tokens.IssueAccessToken(account.AccountID, account.Role)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(account.AccountID)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.accounts.RecordLoginSuccess(ctx, account.AccountID, hashToken(refresh.Token), now); err != nil {
		return AuthResponse{}, err
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now

	s.recordAttempt(ctx, &account.AccountID, email, meta, domain.LoginStatusSuccess, "")
	s.notifyLogin(ctx, account, now)

	return AuthResponse{
		User:                  toAccountView(account),
		Token:                 access.Token,
		RefreshToken:          refresh.Token,
		ExpiresAt:             access.ExpiresAt,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}

// registerFailedLogin advances the lockout state machine and returns the error the caller sees.
// The update is a read-modify-write; concurrent failures may lose an increment.
func (s *Service) registerFailedLogin(ctx context.Context, account domain.Account) error {
	now := s.nowFn()
	next := s.lockout.RegisterFailure(account.Lockout(), now)
	locked := domain.IsLocked(next, now)

	var events []ports.OutboxEvent
	if locked {
		events = append(events, s.newEvent(eventTypeAccountLocked, account.AccountID, map[string]any{
			"lockedUntil": next.LockedUntil,
		}))
	}
	if err := retryOnce(ctx, "update_lockout", func() error {
		return s.accounts.UpdateLockout(ctx, account.AccountID, next, now, events...)
	}); err != nil {
		slog.Default().ErrorContext(ctx, "failed to update lockout state",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "failure",
			"error_code", "LOCKOUT_STATE_UNAVAILABLE",
			"error", err,
		)
		return fmt.Errorf("update lockout state: %w", err)
	}
	if locked {
		slog.Default().WarnContext(ctx, "account lockout triggered",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
			"account_id", account.AccountID,
			"locked_until", next.LockedUntil,
		)
		return &domain.LockedError{Until: *next.LockedUntil}
	}
	return domain.ErrInvalidCredentials
}

// notifyLogin is fire-and-forget; relay failures never affect the login result.
func (s *Service) notifyLogin(ctx context.Context, account domain.Account, at time.Time) {
	if s.loginNotifier == nil {
		return
	}
	event := ports.LoginEvent{AccountID: account.AccountID, Role: account.Role.String(), At: at}
	if err := s.loginNotifier.NotifyLogin(ctx, event); err != nil {
		slog.Default().WarnContext(ctx, "login event not delivered",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "notify_login",
			"outcome", "failure",
			"account_id", account.AccountID,
			"error", err,
		)
	}
}

// Refresh redeems a refresh token exactly once and returns a new pair.
// The presented token must match the stored fingerprint; rotation is a conditional
// swap so two concurrent redemptions cannot both succeed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh token is required", domain.ErrTokenInvalid)
	}
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, domain.ErrTokenInvalid
		}
		return TokenPair{}, err
	}
	if !account.IsActive {
		return TokenPair{}, domain.ErrAccountInactive
	}

	currentHash := hashToken(refreshToken)
	if account.RefreshTokenHash == "" || account.RefreshTokenHash != currentHash {
		slog.Default().WarnContext(ctx, "superseded refresh token presented",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "refresh",
			"outcome", "rejected",
			"account_id", account.AccountID,
		)
		return TokenPair{}, domain.ErrTokenRevoked
	}

	access, err := s.tokens.IssueAccessToken(account.AccountID, account.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(account.AccountID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	swapped, err := s.accounts.RotateRefreshToken(ctx, account.AccountID, currentHash, hashToken(refresh.Token), s.nowFn())
	if err != nil {
		return TokenPair{}, err
	}
	if !swapped {
		return TokenPair{}, domain.ErrTokenRevoked
	}
	return TokenPair{
		Token:                 access.Token,
		RefreshToken:          refresh.Token,
		ExpiresAt:             access.ExpiresAt,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Logout clears the stored refresh token when it matches the presented one.
// Expired tokens are still accepted so a client can always sign out.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		verr := domain.NewValidationError()
		verr.Add("refreshToken", "refresh token is required")
		return verr
	}
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil && !(errors.Is(err, domain.ErrTokenExpired) && claims.AccountID != uuid.Nil) {
		return err
	}
	if _, err := s.accounts.ClearRefreshToken(ctx, claims.AccountID, hashToken(refreshToken), s.nowFn()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Authenticate is the Authorization Gate's identity stage: verify the access
// token, then confirm the account still exists and is active.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	validation, err := s.ValidateToken(ctx, accessToken)
	if err != nil {
		return domain.Principal{}, err
	}
	return validation.Principal, nil
}

// ValidateToken runs the same checks as Authenticate and also reports the
// token expiry. It backs the internal gRPC API.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (TokenValidation, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return TokenValidation{}, fmt.Errorf("%w: missing access token", domain.ErrUnauthenticated)
	}
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return TokenValidation{}, fmt.Errorf("%w: access token expired", domain.ErrUnauthenticated)
		}
		return TokenValidation{}, fmt.Errorf("%w: invalid access token", domain.ErrUnauthenticated)
	}
	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenValidation{}, fmt.Errorf("%w: unknown account", domain.ErrUnauthenticated)
		}
		return TokenValidation{}, err
	}
	if !account.IsActive {
		return TokenValidation{}, fmt.Errorf("%w: account deactivated", domain.ErrUnauthenticated)
	}
	// role comes from the stored account so a role change applies before token expiry
	return TokenValidation{
		Principal: domain.Principal{AccountID: account.AccountID, Role: account.Role},
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
