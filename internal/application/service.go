package application

import (
	"sync"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
)

// Service implements the authentication use cases on top of the ports.
// All durable state lives on the account record; the service itself is stateless.
type Service struct {
	cfg           Config
	lockout       domain.LockoutPolicy
	accounts      ports.AccountRepository
	loginAttempts ports.LoginAttemptRepository
	hasher        ports.PasswordHasher
	tokens        ports.TokenIssuer
	loginNotifier ports.LoginNotifier
	resetSender   ports.ResetTokenSender
	nowFn         func() time.Time
	deliveries    sync.WaitGroup

	// dummyHash is compared against when an email is unknown so both paths pay for one bcrypt compare.
	dummyHash string
}

type Dependencies struct {
	Config        Config
	Accounts      ports.AccountRepository
	LoginAttempts ports.LoginAttemptRepository
	Hasher        ports.PasswordHasher
	Tokens        ports.TokenIssuer
	LoginNotifier ports.LoginNotifier
	ResetSender   ports.ResetTokenSender
	// Clock defaults to UTC wall time.
	Clock func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config.withDefaults()
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	s := &Service{
		cfg:           cfg,
		lockout:       domain.LockoutPolicy{Threshold: cfg.FailedLoginThreshold, Duration: cfg.LockoutDuration},
		accounts:      deps.Accounts,
		loginAttempts: deps.LoginAttempts,
		hasher:        deps.Hasher,
		tokens:        deps.Tokens,
		loginNotifier: deps.LoginNotifier,
		resetSender:   deps.ResetSender,
		nowFn:         nowFn,
	}
	if s.hasher != nil {
		if h, err := s.hasher.Hash(randomHex(16)); err == nil {
			s.dummyHash = h
		}
	}
	return s
}

// Drain blocks until in-flight reset token deliveries have finished.
func (s *Service) Drain() {
	s.deliveries.Wait()
}

// Config returns the effective configuration after defaults were applied.
func (s *Service) Config() Config {
	return s.cfg
}
