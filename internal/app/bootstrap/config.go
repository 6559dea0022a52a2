package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/campusrecords/campus-auth/internal/adapters/security"
	"github.com/campusrecords/campus-auth/internal/domain"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config is the resolved runtime configuration for campus-auth.
// It is built once at process start and passed down explicitly.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	StorageDriver string
	DatabaseURL   string
	MaxDBConns    int32

	RedisURL          string
	LoginEventChannel string

	KafkaBrokers    []string
	KafkaResetTopic string

	JWTAccessSecret   string
	JWTRefreshSecret  string
	JWTIssuer         string
	AllowEphemeralJWT bool
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration

	BcryptCost      int
	AllowWeakBcrypt bool

	FailedThreshold int
	LockoutDuration time.Duration
	ResetTokenTTL   time.Duration
	SignupRoles     []string

	RefreshCookieSecure bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Auth struct {
		Issuer                string   `yaml:"issuer"`
		AccessTokenTTLMinutes int      `yaml:"access_token_ttl_minutes"`
		RefreshTokenTTLHours  int      `yaml:"refresh_token_ttl_hours"`
		FailedLoginThreshold  int      `yaml:"failed_login_threshold"`
		LockoutMinutes        int      `yaml:"lockout_minutes"`
		ResetTokenTTLMinutes  int      `yaml:"reset_token_ttl_minutes"`
		BcryptRounds          int      `yaml:"bcrypt_rounds"`
		SignupAllowedRoles    []string `yaml:"signup_allowed_roles"`
		RefreshCookieSecure   *bool    `yaml:"refresh_cookie_secure"`
	} `yaml:"auth"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "campus-auth",
		HTTPPort:            8080,
		GRPCPort:            9090,
		StorageDriver:       StorageDriverPostgres,
		MaxDBConns:          20,
		LoginEventChannel:   "user-login",
		KafkaResetTopic:     "auth.password-reset.delivery",
		JWTIssuer:           "campus-auth",
		AccessTokenTTL:      time.Hour,
		RefreshTokenTTL:     7 * 24 * time.Hour,
		BcryptCost:          security.MinProductionCost,
		FailedThreshold:     5,
		LockoutDuration:     30 * time.Minute,
		ResetTokenTTL:       10 * time.Minute,
		SignupRoles:         []string{"student", "faculty"},
		RefreshCookieSecure: true,
		OutboxPollInterval:  2 * time.Second,
		OutboxBatchSize:     100,
		OutboxClaimTTL:      30 * time.Second,
		OutboxMaxRetries:    5,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Storage.Driver != "" {
		cfg.StorageDriver = f.Storage.Driver
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if f.Auth.Issuer != "" {
		cfg.JWTIssuer = f.Auth.Issuer
	}
	if f.Auth.AccessTokenTTLMinutes > 0 {
		cfg.AccessTokenTTL = time.Duration(f.Auth.AccessTokenTTLMinutes) * time.Minute
	}
	if f.Auth.RefreshTokenTTLHours > 0 {
		cfg.RefreshTokenTTL = time.Duration(f.Auth.RefreshTokenTTLHours) * time.Hour
	}
	if f.Auth.FailedLoginThreshold > 0 {
		cfg.FailedThreshold = f.Auth.FailedLoginThreshold
	}
	if f.Auth.LockoutMinutes > 0 {
		cfg.LockoutDuration = time.Duration(f.Auth.LockoutMinutes) * time.Minute
	}
	if f.Auth.ResetTokenTTLMinutes > 0 {
		cfg.ResetTokenTTL = time.Duration(f.Auth.ResetTokenTTLMinutes) * time.Minute
	}
	if f.Auth.BcryptRounds > 0 {
		cfg.BcryptCost = f.Auth.BcryptRounds
	}
	if len(f.Auth.SignupAllowedRoles) > 0 {
		cfg.SignupRoles = f.Auth.SignupAllowedRoles
	}
	if f.Auth.RefreshCookieSecure != nil {
		cfg.RefreshCookieSecure = *f.Auth.RefreshCookieSecure
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(envOrDefault("STORAGE_DRIVER", cfg.StorageDriver)))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.LoginEventChannel = envOrDefault("LOGIN_EVENT_CHANNEL", cfg.LoginEventChannel)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaResetTopic = envOrDefault("KAFKA_RESET_TOPIC", cfg.KafkaResetTopic)
	cfg.JWTAccessSecret = envOrDefault("JWT_ACCESS_SECRET", cfg.JWTAccessSecret)
	cfg.JWTRefreshSecret = envOrDefault("JWT_REFRESH_SECRET", cfg.JWTRefreshSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.AllowWeakBcrypt = envBool("ALLOW_WEAK_BCRYPT", cfg.AllowWeakBcrypt)
	cfg.RefreshCookieSecure = envBool("REFRESH_COOKIE_SECURE", cfg.RefreshCookieSecure)
	cfg.SignupRoles = envCSV("SIGNUP_ALLOWED_ROLES", cfg.SignupRoles)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_HOURS", int(cfg.RefreshTokenTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.ResetTokenTTL = time.Duration(envInt("RESET_TOKEN_TTL_MINUTES", int(cfg.ResetTokenTTL.Minutes()))) * time.Minute
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
}

func validateConfig(cfg Config) error {
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("missing DB_URL/POSTGRES_URL")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if !cfg.AllowEphemeralJWT {
		if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
			return fmt.Errorf("missing JWT_ACCESS_SECRET or JWT_REFRESH_SECRET")
		}
		if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
			return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
		}
	}

	if cfg.FailedThreshold < 1 {
		return fmt.Errorf("FAILED_LOGIN_THRESHOLD must be at least 1")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 || cfg.LockoutDuration <= 0 || cfg.ResetTokenTTL <= 0 {
		return fmt.Errorf("token, lockout and reset durations must be positive")
	}
	if cfg.BcryptCost < security.MinProductionCost && !cfg.AllowWeakBcrypt {
		return fmt.Errorf("BCRYPT_ROUNDS %d below %d; set ALLOW_WEAK_BCRYPT for local runs", cfg.BcryptCost, security.MinProductionCost)
	}

	roles, err := domain.ParseRoles(cfg.SignupRoles)
	if err != nil {
		return fmt.Errorf("SIGNUP_ALLOWED_ROLES: %w", err)
	}
	for _, r := range roles {
		if r == domain.RoleAdmin {
			return fmt.Errorf("SIGNUP_ALLOWED_ROLES must not include admin")
		}
	}
	return nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
