package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusrecords/campus-auth/internal/adapters/memory"
	"github.com/campusrecords/campus-auth/internal/adapters/security"
	"github.com/campusrecords/campus-auth/internal/application"
)

func setSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setSecrets(t)
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DB_URL", "postgres://localhost/campus")

	cfg, err := LoadConfig("testdata/does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, "campus-auth", cfg.ServiceID)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 5, cfg.FailedThreshold)
	assert.Equal(t, 30*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, security.MinProductionCost, cfg.BcryptCost)
	assert.Equal(t, []string{"student", "faculty"}, cfg.SignupRoles)
	assert.Equal(t, "user-login", cfg.LoginEventChannel)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	setSecrets(t)
	t.Setenv("ACCOUNT_LOCKOUT_MINUTES", "45")

	cfg, err := LoadConfig("testdata/override.yaml")
	require.NoError(t, err)
	assert.Equal(t, 18080, cfg.HTTPPort)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, "registrar-auth", cfg.JWTIssuer)
	assert.Equal(t, 3, cfg.FailedThreshold)
	assert.Equal(t, 45*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, []string{"student"}, cfg.SignupRoles)
	assert.False(t, cfg.RefreshCookieSecure)
}

func TestLoadConfigRequiresDatabaseForPostgres(t *testing.T) {
	setSecrets(t)
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DB_URL", "")
	t.Setenv("POSTGRES_URL", "")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		return Config{
			StorageDriver:    StorageDriverMemory,
			JWTAccessSecret:  "a",
			JWTRefreshSecret: "b",
			AccessTokenTTL:   time.Hour,
			RefreshTokenTTL:  time.Hour,
			LockoutDuration:  time.Minute,
			ResetTokenTTL:    time.Minute,
			FailedThreshold:  5,
			BcryptCost:       12,
			SignupRoles:      []string{"student"},
		}
	}
	require.NoError(t, validateConfig(base()))

	cases := map[string]func(*Config){
		"shared secrets":    func(c *Config) { c.JWTRefreshSecret = c.JWTAccessSecret },
		"missing secret":    func(c *Config) { c.JWTAccessSecret = "" },
		"zero threshold":    func(c *Config) { c.FailedThreshold = 0 },
		"weak bcrypt":       func(c *Config) { c.BcryptCost = 4 },
		"admin self-signup": func(c *Config) { c.SignupRoles = []string{"student", "admin"} },
		"unknown role":      func(c *Config) { c.SignupRoles = []string{"janitor"} },
		"unknown driver":    func(c *Config) { c.StorageDriver = "mongo" },
		"non-positive ttl":  func(c *Config) { c.ResetTokenTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}

	weak := base()
	weak.BcryptCost = 4
	weak.AllowWeakBcrypt = true
	assert.NoError(t, validateConfig(weak))

	ephemeral := base()
	ephemeral.JWTAccessSecret, ephemeral.JWTRefreshSecret = "", ""
	ephemeral.AllowEphemeralJWT = true
	assert.NoError(t, validateConfig(ephemeral))
}

func TestRouterServesHealth(t *testing.T) {
	store := memory.NewStore()
	hasher, err := security.NewBcryptHasher(4)
	require.NoError(t, err)
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  []byte("a"),
		RefreshSecret: []byte("b"),
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	rt := Runtime{
		cfg: Config{RefreshCookieSecure: true},
		service: application.NewService(application.Dependencies{
			Accounts:      store.Accounts(),
			LoginAttempts: store.LoginAttempts(),
			Hasher:        hasher,
			Tokens:        tokens,
		}),
		storage: storage{health: store},
	}
	router := rt.router()

	for _, path := range []string{"/healthz", "/readyz"} {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, res.Code, path)
	}
}
