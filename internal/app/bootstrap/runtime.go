package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/campusrecords/campus-auth/internal/adapters/cache"
	eventadapter "github.com/campusrecords/campus-auth/internal/adapters/events"
	grpcadapter "github.com/campusrecords/campus-auth/internal/adapters/grpc"
	httpadapter "github.com/campusrecords/campus-auth/internal/adapters/http"
	"github.com/campusrecords/campus-auth/internal/adapters/memory"
	"github.com/campusrecords/campus-auth/internal/adapters/postgres"
	"github.com/campusrecords/campus-auth/internal/adapters/security"
	"github.com/campusrecords/campus-auth/internal/application"
	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
)

type Runtime struct {
	cfg       Config
	logger    *slog.Logger
	service   *application.Service
	storage   storage
	publisher ports.EventPublisher
	cleanup   []func() error
}

// storage is the set of repositories behind the service, independent of driver.
type storage struct {
	accounts      ports.AccountRepository
	loginAttempts ports.LoginAttemptRepository
	outbox        ports.OutboxRepository
	health        ports.HealthChecker
}

// NewRuntime loads configuration and wires every adapter. Listeners are opened
// later by RunAPI so the same runtime also backs the worker and operator CLI.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping campus-auth",
		"service_id", cfg.ServiceID,
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"storage_driver", cfg.StorageDriver,
	)

	rt := &Runtime{cfg: cfg, logger: logger}
	if err := rt.wire(ctx); err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) wire(ctx context.Context) error {
	cfg := r.cfg

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		r.logger.Warn("using in-memory storage; state is lost on restart")
		store := memory.NewStore()
		r.storage = storage{
			accounts:      store.Accounts(),
			loginAttempts: store.LoginAttempts(),
			outbox:        store.Outbox(),
			health:        store,
		}
	default:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return err
		}
		r.cleanup = append(r.cleanup, func() error { return postgres.Close(db) })
		if err := postgres.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		repos := postgres.NewRepositories(db)
		r.storage = storage{
			accounts:      repos.Accounts,
			loginAttempts: repos.LoginAttempts,
			outbox:        repos.Outbox,
			health:        repos.Health,
		}
	}

	hasher, err := security.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}
	if cfg.BcryptCost < security.MinProductionCost {
		r.logger.Warn("bcrypt cost below production floor", "bcrypt_cost", cfg.BcryptCost)
	}

	accessSecret, refreshSecret := []byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret)
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		r.logger.Warn("using ephemeral JWT secrets for local/dev runtime")
		accessSecret, refreshSecret, err = security.NewEphemeralSecrets()
		if err != nil {
			return fmt.Errorf("generate ephemeral jwt secrets: %w", err)
		}
	}
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	var notifier ports.LoginNotifier
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		r.cleanup = append(r.cleanup, redisClient.Close)
		notifier = cacheadapter.NewRedisLoginNotifier(redisClient, cfg.LoginEventChannel)
	} else {
		r.logger.Info("login relay disabled; REDIS_URL not set")
	}

	var resetSender ports.ResetTokenSender
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, nil)
		if err != nil {
			return fmt.Errorf("init kafka publisher: %w", err)
		}
		r.cleanup = append(r.cleanup, publisher.Close)
		r.publisher = publisher

		sender, err := eventadapter.NewKafkaResetTokenSender(cfg.KafkaBrokers, cfg.KafkaResetTopic)
		if err != nil {
			return fmt.Errorf("init reset token sender: %w", err)
		}
		r.cleanup = append(r.cleanup, sender.Close)
		resetSender = sender
	} else {
		r.logger.Warn("KAFKA_BROKERS not set; events and reset tokens go to the log sink")
		r.publisher = eventadapter.NewLoggingPublisher(r.logger)
		resetSender = eventadapter.NewLoggingResetTokenSender(r.logger)
	}

	signupRoles, err := domain.ParseRoles(cfg.SignupRoles)
	if err != nil {
		return fmt.Errorf("parse signup roles: %w", err)
	}

	r.service = application.NewService(application.Dependencies{
		Config: application.Config{
			FailedLoginThreshold: cfg.FailedThreshold,
			LockoutDuration:      cfg.LockoutDuration,
			ResetTokenTTL:        cfg.ResetTokenTTL,
			SignupRoles:          signupRoles,
			DefaultRole:          domain.RoleStudent,
		},
		Accounts:      r.storage.accounts,
		LoginAttempts: r.storage.loginAttempts,
		Hasher:        hasher,
		Tokens:        tokens,
		LoginNotifier: notifier,
		ResetSender:   resetSender,
	})
	r.cleanup = append(r.cleanup, func() error {
		r.service.Drain()
		return nil
	})
	return nil
}

// Service exposes the wired use cases to operator tooling.
func (r *Runtime) Service() *application.Service {
	return r.service
}

func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

func (r *Runtime) router() http.Handler {
	handler := httpadapter.NewHandler(r.service,
		httpadapter.WithReadiness(r.storage.health.Ping),
		httpadapter.WithRefreshCookie(httpadapter.CookieConfig{Secure: r.cfg.RefreshCookieSecure}),
	)
	return httpadapter.NewRouter(handler)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.cfg.HTTPPort),
		Handler:           r.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(r.service))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	return runErr
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.close()

	worker := eventadapter.NewOutboxWorker(
		r.logger,
		r.storage.outbox,
		r.publisher,
		r.cfg.OutboxPollInterval,
		r.cfg.OutboxBatchSize,
		r.cfg.OutboxClaimTTL,
		r.cfg.OutboxMaxRetries,
	)
	r.logger.Info("outbox worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases every connection opened by NewRuntime.
func (r *Runtime) Close() {
	r.close()
}

func (r *Runtime) close() {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		if err := r.cleanup[i](); err != nil {
			r.logger.Warn("cleanup failed", "error", err)
		}
	}
	r.cleanup = nil
}
