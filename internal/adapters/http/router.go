package http

import (
	"context"
	"net/http"

	"github.com/campusrecords/campus-auth/internal/application"
	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Handler is the HTTP adapter entrypoint for auth use-cases.
type Handler struct {
	service *application.Service
	ready   func(context.Context) error
	cookie  CookieConfig
}

// CookieConfig controls the refresh-token cookie set alongside JSON responses.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

type Option func(*Handler)

// WithReadiness wires the dependency probe used by /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(h *Handler) { h.ready = check }
}

func WithRefreshCookie(cfg CookieConfig) Option {
	return func(h *Handler) {
		if cfg.Name != "" {
			h.cookie.Name = cfg.Name
		}
		if cfg.Path != "" {
			h.cookie.Path = cfg.Path
		}
		h.cookie.Secure = cfg.Secure
	}
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		cookie:  CookieConfig{Name: "refreshToken", Path: "/auth", Secure: true},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter registers the auth routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	gate := RequireAuth(handler.service)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", handler.signup)
		r.Post("/login", handler.login)
		r.Post("/refresh-token", handler.refreshToken)
		r.Post("/logout", handler.logout)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/reset-password", handler.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Get("/me", handler.me)
			r.Post("/change-password", handler.changePassword)

			r.Route("/accounts/{accountId}", func(r chi.Router) {
				r.With(RequireOwnerOrRoles("accountId", domain.RoleAdmin)).Get("/", handler.getAccount)
				r.With(RequireOwnerOrRoles("accountId", domain.RoleAdmin)).Get("/login-history", handler.loginHistory)
				r.With(RequireRoles(domain.RoleAdmin)).Post("/unlock", handler.unlockAccount)
				r.With(RequireRoles(domain.RoleAdmin)).Patch("/status", handler.setAccountStatus)
			})
		})
	})

	return r
}
