package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/campusrecords/campus-auth/internal/application"
	"github.com/campusrecords/campus-auth/internal/domain"
)

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req application.SignupRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "signup", err)
		return
	}

	// an admin may create accounts of any role through the same endpoint
	var caller *domain.Principal
	if header := r.Header.Get("Authorization"); header != "" {
		raw, err := bearerTokenFromHeader(header)
		if err != nil {
			writeMissingBearerError(r.Context(), w, "signup")
			return
		}
		principal, err := h.service.Authenticate(r.Context(), raw)
		if err != nil {
			writeMappedError(r.Context(), w, "signup", err)
			return
		}
		caller = &principal
	}

	res, err := h.service.Signup(r.Context(), req, caller)
	if err != nil {
		writeMappedError(r.Context(), w, "signup", err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken, res.RefreshTokenExpiresAt)
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	res, err := h.service.Login(r.Context(), req, requestMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken, res.RefreshTokenExpiresAt)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.refreshTokenFromRequest(w, r, "refresh_token")
	if !ok {
		return
	}
	res, err := h.service.Refresh(r.Context(), raw)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh_token", err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken, res.RefreshTokenExpiresAt)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.refreshTokenFromRequest(w, r, "logout")
	if !ok {
		return
	}
	if err := h.service.Logout(r.Context(), raw); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	h.clearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	res, err := h.service.GetAccount(r.Context(), principal.AccountID)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": res})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req application.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), principal.AccountID, req); err != nil {
		writeMappedError(r.Context(), w, "change_password", err)
		return
	}
	h.clearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "password changed")
}

// refreshTokenFromRequest reads the token from the JSON body, falling back to the cookie.
func (h *Handler) refreshTokenFromRequest(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	var req refreshTokenRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return "", false
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		if c, err := r.Cookie(h.cookie.Name); err == nil {
			raw = c.Value
		}
	}
	return raw, true
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
