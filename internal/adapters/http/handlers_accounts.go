package http

import (
	"fmt"
	"net/http"

	"github.com/campusrecords/campus-auth/internal/application"
	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type accountStatusRequest struct {
	Active *bool `json:"active"`
}

func accountIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		verr := domain.NewValidationError()
		verr.Add("accountId", "must be a UUID")
		return uuid.Nil, verr
	}
	return id, nil
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeMappedError(r.Context(), w, "get_account", err)
		return
	}
	res, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		writeMappedError(r.Context(), w, "get_account", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": res})
}

func (h *Handler) loginHistory(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeMappedError(r.Context(), w, "login_history", err)
		return
	}
	q := r.URL.Query()
	res, err := h.service.ListLoginHistory(r.Context(), id, application.LoginHistoryQuery{
		Page:   parseIntDefault(q.Get("page"), 1),
		Limit:  parseIntDefault(q.Get("limit"), 20),
		Status: q.Get("status"),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "login_history", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) unlockAccount(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeMappedError(r.Context(), w, "unlock_account", err)
		return
	}
	if err := h.service.Unlock(r.Context(), id); err != nil {
		writeMappedError(r.Context(), w, "unlock_account", err)
		return
	}
	writeMessage(w, http.StatusOK, "account unlocked")
}

func (h *Handler) setAccountStatus(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeMappedError(r.Context(), w, "set_account_status", err)
		return
	}
	var req accountStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_account_status", err)
		return
	}
	if req.Active == nil {
		verr := domain.NewValidationError()
		verr.Add("active", "is required")
		writeMappedError(r.Context(), w, "set_account_status", fmt.Errorf("status update: %w", verr))
		return
	}
	res, err := h.service.SetActive(r.Context(), id, *req.Active)
	if err != nil {
		writeMappedError(r.Context(), w, "set_account_status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": res})
}
