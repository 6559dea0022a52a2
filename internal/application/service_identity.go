package application

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
)

// GetAccount returns the public projection of an account.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (AccountView, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return AccountView{}, err
	}
	return toAccountView(account), nil
}

// GetIdentity exposes a narrow read model for internal callers.
func (s *Service) GetIdentity(ctx context.Context, accountID uuid.UUID) (Identity, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return Identity{}, err
	}
	status := "active"
	if !account.IsActive {
		status = "disabled"
	}
	return Identity{
		AccountID: account.AccountID,
		Email:     account.Email,
		Role:      account.Role.String(),
		Status:    status,
	}, nil
}

// ListLoginHistory pages through recorded login attempts for an account.
func (s *Service) ListLoginHistory(ctx context.Context, accountID uuid.UUID, query LoginHistoryQuery) (LoginHistoryPage, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return LoginHistoryPage{}, err
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > s.cfg.LoginHistoryMaxLimit {
		query.Limit = s.cfg.LoginHistoryMaxLimit
	}
	if maxPage := math.MaxInt32 / query.Limit; query.Page > maxPage {
		query.Page = maxPage
	}
	status := strings.ToUpper(strings.TrimSpace(query.Status))

	attempts, err := s.loginAttempts.ListByAccount(ctx, accountID, query.Limit, (query.Page-1)*query.Limit, status)
	if err != nil {
		return LoginHistoryPage{}, err
	}
	items := make([]LoginHistoryItem, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, LoginHistoryItem{
			ID:            a.ID,
			Timestamp:     a.AttemptAt,
			Status:        a.Status,
			FailureReason: a.FailureReason,
			IPAddress:     a.IPAddress,
			UserAgent:     a.UserAgent,
		})
	}
	return LoginHistoryPage{Items: items, Page: query.Page, Limit: query.Limit}, nil
}
