package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/session"
)

type Service struct {
	accounts AccountReader
	history  session.HistoryReader
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(accounts AccountReader, history session.HistoryReader, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		history:  history,
		now:      time.Now,
		logger:   logger,
	}
}

// GetProfile returns the account with the roles and permissions valid right now,
// which may differ from what the caller's access token carries.
func (s *Service) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load account", err)
	}
	if account == nil {
		return nil, internal.ErrAccountNotFound
	}

	perms, roles, err := s.accounts.Grants(ctx, accountID, s.now())
	if err != nil {
		return nil, internal.NewInternalError("failed to load grants", err)
	}
	if roles == nil {
		roles = []string{}
	}

	return &Profile{
		AccountSummary: account.Summary(),
		Roles:          roles,
		Permissions:    perms,
	}, nil
}

func (s *Service) LoginHistory(ctx context.Context, accountID string, limit int) ([]session.LoginAttempt, error) {
	entries, err := s.history.ListLoginHistory(ctx, accountID, limit)
	if err != nil {
		s.logger.Error("failed to list login history", "account_id", accountID, "error", err)
		return nil, internal.NewInternalError("failed to list login history", err)
	}
	if entries == nil {
		entries = []session.LoginAttempt{}
	}
	return entries, nil
}
