package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/hris-auth/internal/session"
	"github.com/jmoiron/sqlx"
)

const defaultHistoryLimit = 50

const listLoginHistoryQuery = `
SELECT id, account_id, email, ip_address, user_agent, status, failure_reason, login_at, logout_at
FROM login_histories
WHERE account_id = ?
ORDER BY login_at DESC
LIMIT ?`

// HistoryRepository reads the login audit trail with plain SQL.
type HistoryRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) ListLoginHistory(ctx context.Context, accountID string, limit int) ([]session.LoginAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}

	attempts := make([]session.LoginAttempt, 0)
	if err := r.db.SelectContext(ctx, &attempts, r.db.Rebind(listLoginHistoryQuery), accountID, limit); err != nil {
		return nil, fmt.Errorf("list login history: %w", err)
	}
	return attempts, nil
}
