package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionDatamodel "github.com/frahmantamala/hris-auth/internal/core/datamodel/session"
	"github.com/frahmantamala/hris-auth/internal/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository implements session.Store and session.AuditLog with GORM.
type SessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.TokenHash == "" {
		s.TokenHash = session.HashToken(s.Token)
	}

	row := toRow(s)
	err := r.db.WithContext(ctx).Create(row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return session.ErrSessionCollision.WithCause(err)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*session.Session, error) {
	var row sessionDatamodel.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", session.HashToken(token)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return fromRow(&row), nil
}

// Revoke is a single conditional UPDATE, so concurrent revokes and lookups
// see one consistent row. Unknown tokens, tokens owned by another account and
// already-revoked rows affect nothing and return false without error.
func (r *SessionRepository) Revoke(ctx context.Context, token, accountID string) (bool, error) {
	now := r.now()
	res := r.db.WithContext(ctx).
		Model(&sessionDatamodel.RefreshToken{}).
		Where("token_hash = ? AND account_id = ? AND is_revoked = ?", session.HashToken(token), accountID, false).
		Updates(map[string]interface{}{
			"is_revoked": true,
			"revoked_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("revoke session: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *SessionRepository) RecordLoginAttempt(ctx context.Context, attempt session.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.LoginAt.IsZero() {
		attempt.LoginAt = r.now()
	}
	row := &sessionDatamodel.LoginHistory{
		ID:            attempt.ID,
		AccountID:     attempt.AccountID,
		Email:         attempt.Email,
		IPAddress:     attempt.IPAddress,
		UserAgent:     attempt.UserAgent,
		Status:        string(attempt.Status),
		FailureReason: attempt.FailureReason,
		LoginAt:       attempt.LoginAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

// MarkLogout stamps logout_at on the newest successful login still open.
func (r *SessionRepository) MarkLogout(ctx context.Context, accountID string, at time.Time) error {
	var row sessionDatamodel.LoginHistory
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ? AND logout_at IS NULL", accountID, string(session.LoginSuccess)).
		Order("login_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find open login: %w", err)
	}
	return r.db.WithContext(ctx).
		Model(&sessionDatamodel.LoginHistory{}).
		Where("id = ?", row.ID).
		Update("logout_at", at).Error
}

func toRow(s *session.Session) *sessionDatamodel.RefreshToken {
	return &sessionDatamodel.RefreshToken{
		ID:        s.ID,
		AccountID: s.AccountID,
		TokenHash: s.TokenHash,
		UserAgent: s.Metadata.UserAgent,
		IPAddress: s.Metadata.IPAddress,
		Device:    s.Metadata.Device,
		IsRevoked: s.IsRevoked,
		RevokedAt: s.RevokedAt,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func fromRow(row *sessionDatamodel.RefreshToken) *session.Session {
	return &session.Session{
		ID:        row.ID,
		AccountID: row.AccountID,
		TokenHash: row.TokenHash,
		Metadata: session.Metadata{
			UserAgent: row.UserAgent,
			IPAddress: row.IPAddress,
			Device:    row.Device,
		},
		IsRevoked: row.IsRevoked,
		RevokedAt: row.RevokedAt,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}
}
