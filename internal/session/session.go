// Package session models persisted refresh-token sessions and the login audit trail.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
)

type State string

const (
	StateActive  State = "active"
	StateExpired State = "expired"
	StateRevoked State = "revoked"
)

type LoginStatus string

const (
	LoginSuccess    LoginStatus = "success"
	LoginFailed     LoginStatus = "failed"
	LoginBlocked    LoginStatus = "blocked"
	LoginSuspicious LoginStatus = "suspicious"
)

var (
	ErrInvalidWindow = errors.New("session expiry must be after creation")
	// ErrSessionCollision means two sessions produced the same token hash.
	ErrSessionCollision = &internal.AppError{
		Type:       internal.ErrorTypeInternal,
		Code:       internal.ErrCodeSessionCollision,
		Message:    "session token collision",
		StatusCode: http.StatusInternalServerError,
	}
)

// Metadata describes the client that opened the session.
type Metadata struct {
	UserAgent string
	IPAddress string
	Device    string
}

// Session is a persisted refresh token. Token holds the raw value only on
// sessions created in this process; rows read back carry TokenHash alone.
type Session struct {
	ID        string
	AccountID string
	Token     string
	TokenHash string
	Metadata  Metadata
	IsRevoked bool
	RevokedAt *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// New builds an active session and enforces expiresAt > createdAt.
func New(accountID, token string, createdAt, expiresAt time.Time, md Metadata) (*Session, error) {
	if !expiresAt.After(createdAt) {
		return nil, ErrInvalidWindow
	}
	return &Session{
		AccountID: accountID,
		Token:     token,
		TokenHash: HashToken(token),
		Metadata:  md,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// StateAt reports the session state at now. Revoked takes precedence over
// expired so the audit trail keeps the explicit action.
func (s *Session) StateAt(now time.Time) State {
	if s.IsRevoked {
		return StateRevoked
	}
	if !now.Before(s.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}

// Usable is true only for active sessions.
func (s *Session) Usable(now time.Time) bool {
	return s.StateAt(now) == StateActive
}

// HashToken is the lookup key stored instead of the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LoginAttempt is one append-only audit row.
type LoginAttempt struct {
	ID            string      `json:"id" db:"id"`
	AccountID     *string     `json:"account_id,omitempty" db:"account_id"`
	Email         string      `json:"email" db:"email"`
	IPAddress     string      `json:"ip_address" db:"ip_address"`
	UserAgent     string      `json:"user_agent" db:"user_agent"`
	Status        LoginStatus `json:"status" db:"status"`
	FailureReason *string     `json:"failure_reason,omitempty" db:"failure_reason"`
	LoginAt       time.Time   `json:"login_at" db:"login_at"`
	LogoutAt      *time.Time  `json:"logout_at,omitempty" db:"logout_at"`
}

// Store persists sessions. Implementations rely on the database for per-row
// consistency: a revoke must be visible to every later FindByToken.
type Store interface {
	Create(ctx context.Context, s *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token, accountID string) (bool, error)
}

// AuditLog persists login attempts.
type AuditLog interface {
	RecordLoginAttempt(ctx context.Context, attempt LoginAttempt) error
	MarkLogout(ctx context.Context, accountID string, at time.Time) error
}

// HistoryReader lists login attempts, newest first.
type HistoryReader interface {
	ListLoginHistory(ctx context.Context, accountID string, limit int) ([]LoginAttempt, error)
}
