package user

import "github.com/frahmantamala/hris-auth/internal/session"

type LoginHistoryResponse struct {
	AccountID string                 `json:"account_id"`
	Entries   []session.LoginAttempt `json:"entries"`
}
