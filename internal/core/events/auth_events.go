package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccountRegistered = "auth.account.registered"
	EventTypeLoginSucceeded    = "auth.login.succeeded"
	EventTypeLoginFailed       = "auth.login.failed"
	EventTypeSessionRevoked    = "auth.session.revoked"
	EventTypeAccessDenied      = "authz.denied"
)

// AuthEventTypes lists every event the auth service publishes.
var AuthEventTypes = []string{
	EventTypeAccountRegistered,
	EventTypeLoginSucceeded,
	EventTypeLoginFailed,
	EventTypeSessionRevoked,
	EventTypeAccessDenied,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type AccountRegisteredEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

func NewAccountRegisteredEvent(accountID, email string) *AccountRegisteredEvent {
	return &AccountRegisteredEvent{
		BaseEvent: newBase(EventTypeAccountRegistered, map[string]interface{}{
			"account_id": accountID,
			"email":      email,
		}),
		AccountID: accountID,
		Email:     email,
	}
}

type LoginEvent struct {
	BaseEvent
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email"`
	IPAddress string `json:"ip_address"`
	Reason    string `json:"reason,omitempty"`
}

func NewLoginSucceededEvent(accountID, email, ip string) *LoginEvent {
	return &LoginEvent{
		BaseEvent: newBase(EventTypeLoginSucceeded, map[string]interface{}{
			"account_id": accountID,
			"email":      email,
			"ip_address": ip,
		}),
		AccountID: accountID,
		Email:     email,
		IPAddress: ip,
	}
}

// NewLoginFailedEvent carries the error code, never the submitted password.
func NewLoginFailedEvent(email, ip, reason string) *LoginEvent {
	return &LoginEvent{
		BaseEvent: newBase(EventTypeLoginFailed, map[string]interface{}{
			"email":      email,
			"ip_address": ip,
			"reason":     reason,
		}),
		Email:     email,
		IPAddress: ip,
		Reason:    reason,
	}
}

type SessionRevokedEvent struct {
	BaseEvent
	AccountID string `json:"account_id"`
}

func NewSessionRevokedEvent(accountID string) *SessionRevokedEvent {
	return &SessionRevokedEvent{
		BaseEvent: newBase(EventTypeSessionRevoked, map[string]interface{}{
			"account_id": accountID,
		}),
		AccountID: accountID,
	}
}

type AccessDeniedEvent struct {
	BaseEvent
	AccountID string `json:"account_id,omitempty"`
	Operation string `json:"operation"`
	Code      string `json:"code"`
}

func NewAccessDeniedEvent(accountID, operation, code string) *AccessDeniedEvent {
	return &AccessDeniedEvent{
		BaseEvent: newBase(EventTypeAccessDenied, map[string]interface{}{
			"account_id": accountID,
			"operation":  operation,
			"code":       code,
		}),
		AccountID: accountID,
		Operation: operation,
		Code:      code,
	}
}
