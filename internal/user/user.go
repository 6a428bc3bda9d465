package user

import (
	"context"
	"time"

	"github.com/frahmantamala/hris-auth/internal/auth"
)

// Profile is an account as seen by the profile endpoints, with its current grants.
type Profile struct {
	auth.AccountSummary
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// AccountReader is the slice of the account repository the profile service reads.
type AccountReader interface {
	FindByID(ctx context.Context, id string) (*auth.Account, error)
	Grants(ctx context.Context, accountID string, at time.Time) ([]string, []string, error)
}
