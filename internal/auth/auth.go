package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Account is the credential record behind a login.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	EmployeeID   *string
	IsActive     bool
	IsSuspended  bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}

// Enabled is false for inactive or suspended accounts; neither may hold tokens.
func (a *Account) Enabled() bool {
	return a.IsActive && !a.IsSuspended
}

func (a *Account) disabledReason() string {
	if a.IsSuspended {
		return "account_suspended"
	}
	return "account_inactive"
}

// AccountSummary is what the API returns about an account. It never carries the hash.
type AccountSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	EmployeeID  *string    `json:"employee_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsSuspended bool       `json:"is_suspended"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		EmployeeID:  a.EmployeeID,
		IsActive:    a.IsActive,
		IsSuspended: a.IsSuspended,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

// Claims is the verified content of a token. Refresh tokens leave
// Permissions, Roles and EmployeeID empty.
type Claims struct {
	Email       string    `json:"email"`
	Permissions []string  `json:"permissions,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	EmployeeID  string    `json:"employeeId,omitempty"`
	Type        TokenType `json:"type"`
	jwt.RegisteredClaims
}

// AccountID is the subject of the token.
func (c *Claims) AccountID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// AccessSubject is everything an access token asserts about its bearer.
type AccessSubject struct {
	AccountID   string
	Email       string
	Permissions []string
	Roles       []string
	EmployeeID  *string
}

// IssuedToken is a signed token together with the instants it encodes.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(subject AccessSubject) (*IssuedToken, error)
	GenerateRefreshToken(accountID, email string) (*IssuedToken, error)
	ValidateToken(tokenString string, expected TokenType) (*Claims, error)
	VerifyRefreshToken(tokenString string) (*Claims, error)
}

// AccountRepository is the storage the credential service needs. Find
// methods return nil, nil when nothing matches.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	// Grants returns the union of permissions and the role names over every
	// assignment valid at the given instant.
	Grants(ctx context.Context, accountID string, at time.Time) (permissions []string, roles []string, err error)
	TouchLastLogin(ctx context.Context, accountID string, at time.Time) error
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AccountSummary, error)
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	Refresh(ctx context.Context, dto RefreshTokenDTO) (*RefreshResult, error)
	Logout(ctx context.Context, accountID string, dto LogoutDTO) error
	ValidateAccessToken(tokenString string) (*Claims, error)
}

type LoginResult struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	Account      AccountSummary `json:"account"`
	Permissions  []string       `json:"permissions"`
	Roles        []string       `json:"roles"`
}

type RefreshResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	Account     AccountSummary `json:"account"`
	Permissions []string       `json:"permissions"`
	Roles       []string       `json:"roles"`
}
