package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/session"
	"golang.org/x/crypto/bcrypt"
)

const bearerTokenType = "Bearer"

// Service is the credential service: register, login, refresh and logout.
type Service struct {
	accounts   AccountRepository
	sessions   session.Store
	audit      session.AuditLog
	tokens     TokenGeneratorAPI
	bcryptCost int
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(accounts AccountRepository, sessions session.Store, audit session.AuditLog, tokens TokenGeneratorAPI, cfg internal.SecurityConfig, logger *slog.Logger) *Service {
	cfg.ApplyDefaults()
	cost := cfg.BCryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		accounts:   accounts,
		sessions:   sessions,
		audit:      audit,
		tokens:     tokens,
		bcryptCost: cost,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source; tests use it to move past expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AccountSummary, error) {
	dto.Email = normalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.accounts.FindByEmail(ctx, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up account", err)
	}
	if existing != nil {
		return nil, internal.ErrConflict
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	account := &Account{
		Email:        dto.Email,
		DisplayName:  dto.DisplayName,
		PasswordHash: hash,
		EmployeeID:   dto.EmployeeID,
		IsActive:     true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, internal.ErrConflict) {
			return nil, internal.ErrConflict
		}
		return nil, internal.NewInternalError("failed to create account", err)
	}

	s.logger.Info("account registered", "account_id", account.ID)
	summary := account.Summary()
	return &summary, nil
}

// Login verifies credentials and opens a session. The disabled check runs
// after the password check so a wrong password never reveals account state.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	email := normalizeEmail(dto.Email)

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up account", err)
	}
	if account == nil {
		s.recordAttempt(ctx, nil, email, dto, session.LoginFailed, "account_not_found")
		return nil, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(account.PasswordHash, dto.Password); err != nil {
		s.recordAttempt(ctx, &account.ID, email, dto, session.LoginFailed, "invalid_password")
		return nil, internal.ErrInvalidCredentials
	}

	if !account.Enabled() {
		s.recordAttempt(ctx, &account.ID, email, dto, session.LoginBlocked, account.disabledReason())
		return nil, internal.ErrAccountDisabled
	}

	now := s.now()
	permissions, roles, err := s.accounts.Grants(ctx, account.ID, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to load grants", err)
	}

	access, err := s.tokens.GenerateAccessToken(AccessSubject{
		AccountID:   account.ID,
		Email:       account.Email,
		Permissions: permissions,
		Roles:       roles,
		EmployeeID:  account.EmployeeID,
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to issue access token", err)
	}

	refresh, err := s.tokens.GenerateRefreshToken(account.ID, account.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue refresh token", err)
	}

	sess, err := session.New(account.ID, refresh.Token, refresh.IssuedAt, refresh.ExpiresAt, session.Metadata{
		UserAgent: dto.UserAgent,
		IPAddress: dto.IPAddress,
		Device:    dto.Device,
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to build session", err)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, session.ErrSessionCollision) {
			s.logger.Error("refresh token collision", "account_id", account.ID, "session_id", sess.ID, "error", err)
			return nil, session.ErrSessionCollision.WithCause(err)
		}
		s.logger.Error("failed to persist session", "account_id", account.ID, "error", err)
		return nil, internal.NewInternalError("failed to persist session", err)
	}

	s.recordAttempt(ctx, &account.ID, email, dto, session.LoginSuccess, "")
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("failed to update last login", "account_id", account.ID, "error", err)
	} else {
		account.LastLoginAt = &now
	}

	s.logger.Info("login succeeded", "account_id", account.ID, "permissions_count", len(permissions), "roles", roles)

	return &LoginResult{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    bearerTokenType,
		ExpiresIn:    int64(access.ExpiresAt.Sub(access.IssuedAt).Seconds()),
		Account:      account.Summary(),
		Permissions:  permissions,
		Roles:        roles,
	}, nil
}

// Refresh mints a new access token from a stored refresh token. The refresh
// token itself is not rotated. Grants are aggregated again so role changes
// since login take effect.
func (s *Service) Refresh(ctx context.Context, dto RefreshTokenDTO) (*RefreshResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.tokens.VerifyRefreshToken(dto.RefreshToken)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	sess, err := s.sessions.FindByToken(ctx, dto.RefreshToken)
	if err != nil {
		return nil, internal.NewInternalError("failed to load session", err)
	}
	if sess == nil || sess.AccountID != claims.AccountID() {
		return nil, internal.ErrInvalidSession
	}

	// the session decides expiry; the token's exp only backs it up
	now := s.now()
	switch sess.StateAt(now) {
	case session.StateRevoked:
		return nil, internal.ErrSessionRevoked
	case session.StateExpired:
		return nil, internal.ErrSessionExpired
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, internal.ErrSessionExpired
	}

	account, err := s.accounts.FindByID(ctx, sess.AccountID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load account", err)
	}
	if account == nil {
		return nil, internal.ErrInvalidSession
	}
	if !account.Enabled() {
		s.logger.Warn("refresh refused for disabled account", "account_id", account.ID)
		return nil, internal.ErrAccountDisabled
	}

	permissions, roles, err := s.accounts.Grants(ctx, account.ID, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to load grants", err)
	}

	access, err := s.tokens.GenerateAccessToken(AccessSubject{
		AccountID:   account.ID,
		Email:       account.Email,
		Permissions: permissions,
		Roles:       roles,
		EmployeeID:  account.EmployeeID,
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to issue access token", err)
	}

	return &RefreshResult{
		AccessToken: access.Token,
		TokenType:   bearerTokenType,
		ExpiresIn:   int64(access.ExpiresAt.Sub(access.IssuedAt).Seconds()),
		Account:     account.Summary(),
		Permissions: permissions,
		Roles:       roles,
	}, nil
}

// Logout revokes the presented refresh token when there is one. Without a
// token there is nothing server-side to revoke and the call succeeds.
func (s *Service) Logout(ctx context.Context, accountID string, dto LogoutDTO) error {
	if dto.RefreshToken == "" {
		s.logger.Debug("logout without refresh token", "account_id", accountID)
		return nil
	}

	revoked, err := s.sessions.Revoke(ctx, dto.RefreshToken, accountID)
	if err != nil {
		return internal.NewInternalError("failed to revoke session", err)
	}
	if !revoked {
		return nil
	}

	if err := s.audit.MarkLogout(ctx, accountID, s.now()); err != nil {
		s.logger.Warn("failed to stamp logout", "account_id", accountID, "error", err)
	}
	s.logger.Info("session revoked", "account_id", accountID)
	return nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.ValidateToken(tokenString, TokenTypeAccess)
}

// recordAttempt is best effort: an audit failure is logged and never fails the login.
func (s *Service) recordAttempt(ctx context.Context, accountID *string, email string, dto LoginDTO, status session.LoginStatus, reason string) {
	attempt := session.LoginAttempt{
		AccountID: accountID,
		Email:     email,
		IPAddress: dto.IPAddress,
		UserAgent: dto.UserAgent,
		Status:    status,
		LoginAt:   s.now(),
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}
	if err := s.audit.RecordLoginAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", "email", email, "status", status, "error", err)
	}
	if status != session.LoginSuccess {
		s.logger.Warn("login rejected", "email", email, "status", status, "reason", reason, "ip", dto.IPAddress)
	}
}
