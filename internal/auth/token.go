package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string
	Now                func() time.Time
	Logger             *slog.Logger
}

// accessPayload and refreshPayload fix the encoded shape; Claims decodes both.
type accessPayload struct {
	Email       string    `json:"email"`
	Permissions []string  `json:"permissions"`
	Roles       []string  `json:"roles"`
	EmployeeID  *string   `json:"employeeId,omitempty"`
	Type        TokenType `json:"type"`
	jwt.RegisteredClaims
}

type refreshPayload struct {
	Email string    `json:"email"`
	Type  TokenType `json:"type"`
	jwt.RegisteredClaims
}

func NewJWTTokenGenerator(cfg internal.SecurityConfig) *JWTTokenGenerator {
	cfg.ApplyDefaults()
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(cfg.JWTSecret),
		RefreshTokenSecret: []byte(cfg.RefreshSecret()),
		AccessTokenTTL:     cfg.AccessTokenDuration,
		RefreshTokenTTL:    cfg.RefreshTokenDuration,
		Issuer:             cfg.Issuer,
		Now:                time.Now,
		Logger:             logger.LoggerWrapper(),
	}
}

func (j *JWTTokenGenerator) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTTokenGenerator) registered(subject string, ttl time.Duration) (jwt.RegisteredClaims, time.Time, time.Time) {
	// jwt NumericDate has second precision; truncate so the returned
	// instants equal what a verifier reads back.
	issuedAt := j.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	return jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Subject:   subject,
		Issuer:    j.Issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}, issuedAt, expiresAt
}

// GenerateAccessToken signs the bearer's permissions and roles. Both lists
// are always present in the payload, empty when the account has no grants.
func (j *JWTTokenGenerator) GenerateAccessToken(subject AccessSubject) (*IssuedToken, error) {
	if subject.AccountID == "" {
		return nil, fmt.Errorf("access token requires a subject")
	}
	rc, iat, exp := j.registered(subject.AccountID, j.AccessTokenTTL)

	claims := &accessPayload{
		Email:            subject.Email,
		Permissions:      nonNil(subject.Permissions),
		Roles:            nonNil(subject.Roles),
		EmployeeID:       subject.EmployeeID,
		Type:             TokenTypeAccess,
		RegisteredClaims: rc,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.AccessTokenSecret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{Token: tokenString, IssuedAt: iat, ExpiresAt: exp}, nil
}

func (j *JWTTokenGenerator) GenerateRefreshToken(accountID, email string) (*IssuedToken, error) {
	if accountID == "" {
		return nil, fmt.Errorf("refresh token requires a subject")
	}
	rc, iat, exp := j.registered(accountID, j.RefreshTokenTTL)

	claims := &refreshPayload{
		Email:            email,
		Type:             TokenTypeRefresh,
		RegisteredClaims: rc,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.RefreshTokenSecret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{Token: tokenString, IssuedAt: iat, ExpiresAt: exp}, nil
}

// ValidateToken verifies signature, expiry and type. Every failure is
// reported as internal.ErrInvalidToken; the cause is only logged.
func (j *JWTTokenGenerator) ValidateToken(tokenString string, expected TokenType) (*Claims, error) {
	secret := j.AccessTokenSecret
	if expected == TokenTypeRefresh {
		secret = j.RefreshTokenSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		j.log().Debug("token rejected", "error", err, "expected_type", expected)
		return nil, internal.ErrInvalidToken
	}

	if !token.Valid || claims.Type != expected || claims.Subject == "" {
		j.log().Debug("token rejected", "reason", "type or subject mismatch", "expected_type", expected, "type", claims.Type)
		return nil, internal.ErrInvalidToken
	}

	return claims, nil
}

// VerifyRefreshToken checks signature, issuer, type and subject of a refresh
// token but leaves expiry to the session it names, so an expired token can
// still be reported as an expired session. exp must be present.
func (j *JWTTokenGenerator) VerifyRefreshToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.RefreshTokenSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		j.log().Debug("refresh token rejected", "error", err)
		return nil, internal.ErrInvalidToken
	}

	switch {
	case claims.Type != TokenTypeRefresh, claims.Subject == "":
		j.log().Debug("refresh token rejected", "reason", "type or subject mismatch", "type", claims.Type)
		return nil, internal.ErrInvalidToken
	case claims.ExpiresAt == nil:
		j.log().Debug("refresh token rejected", "reason", "missing exp")
		return nil, internal.ErrInvalidToken
	case j.Issuer != "" && claims.Issuer != j.Issuer:
		j.log().Debug("refresh token rejected", "reason", "issuer mismatch", "issuer", claims.Issuer)
		return nil, internal.ErrInvalidToken
	case claims.IssuedAt != nil && claims.IssuedAt.After(j.now()):
		j.log().Debug("refresh token rejected", "reason", "issued in the future")
		return nil, internal.ErrInvalidToken
	}

	return claims, nil
}

func (j *JWTTokenGenerator) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return logger.LoggerWrapper()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
