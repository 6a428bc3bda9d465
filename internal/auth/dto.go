package auth

import (
	"strings"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
// IPAddress and UserAgent are filled from the request, not the body.
type LoginDTO struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
	Device    string `json:"device,omitempty"`
}

type RegisterDTO struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName string  `json:"display_name"`
	EmployeeID  *string `json:"employee_id,omitempty"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutDTO may omit the refresh token; the logout is then client-side only.
type LogoutDTO struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate only checks presence; a login never reveals which rule an email breaks.
func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).
		Required().
		MaxBytes(validation.MaxEmailLength, internal.ErrCodeInvalidEmail).
		Email()
	v.Field("password", d.Password).
		Required().
		MinLength(validation.MinPasswordLength, internal.ErrCodeWeakPassword).
		MaxBytes(validation.MaxPasswordLength, internal.ErrCodeWeakPassword)
	v.Field("display_name", d.DisplayName).
		Required().
		MaxLength(validation.MaxDisplayNameLength)
	if d.EmployeeID != nil {
		v.Field("employee_id", *d.EmployeeID).
			Required().
			MaxLength(64)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d RefreshTokenDTO) Validate() error {
	if strings.TrimSpace(d.RefreshToken) == "" {
		return internal.NewValidationFieldError("refresh_token", "refresh_token is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
