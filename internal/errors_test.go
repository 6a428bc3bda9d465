package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("should match sentinels through wrapping and cause copies", func() {
		wrapped := fmt.Errorf("login: %w", internal.ErrInvalidCredentials.WithCause(errors.New("bcrypt mismatch")))
		Expect(errors.Is(wrapped, internal.ErrInvalidCredentials)).To(BeTrue())
		Expect(errors.Is(wrapped, internal.ErrInvalidToken)).To(BeFalse())
		Expect(internal.ErrInvalidCredentials.Cause).To(BeNil())
	})

	It("should keep the three forbidden causes distinct", func() {
		Expect(errors.Is(internal.ErrForbiddenOwnership, internal.ErrInsufficientPermission)).To(BeFalse())
		Expect(errors.Is(internal.ErrInsufficientRole, internal.ErrInsufficientPermission)).To(BeFalse())
	})

	It("should render the envelope without the cause", func() {
		status, body := internal.ErrSessionRevoked.WithCause(errors.New("row 42")).ToHTTPResponse()
		Expect(status).To(Equal(http.StatusUnauthorized))

		out, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(MatchJSON(`{"error":{"type":"UNAUTHORIZED","code":"SESSION_REVOKED","message":"Session has been revoked"}}`))
	})

	It("should surface the first field message for validation errors", func() {
		err := internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed)
		Expect(err.Error()).To(Equal("email is required"))
		Expect(err.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(err.GetDetailedMessage()).To(Equal("email is required"))
	})

	It("should find AppErrors inside wrapped errors", func() {
		appErr, ok := internal.IsAppError(fmt.Errorf("x: %w", internal.ErrRoleNotFound))
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))

		_, ok = internal.IsAppError(errors.New("plain"))
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("WithTimeout", func() {
	It("should apply a default when no duration is configured", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 0)
		defer cancel()
		_, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
	})

	It("should honour an explicit duration", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deadline, _ := ctx.Deadline()
		Expect(time.Until(deadline)).To(BeNumerically("<=", time.Minute))
	})
})
