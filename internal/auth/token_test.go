package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func decodePayload(token string) map[string]interface{} {
	parts := strings.Split(token, ".")
	Expect(parts).To(HaveLen(3))
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	Expect(err).NotTo(HaveOccurred())
	var payload map[string]interface{}
	Expect(json.Unmarshal(raw, &payload)).To(Succeed())
	return payload
}

var _ = Describe("JWTTokenGenerator", func() {
	var (
		gen *auth.JWTTokenGenerator
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		gen = auth.NewJWTTokenGenerator(testSecurityConfig())
		gen.Now = func() time.Time { return now }
		gen.Logger = silentLogger()
	})

	Describe("access tokens", func() {
		It("should carry the access payload shape", func() {
			employeeID := "E1"
			issued, err := gen.GenerateAccessToken(auth.AccessSubject{
				AccountID:   "acc-1",
				Email:       "ann@example.com",
				Permissions: []string{"employee:read:own"},
				Roles:       []string{"employee"},
				EmployeeID:  &employeeID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(issued.ExpiresAt.Sub(issued.IssuedAt)).To(Equal(15 * time.Minute))

			payload := decodePayload(issued.Token)
			Expect(payload).To(HaveKeyWithValue("sub", "acc-1"))
			Expect(payload).To(HaveKeyWithValue("email", "ann@example.com"))
			Expect(payload).To(HaveKeyWithValue("type", "access"))
			Expect(payload).To(HaveKeyWithValue("employeeId", "E1"))
			Expect(payload).To(HaveKeyWithValue("permissions", ConsistOf("employee:read:own")))
			Expect(payload).To(HaveKeyWithValue("roles", ConsistOf("employee")))
			Expect(payload).To(HaveKey("iat"))
			Expect(payload).To(HaveKey("exp"))
			Expect(payload).To(HaveKey("jti"))
		})

		It("should always include the permission list, even when empty", func() {
			issued, err := gen.GenerateAccessToken(auth.AccessSubject{AccountID: "acc-1", Email: "ann@example.com"})
			Expect(err).NotTo(HaveOccurred())

			payload := decodePayload(issued.Token)
			Expect(payload).To(HaveKeyWithValue("permissions", BeEmpty()))
			Expect(payload).NotTo(HaveKey("employeeId"))
		})

		It("should refuse a token without subject", func() {
			_, err := gen.GenerateAccessToken(auth.AccessSubject{Email: "ann@example.com"})
			Expect(err).To(HaveOccurred())
		})

		It("should validate back into claims", func() {
			issued, _ := gen.GenerateAccessToken(auth.AccessSubject{AccountID: "acc-1", Email: "ann@example.com", Permissions: []string{"*:*:*"}})
			claims, err := gen.ValidateToken(issued.Token, auth.TokenTypeAccess)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.AccountID()).To(Equal("acc-1"))
			Expect(claims.Permissions).To(ConsistOf("*:*:*"))
			Expect(claims.Type).To(Equal(auth.TokenTypeAccess))
		})
	})

	Describe("refresh tokens", func() {
		It("should never carry permissions", func() {
			issued, err := gen.GenerateRefreshToken("acc-1", "ann@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(issued.ExpiresAt.Sub(issued.IssuedAt)).To(Equal(7 * 24 * time.Hour))

			payload := decodePayload(issued.Token)
			Expect(payload).To(HaveKeyWithValue("type", "refresh"))
			Expect(payload).NotTo(HaveKey("permissions"))
			Expect(payload).NotTo(HaveKey("roles"))
		})

		It("should differ when minted twice in the same second", func() {
			a, _ := gen.GenerateRefreshToken("acc-1", "ann@example.com")
			b, _ := gen.GenerateRefreshToken("acc-1", "ann@example.com")
			Expect(a.Token).NotTo(Equal(b.Token))
		})
	})

	Describe("VerifyRefreshToken", func() {
		It("should accept an expired refresh token so the session can decide", func() {
			refresh, _ := gen.GenerateRefreshToken("acc-1", "ann@example.com")
			now = now.Add(8 * 24 * time.Hour)

			claims, err := gen.VerifyRefreshToken(refresh.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Subject).To(Equal("acc-1"))
			Expect(claims.ExpiresAt.Time.Before(now)).To(BeTrue())

			_, err = gen.ValidateToken(refresh.Token, auth.TokenTypeRefresh)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should still check signature, type and expiry presence", func() {
			access, _ := gen.GenerateAccessToken(auth.AccessSubject{AccountID: "acc-1"})
			_, err := gen.VerifyRefreshToken(access.Token)
			Expect(err).To(MatchError(internal.ErrInvalidToken))

			other := auth.NewJWTTokenGenerator(internal.SecurityConfig{JWTSecret: strings.Repeat("x", 40), Issuer: "hris-auth-test"})
			other.Now = gen.Now
			forged, _ := other.GenerateRefreshToken("acc-1", "ann@example.com")
			_, err = gen.VerifyRefreshToken(forged.Token)
			Expect(err).To(MatchError(internal.ErrInvalidToken))

			claims := jwt.MapClaims{"sub": "acc-1", "type": "refresh", "iss": "hris-auth-test"}
			noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			Expect(err).NotTo(HaveOccurred())
			_, err = gen.VerifyRefreshToken(noExp)
			Expect(err).To(MatchError(internal.ErrInvalidToken))

			_, err = gen.VerifyRefreshToken("not-a-jwt")
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})

	Describe("ValidateToken failures", func() {
		It("should reject the wrong token type", func() {
			refresh, _ := gen.GenerateRefreshToken("acc-1", "ann@example.com")
			_, err := gen.ValidateToken(refresh.Token, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrInvalidToken))

			access, _ := gen.GenerateAccessToken(auth.AccessSubject{AccountID: "acc-1"})
			_, err = gen.ValidateToken(access.Token, auth.TokenTypeRefresh)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should reject expired tokens", func() {
			access, _ := gen.GenerateAccessToken(auth.AccessSubject{AccountID: "acc-1"})
			now = now.Add(16 * time.Minute)
			_, err := gen.ValidateToken(access.Token, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should reject tokens signed with another secret", func() {
			other := auth.NewJWTTokenGenerator(internal.SecurityConfig{JWTSecret: strings.Repeat("x", 40), Issuer: "hris-auth-test"})
			other.Now = gen.Now
			access, _ := other.GenerateAccessToken(auth.AccessSubject{AccountID: "acc-1"})
			_, err := gen.ValidateToken(access.Token, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should reject unsigned and non-HMAC tokens", func() {
			claims := jwt.MapClaims{
				"sub":  "acc-1",
				"type": "access",
				"iss":  "hris-auth-test",
				"iat":  now.Unix(),
				"exp":  now.Add(time.Hour).Unix(),
			}
			unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
			Expect(err).NotTo(HaveOccurred())
			_, err = gen.ValidateToken(unsigned, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should reject tokens without expiry", func() {
			claims := jwt.MapClaims{"sub": "acc-1", "type": "access", "iss": "hris-auth-test"}
			noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			Expect(err).NotTo(HaveOccurred())
			_, err = gen.ValidateToken(noExp, auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should reject garbage", func() {
			_, err := gen.ValidateToken("not-a-jwt", auth.TokenTypeAccess)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})
})
