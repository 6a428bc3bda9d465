package rest_test

import (
	"github.com/frahmantamala/hris-auth/internal/permission"
	"github.com/frahmantamala/hris-auth/internal/transport/rest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Operation registry", func() {
	reg := rest.NewOperationRegistry()

	It("should only carry well-formed permissions", func() {
		for _, op := range reg.Operations() {
			req, ok := reg.Lookup(op)
			Expect(ok).To(BeTrue())
			for _, p := range append(append([]string{}, req.AnyOf...), req.AllOf...) {
				Expect(permission.Validate(p)).To(Succeed(), "operation %s", op)
			}
		}
	})

	It("should keep the credential endpoints public", func() {
		for _, op := range []string{rest.OpLogin, rest.OpRefresh, rest.OpRegister, rest.OpHealth} {
			req, ok := reg.Lookup(op)
			Expect(ok).To(BeTrue())
			Expect(req.Skip).To(BeTrue(), op)
		}
	})

	It("should let own-scope holders read their own profile", func() {
		req, _ := reg.Lookup(rest.OpGetUser)
		Expect(req.AnyOf).To(ConsistOf("user:read:all", "user:read:own"))
	})
})
