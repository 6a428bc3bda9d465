// Package authz decides whether verified claims satisfy the requirement an
// operation declares.
package authz

import (
	"fmt"
	"sort"
	"sync"

	"github.com/frahmantamala/hris-auth/internal/permission"
)

// Requirement is the declarative metadata attached to an operation. The zero
// value declares nothing and allows every caller, authenticated or not.
type Requirement struct {
	Skip  bool
	AnyOf []string
	AllOf []string
	Roles []string
}

// Public marks an operation that is never evaluated.
func Public() Requirement {
	return Requirement{Skip: true}
}

func AnyOf(permissions ...string) Requirement {
	return Requirement{AnyOf: permissions}
}

func AllOf(permissions ...string) Requirement {
	return Requirement{AllOf: permissions}
}

func RequireRoles(roles ...string) Requirement {
	return Requirement{Roles: roles}
}

// And combines two requirements on the same operation.
func (r Requirement) And(other Requirement) Requirement {
	return Requirement{
		Skip:  r.Skip && other.Skip,
		AnyOf: append(append([]string(nil), r.AnyOf...), other.AnyOf...),
		AllOf: append(append([]string(nil), r.AllOf...), other.AllOf...),
		Roles: append(append([]string(nil), r.Roles...), other.Roles...),
	}
}

func (r Requirement) IsEmpty() bool {
	return !r.Skip && len(r.AnyOf) == 0 && len(r.AllOf) == 0 && len(r.Roles) == 0
}

func (r Requirement) validate() error {
	for _, list := range [][]string{r.AnyOf, r.AllOf} {
		for _, p := range list {
			if err := permission.Validate(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Registry maps operation ids to requirements. Entries are added while
// routes are registered and read on every request.
type Registry struct {
	mu   sync.RWMutex
	reqs map[string]Requirement
}

func NewRegistry() *Registry {
	return &Registry{reqs: make(map[string]Requirement)}
}

// Register rejects malformed permission strings and duplicate operations.
func (r *Registry) Register(operation string, req Requirement) error {
	if operation == "" {
		return fmt.Errorf("operation id is required")
	}
	if err := req.validate(); err != nil {
		return fmt.Errorf("operation %s: %w", operation, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reqs[operation]; exists {
		return fmt.Errorf("operation %s already registered", operation)
	}
	r.reqs[operation] = req
	return nil
}

// MustRegister panics on error; route tables are static so a failure is a programming error.
func (r *Registry) MustRegister(operation string, req Requirement) {
	if err := r.Register(operation, req); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(operation string) (Requirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.reqs[operation]
	return req, ok
}

func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]string, 0, len(r.reqs))
	for op := range r.reqs {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
