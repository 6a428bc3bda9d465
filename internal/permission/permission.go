// Package permission implements the resource:action:scope permission strings
// carried in access tokens and attached to roles.
package permission

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/frahmantamala/hris-auth/internal"
)

// Wildcard matches any value in the segment it occupies. It is only
// meaningful on the held (granted) side of a match.
const Wildcard = "*"

const separator = ":"

type Resource string

const (
	ResourceEmployee     Resource = "employee"
	ResourceAttendance   Resource = "attendance"
	ResourceLeave        Resource = "leave"
	ResourcePayroll      Resource = "payroll"
	ResourceNotification Resource = "notification"
	ResourceRole         Resource = "role"
	ResourcePermission   Resource = "permission"
	ResourceUser         Resource = "user"
	ResourceAny          Resource = Wildcard
)

type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionAssign  Action = "assign"
	ActionRevoke  Action = "revoke"
	ActionExport  Action = "export"
	ActionAny     Action = Wildcard
)

type Scope string

const (
	ScopeOwn        Scope = "own"
	ScopeDepartment Scope = "department"
	ScopeAll        Scope = "all"
	ScopeAny        Scope = Wildcard
)

var resources = map[Resource]struct{}{
	ResourceEmployee: {}, ResourceAttendance: {}, ResourceLeave: {}, ResourcePayroll: {},
	ResourceNotification: {}, ResourceRole: {}, ResourcePermission: {}, ResourceUser: {},
	ResourceAny: {},
}

var actions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {}, ActionApprove: {},
	ActionReject: {}, ActionAssign: {}, ActionRevoke: {}, ActionExport: {}, ActionAny: {},
}

func (r Resource) Valid() bool {
	_, ok := resources[r]
	return ok
}

func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

func (s Scope) Valid() bool {
	switch s {
	case ScopeOwn, ScopeDepartment, ScopeAll, ScopeAny:
		return true
	}
	return false
}

var grammar = regexp.MustCompile(`^([a-z_]+|\*):([a-z_]+|\*):(own|department|all|\*)$`)

// Permission is an immutable resource/action/scope triple.
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	Scope    Scope    `json:"scope"`
}

func (p Permission) String() string {
	return Build(p.Resource, p.Action, p.Scope)
}

// IsWildcard reports whether any segment is the wildcard.
func (p Permission) IsWildcard() bool {
	return p.Resource == ResourceAny || p.Action == ActionAny || p.Scope == ScopeAny
}

// Parse splits s into its three segments. It fails, without error, unless s
// has exactly three non-empty colon-separated segments.
func Parse(s string) (Permission, bool) {
	parts := strings.Split(s, separator)
	if len(parts) != 3 {
		return Permission{}, false
	}
	for _, part := range parts {
		if part == "" {
			return Permission{}, false
		}
	}
	return Permission{
		Resource: Resource(parts[0]),
		Action:   Action(parts[1]),
		Scope:    Scope(parts[2]),
	}, true
}

// Build formats a permission string. It does not validate the segments.
func Build(resource Resource, action Action, scope Scope) string {
	return string(resource) + separator + string(action) + separator + string(scope)
}

// Normalize trims and lower-cases s so equality is plain string equality.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks the grammar and the closed resource/action enumerations.
func Validate(s string) error {
	if !grammar.MatchString(s) {
		return fmt.Errorf("%w: %q", internal.ErrMalformedPermission, s)
	}
	p, _ := Parse(s)
	if !p.Resource.Valid() {
		return fmt.Errorf("%w: unknown resource %q", internal.ErrMalformedPermission, p.Resource)
	}
	if !p.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", internal.ErrMalformedPermission, p.Action)
	}
	return nil
}

// Matches reports whether the held grant satisfies the required permission.
// A held segment of "*" passes its position; every other segment must be equal.
func Matches(required, held string) bool {
	req := strings.Split(required, separator)
	got := strings.Split(held, separator)
	if len(req) != 3 || len(got) != 3 {
		return false
	}
	for i := range req {
		if got[i] == Wildcard {
			continue
		}
		if got[i] != req[i] {
			return false
		}
	}
	return true
}

// Contains tries exact membership first and falls back to wildcard matching.
func Contains(held []string, required string) bool {
	for _, h := range held {
		if h == required {
			return true
		}
	}
	for _, h := range held {
		if Matches(required, h) {
			return true
		}
	}
	return false
}

// Union merges lists into a sorted, deduplicated slice of normalized strings.
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, v := range list {
			v = Normalize(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
