package authz

import (
	"net/http"

	"github.com/go-chi/chi"
)

// OwnershipFields are tried in order when an own-scope permission needs the
// target resource id.
var OwnershipFields = []string{"id", "userId", "employeeId", "resourceId"}

// FieldSource exposes request values by name.
type FieldSource interface {
	Field(name string) (string, bool)
}

// Fields is a FieldSource over a plain map.
type Fields map[string]string

func (f Fields) Field(name string) (string, bool) {
	v, ok := f[name]
	return v, ok && v != ""
}

type requestFields struct {
	r *http.Request
}

// RequestFields reads chi URL parameters first, then the query string.
func RequestFields(r *http.Request) FieldSource {
	return requestFields{r: r}
}

func (rf requestFields) Field(name string) (string, bool) {
	if v := chi.URLParam(rf.r, name); v != "" {
		return v, true
	}
	if v := rf.r.URL.Query().Get(name); v != "" {
		return v, true
	}
	return "", false
}

func ownershipTarget(fields FieldSource) (string, string, bool) {
	if fields == nil {
		return "", "", false
	}
	for _, name := range OwnershipFields {
		if v, ok := fields.Field(name); ok {
			return name, v, true
		}
	}
	return "", "", false
}
