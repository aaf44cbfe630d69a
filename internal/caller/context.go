// Package caller models the authenticated principal the pipeline receives
// from the (external) authentication/authorization layer. Per spec §3 the
// caller context is opaque, immutable, and created once before the core
// runs; this package never mutates a Context after construction and the
// rest of the pipeline threads it explicitly through every call instead of
// reading it from an ambient global.
package caller

import (
	"strings"

	"github.com/nexushealth/data-explorer/internal/errors"
)

// Scope is the breadth a permission token grants. Per spec §9 "prefer a
// tagged variant over free-form strings... parsed once at the edge".
type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeAll          Scope = "all"
)

func parseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case ScopeOrganization, ScopeAll:
		return Scope(s), true
	default:
		return "", false
	}
}

// Permission is a single resolved `resource:action[:scope]` token, parsed
// once when the Context is constructed.
type Permission struct {
	Resource string
	Action   string
	Scope    Scope // zero value means the token carried no scope segment
}

// parsePermission splits a token of the form resource:action[:scope],
// anchored from the right: the resource itself may be namespaced and
// contain colons (e.g. "data-explorer:metadata"), so the action is
// always the segment before an optional trailing scope, and everything
// before that is joined back into the resource.
func parsePermission(token string) (Permission, error) {
	parts := strings.Split(token, ":")
	if len(parts) < 2 {
		return Permission{}, errors.NewMalformedCallerContext("permissions",
			"permission token '"+token+"' is not of the form resource:action[:scope]")
	}

	if len(parts) >= 3 {
		if scope, ok := parseScope(parts[len(parts)-1]); ok {
			resource := strings.Join(parts[:len(parts)-2], ":")
			action := parts[len(parts)-2]
			if resource == "" || action == "" {
				return Permission{}, errors.NewMalformedCallerContext("permissions",
					"permission token '"+token+"' has an empty resource or action")
			}
			return Permission{Resource: resource, Action: action, Scope: scope}, nil
		}
	}

	resource := strings.Join(parts[:len(parts)-1], ":")
	action := parts[len(parts)-1]
	if resource == "" || action == "" {
		return Permission{}, errors.NewMalformedCallerContext("permissions",
			"permission token '"+token+"' has an empty resource or action")
	}
	return Permission{Resource: resource, Action: action}, nil
}

// Context is the immutable per-request value described in spec §3.
// Zero value is not meaningful; always construct via New.
type Context struct {
	id                    string
	isSuperAdmin          bool
	organizationID        string
	permissions           []Permission
	accessiblePracticeIDs []int
	accessibleProviderIDs []int
}

// New constructs a Context from raw fields as supplied by the external
// authentication layer, parsing permission tokens once at the edge.
// Per spec §4.1 failure semantics: fail closed on any structural defect.
func New(id string, isSuperAdmin bool, organizationID string, rawPermissions []string, accessiblePracticeIDs, accessibleProviderIDs []int) (*Context, error) {
	if id == "" {
		return nil, errors.NewMalformedCallerContext("id", "caller id cannot be empty")
	}
	perms := make([]Permission, 0, len(rawPermissions))
	for _, token := range rawPermissions {
		p, err := parsePermission(token)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	practiceIDs := append([]int(nil), accessiblePracticeIDs...)
	providerIDs := append([]int(nil), accessibleProviderIDs...)
	return &Context{
		id:                    id,
		isSuperAdmin:          isSuperAdmin,
		organizationID:        organizationID,
		permissions:           perms,
		accessiblePracticeIDs: practiceIDs,
		accessibleProviderIDs: providerIDs,
	}, nil
}

// ID returns the caller's identifier.
func (c *Context) ID() string { return c.id }

// IsSuperAdmin reports whether the caller is exempt from tenant scoping.
func (c *Context) IsSuperAdmin() bool { return c.isSuperAdmin }

// OrganizationID returns the caller's current organization id.
func (c *Context) OrganizationID() string { return c.organizationID }

// AccessiblePracticeIDs returns a copy of the caller's accessible practice
// id set. Callers must not assume any ordering.
func (c *Context) AccessiblePracticeIDs() []int {
	return append([]int(nil), c.accessiblePracticeIDs...)
}

// AccessibleProviderIDs returns a copy of the caller's accessible provider
// id set.
func (c *Context) AccessibleProviderIDs() []int {
	return append([]int(nil), c.accessibleProviderIDs...)
}

// HasPermission reports whether the caller's resolved permission set
// contains a token for (resource, action), at any scope. Scope narrows
// what data the action may touch (enforced downstream via tenant
// scoping); it does not gate whether the action is permitted at all.
func (c *Context) HasPermission(resource, action string) bool {
	if c.isSuperAdmin {
		return true
	}
	for _, p := range c.permissions {
		if p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the caller's resolved permission set.
func (c *Context) Permissions() []Permission {
	return append([]Permission(nil), c.permissions...)
}
