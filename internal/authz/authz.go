// Package authz implements the Permission Evaluator (C1): given a caller
// context and a requested permission, decide allow or deny, and expose the
// caller's effective accessible practice set to the rest of the pipeline.
//
// Core principle, carried over from the deny-by-default model this is
// grounded on: absence of permission is denial.
package authz

import (
	"context"

	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/errors"
)

// Permission token resources recognized by the core (spec §6). Tokens
// are parsed right-anchored as resource:action[:scope] (see
// internal/caller.parsePermission), so "data-explorer:query:all" and
// "data-explorer:execute:all" both resolve to the same base resource
// "data-explorer", differing only in action ("query" vs "execute").
// ResourceQuery and ResourceExecute are therefore equal in value,
// named separately so call sites read as which action they gate.
const (
	ResourceQuery     = "data-explorer"
	ResourceExecute   = "data-explorer"
	ResourceMetadata  = "data-explorer:metadata"
	ResourceDiscovery = "data-explorer:discovery"
)

// Evaluator decides whether a caller may perform an action and exposes
// the caller's effective tenant scope. It is stateless: all state it
// needs (permissions, scope) lives on the caller.Context it is given.
type Evaluator struct{}

// NewEvaluator creates a Permission Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// RequirePermission fails with ErrPermissionDenied when the token
// `resource:action` is absent from the caller's resolved permission set
// and the caller is not super-admin. Per spec §4.1: fail-closed, never an
// unstructured error.
func (e *Evaluator) RequirePermission(ctx context.Context, c *caller.Context, resource, action string) error {
	if c == nil {
		return errors.NewMalformedCallerContext("caller", "no caller context provided")
	}
	if !c.HasPermission(resource, action) {
		return errors.NewPermissionDenied(resource + ":" + action)
	}
	return nil
}

// AccessiblePracticeIDs returns ctx.accessible_practice_ids unchanged, per
// spec §4.1. The tenant filter is skipped entirely downstream when
// BypassTenantFilter reports true; this is the only honored scope escape.
func (e *Evaluator) AccessiblePracticeIDs(c *caller.Context) []int {
	return c.AccessiblePracticeIDs()
}

// BypassTenantFilter reports true iff the caller is super-admin.
func (e *Evaluator) BypassTenantFilter(c *caller.Context) bool {
	return c.IsSuperAdmin()
}
