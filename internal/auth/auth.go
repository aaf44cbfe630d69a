// Package auth provides authentication for the data-explorer gateway.
// MVP uses static token authentication, mapping each token to the raw
// fields the Caller Context Validator (C0) needs to build a
// caller.Context: who the caller is, what organization they belong to,
// and what they're permitted to see.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Principal is the raw, pre-validation identity and scope data carried
// by an authenticated request. The gateway passes this to
// caller.New to construct the immutable caller.Context the rest of the
// pipeline consumes — auth never constructs a caller.Context itself, so
// the construction-time validation in internal/caller stays the single
// place that enforces well-formedness.
type Principal struct {
	ID                     string    `json:"id"`
	IsSuperAdmin           bool      `json:"is_super_admin"`
	OrganizationID         string    `json:"organization_id"`
	Permissions            []string  `json:"permissions"`
	AccessiblePracticeIDs  []int     `json:"accessible_practice_ids"`
	AccessibleProviderIDs  []int     `json:"accessible_provider_ids"`
	ExpiresAt              time.Time `json:"expires_at,omitempty"`
}

// IsExpired checks if the principal's authentication has expired.
func (p *Principal) IsExpired() bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(p.ExpiresAt)
}

// Authenticator validates authentication tokens and returns the
// authenticated principal.
type Authenticator interface {
	// ValidateToken validates a token and returns the authenticated
	// principal. Returns an error if the token is invalid or expired.
	ValidateToken(ctx context.Context, token string) (*Principal, error)
}

// StaticTokenAuthenticator implements Authenticator using static
// tokens from configuration. This is the MVP implementation; a later
// phase can swap in a JWT or OAuth2 authenticator behind the same
// interface without touching the gateway.
type StaticTokenAuthenticator struct {
	mu     sync.RWMutex
	tokens map[string]*Principal
}

// NewStaticTokenAuthenticator creates a new static token authenticator.
func NewStaticTokenAuthenticator() *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{
		tokens: make(map[string]*Principal),
	}
}

// RegisterToken adds a token-to-principal mapping.
func (a *StaticTokenAuthenticator) RegisterToken(token string, p *Principal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = p
}

// ValidateToken validates a static token.
func (a *StaticTokenAuthenticator) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("auth: token required")
	}

	a.mu.RLock()
	p, ok := a.tokens[token]
	a.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("auth: invalid token")
	}

	if p.IsExpired() {
		return nil, fmt.Errorf("auth: token expired")
	}

	return p, nil
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const principalContextKey contextKey = "data_explorer_principal"

// ContextWithPrincipal returns a new context with the principal attached.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the principal from the context. Returns
// nil if no principal is attached.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}
