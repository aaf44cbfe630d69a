package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipal_IsExpired(t *testing.T) {
	p := &Principal{}
	assert.False(t, p.IsExpired())

	p.ExpiresAt = time.Now().Add(time.Hour)
	assert.False(t, p.IsExpired())

	p.ExpiresAt = time.Now().Add(-time.Hour)
	assert.True(t, p.IsExpired())
}

func TestStaticTokenAuthenticator_ValidateToken(t *testing.T) {
	a := NewStaticTokenAuthenticator()
	a.RegisterToken("tok-1", &Principal{ID: "caller-1"})

	p, err := a.ValidateToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "caller-1", p.ID)
}

func TestStaticTokenAuthenticator_RejectsEmptyToken(t *testing.T) {
	a := NewStaticTokenAuthenticator()
	_, err := a.ValidateToken(context.Background(), "")
	assert.Error(t, err)
}

func TestStaticTokenAuthenticator_RejectsUnknownToken(t *testing.T) {
	a := NewStaticTokenAuthenticator()
	_, err := a.ValidateToken(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStaticTokenAuthenticator_RejectsExpiredToken(t *testing.T) {
	a := NewStaticTokenAuthenticator()
	a.RegisterToken("tok-1", &Principal{ID: "caller-1", ExpiresAt: time.Now().Add(-time.Minute)})

	_, err := a.ValidateToken(context.Background(), "tok-1")
	assert.Error(t, err)
}

func TestContextWithPrincipal_RoundTrips(t *testing.T) {
	p := &Principal{ID: "caller-1"}
	ctx := ContextWithPrincipal(context.Background(), p)

	assert.Same(t, p, PrincipalFromContext(ctx))
}

func TestPrincipalFromContext_NilWhenAbsent(t *testing.T) {
	assert.Nil(t, PrincipalFromContext(context.Background()))
}
