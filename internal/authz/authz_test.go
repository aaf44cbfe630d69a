package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/errors"
)

func TestRequirePermission_AllowsWhenCallerHasToken(t *testing.T) {
	e := NewEvaluator()
	c, err := caller.New("caller-1", false, "org-1", []string{ResourceQuery + ":read"}, nil, nil)
	require.NoError(t, err)

	err = e.RequirePermission(context.Background(), c, ResourceQuery, "read")
	assert.NoError(t, err)
}

func TestRequirePermission_DeniesByDefault(t *testing.T) {
	e := NewEvaluator()
	c, err := caller.New("caller-1", false, "org-1", nil, nil, nil)
	require.NoError(t, err)

	err = e.RequirePermission(context.Background(), c, ResourceQuery, "read")
	require.Error(t, err)

	var denied *errors.ErrPermissionDenied
	require.ErrorAs(t, err, &denied)
}

func TestRequirePermission_SuperAdminBypassesCheck(t *testing.T) {
	e := NewEvaluator()
	c, err := caller.New("caller-1", true, "org-1", nil, nil, nil)
	require.NoError(t, err)

	err = e.RequirePermission(context.Background(), c, ResourceExecute, "run")
	assert.NoError(t, err)
}

func TestRequirePermission_NilCallerIsMalformed(t *testing.T) {
	e := NewEvaluator()

	err := e.RequirePermission(context.Background(), nil, ResourceQuery, "read")
	require.Error(t, err)

	var malformed *errors.ErrMalformedCallerContext
	require.ErrorAs(t, err, &malformed)
}

func TestBypassTenantFilter_OnlyForSuperAdmin(t *testing.T) {
	e := NewEvaluator()

	admin, err := caller.New("c1", true, "org-1", nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, e.BypassTenantFilter(admin))

	regular, err := caller.New("c2", false, "org-1", nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, e.BypassTenantFilter(regular))
}

func TestAccessiblePracticeIDs_DelegatesToContext(t *testing.T) {
	e := NewEvaluator()
	c, err := caller.New("c1", false, "org-1", nil, []int{7, 8}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{7, 8}, e.AccessiblePracticeIDs(c))
}
