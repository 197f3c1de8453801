package dbtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

func TestRoleSetRoundTrip(t *testing.T) {
	set := RoleSet{enums.RoleCustomer, enums.RoleStaff}
	v, err := set.Value()
	require.NoError(t, err)
	assert.Equal(t, "{customer,staff}", v)

	var out RoleSet
	require.NoError(t, out.Scan([]byte(`{"customer","staff"}`)))
	assert.Equal(t, set, out)
}

func TestRoleSetEmptyAndInvalid(t *testing.T) {
	var out RoleSet
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)

	require.NoError(t, out.Scan("{}"))
	assert.Empty(t, out)

	assert.Error(t, out.Scan("{wizard}"))
	assert.Error(t, out.Scan(42))
}

func TestRoleSetAdd(t *testing.T) {
	set := RoleSet{}.Add(enums.RoleCustomer).Add(enums.RoleCustomer)
	assert.Len(t, set, 1)
	assert.True(t, set.Has(enums.RoleCustomer))
	assert.False(t, set.Has(enums.RoleStaff))
}
