package collector

import (
	"context"
	"testing"

	"github.com/nullsweep/camap/api/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleExpanderNoActivatedInstance(t *testing.T) {
	dir := newFakeDirectory()

	session := NewSession()
	e := NewRoleExpander(dir, session, nil)

	// An empty tenant listing is a valid state, not an anomaly.
	members := e.Expand(context.Background(), idTmpl)
	assert.Empty(t, members)
	assert.Zero(t, session.anomalies)
	assert.Equal(t, 1, dir.calls["ListActivatedRoles"])
}

func TestRoleExpanderCachesByTemplate(t *testing.T) {
	dir := newFakeDirectory()
	dir.activated = []schemas.ActivatedRole{
		{ID: idAct, RoleTemplateID: idTmpl, DisplayName: "Global Administrator"},
	}
	dir.roleMembers[idAct] = []schemas.DirectoryEntity{user(idU1, "Alice"), user(idU2, "Bob")}

	session := NewSession()
	e := NewRoleExpander(dir, session, nil)

	first := e.Expand(context.Background(), idTmpl)
	second := e.Expand(context.Background(), idTmpl)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, dir.calls["ListActivatedRoles"])
	assert.Equal(t, 1, dir.calls["GetRoleMembers:"+idAct])

	for _, m := range first {
		assert.Equal(t, []string{"Global Administrator"}, m.Via)
	}
}

func TestRoleExpanderMemberLookupFailure(t *testing.T) {
	dir := newFakeDirectory()
	dir.activated = []schemas.ActivatedRole{
		{ID: idAct, RoleTemplateID: idTmpl, DisplayName: "Global Administrator"},
	}
	// No member fixture for idAct, so GetRoleMembers fails.

	session := NewSession()
	e := NewRoleExpander(dir, session, nil)

	members := e.Expand(context.Background(), idTmpl)
	assert.Empty(t, members)
	assert.Equal(t, 1, session.anomalies)

	// The empty result is cached; the failure is not retried this run.
	e.Expand(context.Background(), idTmpl)
	assert.Equal(t, 1, dir.calls["GetRoleMembers:"+idAct])
}
