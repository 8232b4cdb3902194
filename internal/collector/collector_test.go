package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/nullsweep/camap/api/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	idTmpl = "62e90394-69f5-4237-9190-012177145e10"
	idAct  = "99999999-9999-9999-9999-999999999999"
)

func policyIncludingGroup(policyID, name, groupID string) schemas.ConditionalAccessPolicy {
	return schemas.ConditionalAccessPolicy{
		ID:          policyID,
		DisplayName: name,
		State:       "enabled",
		Conditions: schemas.Conditions{
			Users: schemas.UsersCondition{IncludeGroups: []string{groupID}},
		},
	}
}

func TestCollectorFatalWhenPolicyListingFails(t *testing.T) {
	dir := newFakeDirectory()
	dir.policiesErr = errors.New("invalid_client")

	c := New(dir, Options{}, nil)
	res, err := c.Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrFatalConfiguration)
}

func TestCollectorSharedGroupAcrossPolicies(t *testing.T) {
	dir := newFakeDirectory()
	dir.groups[idG1] = group(idG1, "Engineering")
	dir.members[idG1] = []schemas.DirectoryEntity{user(idU1, "Alice"), user(idU2, "Bob")}
	dir.policies = []schemas.ConditionalAccessPolicy{
		policyIncludingGroup("p1", "Require MFA", idG1),
		policyIncludingGroup("p2", "Block legacy auth", idG1),
	}

	c := New(dir, Options{}, nil)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	// Both policies hit the same cached group and membership.
	assert.Equal(t, 1, dir.calls["GetGroup:"+idG1])
	assert.Equal(t, 1, dir.calls["GetGroupMembers:"+idG1])

	// Each policy emits the group itself plus both expanded members.
	assert.Len(t, res.Relationships, 6)
	assert.Len(t, res.Entities, 3)
	assert.Equal(t, 2, res.Summary.Policies)
	assert.Zero(t, res.Summary.Anomalies)

	byPolicy := map[string]int{}
	for _, rel := range res.Relationships {
		byPolicy[rel.PolicyID]++
	}
	assert.Equal(t, map[string]int{"p1": 3, "p2": 3}, byPolicy)
}

func TestCollectorServicePrincipalIdentifierForms(t *testing.T) {
	dir := newFakeDirectory()
	sp := schemas.DirectoryEntity{ID: idSPObject, DisplayName: "Payroll App", Kind: schemas.KindServicePrincipal}
	dir.sps[idSPObject] = sp
	dir.spsByApp[idSPApp] = sp
	dir.policies = []schemas.ConditionalAccessPolicy{
		{
			ID: "p1", DisplayName: "By app id", State: "enabled",
			Conditions: schemas.Conditions{
				Applications: schemas.ApplicationsCondition{IncludeApplications: []string{idSPApp}},
			},
		},
		{
			ID: "p2", DisplayName: "By object id", State: "enabled",
			Conditions: schemas.Conditions{
				Applications: schemas.ApplicationsCondition{IncludeApplications: []string{idSPObject}},
			},
		},
	}

	c := New(dir, Options{}, nil)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	// Both identifier forms land on one canonical entity.
	require.Len(t, res.Entities, 1)
	assert.Equal(t, idSPObject, res.Entities[0].ID)

	require.Len(t, res.Relationships, 2)
	for _, rel := range res.Relationships {
		assert.Equal(t, idSPObject, rel.TargetID)
		assert.Equal(t, schemas.TargetServicePrincipal, rel.TargetType)
	}
}

func TestCollectorKeywordAssignments(t *testing.T) {
	dir := newFakeDirectory()
	dir.policies = []schemas.ConditionalAccessPolicy{{
		ID: "p1", DisplayName: "Baseline", State: "enabled",
		Conditions: schemas.Conditions{
			Users:        schemas.UsersCondition{IncludeUsers: []string{"All"}, ExcludeUsers: []string{"GuestsOrExternalUsers"}},
			Applications: schemas.ApplicationsCondition{IncludeApplications: []string{"All"}, ExcludeApplications: []string{"Office365"}},
			Locations:    &schemas.LocationsCondition{ExcludeLocations: []string{"AllTrusted"}},
		},
	}}

	c := New(dir, Options{}, nil)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Relationships, 5)
	for _, rel := range res.Relationships {
		assert.Equal(t, schemas.TargetKeyword, rel.TargetType)
	}

	// Keywords never touch the directory.
	assert.Zero(t, dir.calls["GetUser:All"])
	assert.Empty(t, res.Entities)
}

func TestCollectorRoleExpansion(t *testing.T) {
	dir := newFakeDirectory()
	dir.templates = []schemas.DirectoryEntity{
		{ID: idTmpl, DisplayName: "Global Administrator", Kind: schemas.KindRole},
	}
	dir.activated = []schemas.ActivatedRole{
		{ID: idAct, RoleTemplateID: idTmpl, DisplayName: "Global Administrator"},
	}
	dir.roleMembers[idAct] = []schemas.DirectoryEntity{user(idU1, "Alice")}
	dir.policies = []schemas.ConditionalAccessPolicy{{
		ID: "p1", DisplayName: "Protect admins", State: "enabled",
		Conditions: schemas.Conditions{
			Users: schemas.UsersCondition{IncludeRoles: []string{idTmpl}},
		},
	}}

	c := New(dir, Options{}, nil)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Relationships, 2)
	assert.Equal(t, schemas.TargetRole, res.Relationships[0].TargetType)
	assert.Equal(t, idTmpl, res.Relationships[0].TargetID)
	assert.Equal(t, schemas.TargetUser, res.Relationships[1].TargetType)
	assert.Equal(t, idU1, res.Relationships[1].TargetID)
	assert.Equal(t, []string{"Global Administrator"}, res.Relationships[1].Via)
}

func TestCollectorUnresolvedReferenceKeepsRunAlive(t *testing.T) {
	dir := newFakeDirectory()
	dir.users[idU1] = user(idU1, "Alice")
	dir.policies = []schemas.ConditionalAccessPolicy{{
		ID: "p1", DisplayName: "Stale exclusion", State: "enabled",
		Conditions: schemas.Conditions{
			Users: schemas.UsersCondition{
				IncludeUsers: []string{idU1},
				ExcludeUsers: []string{idU3}, // deleted from the tenant
			},
		},
	}}

	c := New(dir, Options{}, nil)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Relationships, 2)
	assert.Equal(t, 1, res.Summary.Anomalies)

	stale, ok := c.Session().Registry().Get(idU3)
	require.True(t, ok)
	assert.True(t, stale.Unresolved)
}
