package collector

import (
	"context"
	"errors"

	"github.com/nullsweep/camap/api/schemas"
)

// fakeDirectory is an in-memory DirectoryClient for exercising the collector
// without a live tenant. Unknown ids return schemas.ErrNotFound; specific
// failures can be injected per call site.
type fakeDirectory struct {
	users       map[string]schemas.DirectoryEntity
	groups      map[string]schemas.DirectoryEntity
	members     map[string][]schemas.DirectoryEntity
	sps         map[string]schemas.DirectoryEntity
	spsByApp    map[string]schemas.DirectoryEntity
	locations   []schemas.DirectoryEntity
	activated   []schemas.ActivatedRole
	templates   []schemas.DirectoryEntity
	roleMembers map[string][]schemas.DirectoryEntity
	policies    []schemas.ConditionalAccessPolicy

	memberErrs  map[string]error
	policiesErr error

	// calls counts invocations by method+id for memoization assertions.
	calls map[string]int
}

var _ schemas.DirectoryClient = (*fakeDirectory)(nil)

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       map[string]schemas.DirectoryEntity{},
		groups:      map[string]schemas.DirectoryEntity{},
		members:     map[string][]schemas.DirectoryEntity{},
		sps:         map[string]schemas.DirectoryEntity{},
		spsByApp:    map[string]schemas.DirectoryEntity{},
		roleMembers: map[string][]schemas.DirectoryEntity{},
		memberErrs:  map[string]error{},
		calls:       map[string]int{},
	}
}

func (f *fakeDirectory) count(key string) { f.calls[key]++ }

func (f *fakeDirectory) lookup(m map[string]schemas.DirectoryEntity, id string) (schemas.DirectoryEntity, error) {
	if e, ok := m[id]; ok {
		return e, nil
	}
	return schemas.DirectoryEntity{}, schemas.ErrNotFound
}

func (f *fakeDirectory) GetUser(_ context.Context, id string) (schemas.DirectoryEntity, error) {
	f.count("GetUser:" + id)
	return f.lookup(f.users, id)
}

func (f *fakeDirectory) GetGroup(_ context.Context, id string) (schemas.DirectoryEntity, error) {
	f.count("GetGroup:" + id)
	return f.lookup(f.groups, id)
}

func (f *fakeDirectory) GetGroupMembers(_ context.Context, id string) ([]schemas.DirectoryEntity, error) {
	f.count("GetGroupMembers:" + id)
	if err, ok := f.memberErrs[id]; ok {
		return nil, err
	}
	return f.members[id], nil
}

func (f *fakeDirectory) GetServicePrincipal(_ context.Context, id string) (schemas.DirectoryEntity, error) {
	f.count("GetServicePrincipal:" + id)
	return f.lookup(f.sps, id)
}

func (f *fakeDirectory) GetServicePrincipalByAppID(_ context.Context, appID string) (schemas.DirectoryEntity, error) {
	f.count("GetServicePrincipalByAppID:" + appID)
	return f.lookup(f.spsByApp, appID)
}

func (f *fakeDirectory) ListNamedLocations(_ context.Context) ([]schemas.DirectoryEntity, error) {
	f.count("ListNamedLocations")
	return f.locations, nil
}

func (f *fakeDirectory) ListActivatedRoles(_ context.Context) ([]schemas.ActivatedRole, error) {
	f.count("ListActivatedRoles")
	return f.activated, nil
}

func (f *fakeDirectory) ListRoleTemplates(_ context.Context) ([]schemas.DirectoryEntity, error) {
	f.count("ListRoleTemplates")
	return f.templates, nil
}

func (f *fakeDirectory) GetRoleMembers(_ context.Context, activatedRoleID string) ([]schemas.DirectoryEntity, error) {
	f.count("GetRoleMembers:" + activatedRoleID)
	if members, ok := f.roleMembers[activatedRoleID]; ok {
		return members, nil
	}
	return nil, errors.New("activated role has no member fixture")
}

func (f *fakeDirectory) ListPolicies(_ context.Context) ([]schemas.ConditionalAccessPolicy, error) {
	f.count("ListPolicies")
	if f.policiesErr != nil {
		return nil, f.policiesErr
	}
	return f.policies, nil
}

// -- fixture builders --

func user(id, name string) schemas.DirectoryEntity {
	return schemas.DirectoryEntity{ID: id, DisplayName: name, Kind: schemas.KindUser}
}

func group(id, name string) schemas.DirectoryEntity {
	return schemas.DirectoryEntity{ID: id, DisplayName: name, Kind: schemas.KindGroup}
}
