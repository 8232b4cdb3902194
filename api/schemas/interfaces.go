package schemas

import (
	"context"
	"errors"
)

// ErrNotFound reports that the directory service has no object for the given
// identifier. It is distinct from a transient failure: callers branch on it to
// try alternate lookups (e.g. service principals by application id) before
// falling back to a placeholder.
var ErrNotFound = errors.New("directory object not found")

// DirectoryClient is the upstream collaborator contract. Any call may fail;
// the collector treats failure as "no data", logs it, and continues. The
// client owns its own retry and timeout policy.
type DirectoryClient interface {
	GetUser(ctx context.Context, id string) (DirectoryEntity, error)
	GetGroup(ctx context.Context, id string) (DirectoryEntity, error)
	GetGroupMembers(ctx context.Context, id string) ([]DirectoryEntity, error)
	GetServicePrincipal(ctx context.Context, id string) (DirectoryEntity, error)
	GetServicePrincipalByAppID(ctx context.Context, appID string) (DirectoryEntity, error)
	ListNamedLocations(ctx context.Context) ([]DirectoryEntity, error)
	ListActivatedRoles(ctx context.Context) ([]ActivatedRole, error)
	ListRoleTemplates(ctx context.Context) ([]DirectoryEntity, error)
	GetRoleMembers(ctx context.Context, activatedRoleID string) ([]DirectoryEntity, error)
	ListPolicies(ctx context.Context) ([]ConditionalAccessPolicy, error)
}

// GraphSink persists a built graph. The JSON reporter and the Postgres store
// both implement it.
type GraphSink interface {
	Persist(ctx context.Context, export *GraphExport) error
}
