package collector

import (
	"context"
	"errors"

	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

// Resolver turns raw object references into canonical DirectoryEntity records,
// memoized in the session cache. Lookup failures are soft: the caller receives
// an unresolved placeholder carrying the raw id, so graph construction always
// has a stable node to attach to.
type Resolver struct {
	client  schemas.DirectoryClient
	session *Session
	log     *zap.Logger
}

// NewResolver creates a resolver bound to one run's session.
func NewResolver(client schemas.DirectoryClient, session *Session, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client:  client,
		session: session,
		log:     logger.Named("resolver"),
	}
}

func cacheKey(kind schemas.EntityKind, id string) string {
	return string(kind) + ":" + id
}

// Resolve returns the canonical entity for (kind, id), querying the directory
// on a cache miss. Named locations and role templates are bulk-preloaded on
// first use; service principals fall back to an application-id lookup before
// reporting not found.
func (r *Resolver) Resolve(ctx context.Context, kind schemas.EntityKind, id string) schemas.DirectoryEntity {
	key := cacheKey(kind, id)
	if e, ok := r.session.entities[key]; ok {
		return e
	}

	var (
		entity schemas.DirectoryEntity
		err    error
	)
	switch kind {
	case schemas.KindUser:
		entity, err = r.client.GetUser(ctx, id)
	case schemas.KindGroup:
		entity, err = r.client.GetGroup(ctx, id)
	case schemas.KindServicePrincipal:
		entity, err = r.resolveServicePrincipal(ctx, id)
	case schemas.KindNamedLocation:
		entity, err = r.resolvePreloaded(ctx, kind, id)
	case schemas.KindRole:
		entity, err = r.resolvePreloaded(ctx, kind, id)
	default:
		err = schemas.ErrNotFound
	}

	if err != nil {
		entity = r.placeholder(kind, id, err)
	}
	r.session.entities[key] = entity
	if entity.ID != "" && entity.ID != id {
		// Also cache under the canonical id so later references by either
		// identifier land on the same record.
		r.session.entities[cacheKey(kind, entity.ID)] = entity
	}
	return entity
}

// resolveServicePrincipal looks up by object id first, then retries by
// filtering on application id. Policies reference either identifier.
func (r *Resolver) resolveServicePrincipal(ctx context.Context, id string) (schemas.DirectoryEntity, error) {
	entity, err := r.client.GetServicePrincipal(ctx, id)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, schemas.ErrNotFound) {
		return schemas.DirectoryEntity{}, err
	}
	return r.client.GetServicePrincipalByAppID(ctx, id)
}

// resolvePreloaded serves kinds where the first lookup triggers a full listing
// fetch that populates the entire cache at once. Subsequent lookups are
// cache-only.
func (r *Resolver) resolvePreloaded(ctx context.Context, kind schemas.EntityKind, id string) (schemas.DirectoryEntity, error) {
	loaded := &r.session.locationsLoaded
	list := r.client.ListNamedLocations
	if kind == schemas.KindRole {
		loaded = &r.session.templatesLoaded
		list = r.client.ListRoleTemplates
	}

	if !*loaded {
		entities, err := list(ctx)
		if err != nil {
			// Leave the marker unset so a later lookup can retry the listing.
			return schemas.DirectoryEntity{}, err
		}
		for _, e := range entities {
			r.session.entities[cacheKey(kind, e.ID)] = e
		}
		*loaded = true
	}

	if e, ok := r.session.entities[cacheKey(kind, id)]; ok {
		return e, nil
	}
	return schemas.DirectoryEntity{}, schemas.ErrNotFound
}

// placeholder builds the unresolved stand-in for a failed lookup and records
// the anomaly.
func (r *Resolver) placeholder(kind schemas.EntityKind, id string, err error) schemas.DirectoryEntity {
	if errors.Is(err, schemas.ErrNotFound) {
		r.log.Warn("Directory object not found; using placeholder",
			zap.String("kind", string(kind)), zap.String("id", id))
	} else {
		r.log.Warn("Directory lookup failed; using placeholder",
			zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
	}
	r.session.recordAnomaly(AnomalyTransientLookup)
	return schemas.DirectoryEntity{
		ID:          id,
		DisplayName: id,
		Kind:        kind,
		Unresolved:  true,
	}
}
