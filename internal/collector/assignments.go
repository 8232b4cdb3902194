package collector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

// Category names the assignment category being resolved for a policy scope.
type Category string

const (
	CategoryUser             Category = "user"
	CategoryGroup            Category = "group"
	CategoryRole             Category = "role"
	CategoryServicePrincipal Category = "servicePrincipal"
	CategoryNamedLocation    Category = "namedLocation"
)

// AssignmentResolver turns a policy's raw reference values — id-shaped strings
// or symbolic keywords — into resolved assignments, registering entities in
// the shared registry and emitting relationships through the session's dedup
// gate. Group and role references additionally emit one relationship per
// expanded member, carrying the nesting or role path as provenance.
type AssignmentResolver struct {
	resolver *Resolver
	groups   *GroupExpander
	roles    *RoleExpander
	session  *Session
	log      *zap.Logger
}

// NewAssignmentResolver wires the three leaf components into one per-run
// resolver.
func NewAssignmentResolver(resolver *Resolver, groups *GroupExpander, roles *RoleExpander, session *Session, logger *zap.Logger) *AssignmentResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentResolver{
		resolver: resolver,
		groups:   groups,
		roles:    roles,
		session:  session,
		log:      logger.Named("assignments"),
	}
}

// PolicyAssignment is the resolved form of one policy/scope/category triple.
type PolicyAssignment struct {
	Scope    schemas.Scope
	Category Category
	Keywords []string
	Entities []schemas.DirectoryEntity
}

// isObjectID reports whether a raw value is id-shaped. Anything that does not
// parse as a UUID is treated as a symbolic keyword ("All", "None",
// "AllTrusted", ...).
func isObjectID(v string) bool {
	return uuid.Validate(v) == nil
}

// ResolveCategory resolves the raw values of one policy/scope/category triple.
func (a *AssignmentResolver) ResolveCategory(ctx context.Context, policy schemas.ConditionalAccessPolicy, scope schemas.Scope, category Category, values []string) PolicyAssignment {
	assignment := PolicyAssignment{Scope: scope, Category: category}

	for _, v := range values {
		if v == "" {
			continue
		}
		if !isObjectID(v) {
			assignment.Keywords = append(assignment.Keywords, v)
			a.emit(policy, schemas.Relationship{
				Scope:             scope,
				TargetType:        schemas.TargetKeyword,
				TargetID:          v,
				TargetDisplayName: v,
				Description:       fmt.Sprintf("%s %s keyword", scope, category),
			})
			continue
		}

		switch category {
		case CategoryUser:
			assignment.Entities = append(assignment.Entities, a.resolveDirect(ctx, policy, scope, schemas.KindUser, schemas.TargetUser, v))
		case CategoryServicePrincipal:
			assignment.Entities = append(assignment.Entities, a.resolveDirect(ctx, policy, scope, schemas.KindServicePrincipal, schemas.TargetServicePrincipal, v))
		case CategoryNamedLocation:
			assignment.Entities = append(assignment.Entities, a.resolveDirect(ctx, policy, scope, schemas.KindNamedLocation, schemas.TargetNamedLocation, v))
		case CategoryGroup:
			assignment.Entities = append(assignment.Entities, a.resolveGroup(ctx, policy, scope, v))
		case CategoryRole:
			assignment.Entities = append(assignment.Entities, a.resolveRole(ctx, policy, scope, v))
		default:
			a.log.Warn("Unknown assignment category", zap.String("category", string(category)))
		}
	}

	return assignment
}

// resolveDirect handles the categories whose values name exactly one entity.
func (a *AssignmentResolver) resolveDirect(ctx context.Context, policy schemas.ConditionalAccessPolicy, scope schemas.Scope, kind schemas.EntityKind, target schemas.TargetType, id string) schemas.DirectoryEntity {
	entity := a.resolver.Resolve(ctx, kind, id)
	a.session.registry.Add(entity)
	a.emit(policy, schemas.Relationship{
		Scope:             scope,
		TargetType:        target,
		TargetID:          entity.ID,
		TargetDisplayName: entity.DisplayName,
		Description:       fmt.Sprintf("%sd %s", scope, kind),
	})
	return entity
}

// resolveGroup resolves the group itself, then one relationship per expanded
// transitive member with its nesting path.
func (a *AssignmentResolver) resolveGroup(ctx context.Context, policy schemas.ConditionalAccessPolicy, scope schemas.Scope, id string) schemas.DirectoryEntity {
	entity := a.resolver.Resolve(ctx, schemas.KindGroup, id)
	a.session.registry.Add(entity)
	a.emit(policy, schemas.Relationship{
		Scope:             scope,
		TargetType:        schemas.TargetGroup,
		TargetID:          entity.ID,
		TargetDisplayName: entity.DisplayName,
		Description:       fmt.Sprintf("%sd group", scope),
	})

	expansion := a.groups.Expand(ctx, id)
	for _, m := range expansion.Members {
		a.emitMember(policy, scope, m, "group membership")
	}
	return entity
}

// resolveRole resolves the role template entity, then one relationship per
// member of the activated role instance.
func (a *AssignmentResolver) resolveRole(ctx context.Context, policy schemas.ConditionalAccessPolicy, scope schemas.Scope, id string) schemas.DirectoryEntity {
	entity := a.resolver.Resolve(ctx, schemas.KindRole, id)
	a.session.registry.Add(entity)
	a.emit(policy, schemas.Relationship{
		Scope:             scope,
		TargetType:        schemas.TargetRole,
		TargetID:          entity.ID,
		TargetDisplayName: entity.DisplayName,
		Description:       fmt.Sprintf("%sd directory role", scope),
	})

	for _, m := range a.roles.Expand(ctx, id) {
		a.emitMember(policy, scope, m, "role membership")
	}
	return entity
}

// emitMember registers an expanded member and emits its relationship with the
// via path carried as provenance.
func (a *AssignmentResolver) emitMember(policy schemas.ConditionalAccessPolicy, scope schemas.Scope, m schemas.MemberRecord, source string) {
	a.session.registry.Add(schemas.DirectoryEntity{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Kind:        m.Kind,
		RawType:     m.RawType,
	})
	a.emit(policy, schemas.Relationship{
		Scope:             scope,
		TargetType:        schemas.TargetType(m.Kind),
		TargetID:          m.ID,
		TargetDisplayName: m.DisplayName,
		Via:               m.Via,
		Description:       fmt.Sprintf("%sd via %s", scope, source),
	})
}

// emit stamps the policy identity onto a relationship and adds it through the
// dedup gate.
func (a *AssignmentResolver) emit(policy schemas.ConditionalAccessPolicy, r schemas.Relationship) {
	r.PolicyID = policy.ID
	r.PolicyName = policy.DisplayName
	if !a.session.addRelationship(r) {
		a.log.Debug("Duplicate relationship suppressed",
			zap.String("policy", policy.ID), zap.String("target", r.TargetID))
	}
}
