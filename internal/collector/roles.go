package collector

import (
	"context"

	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

// RoleExpander resolves role templates to their activated instances and lists
// the members of those instances. A role template with no activated instance
// in the tenant expands to nothing; that is a valid state, not an error.
type RoleExpander struct {
	client  schemas.DirectoryClient
	session *Session
	log     *zap.Logger
}

// NewRoleExpander creates an expander bound to one run's session.
func NewRoleExpander(client schemas.DirectoryClient, session *Session, logger *zap.Logger) *RoleExpander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleExpander{
		client:  client,
		session: session,
		log:     logger.Named("roles"),
	}
}

// Expand returns the members of the activated role matching roleTemplateID,
// each carrying the role display name as its via path. Results are cached by
// template id for the run.
func (e *RoleExpander) Expand(ctx context.Context, roleTemplateID string) []schemas.MemberRecord {
	if cached, ok := e.session.roleMembers[roleTemplateID]; ok {
		return cached
	}

	activated, ok := e.activatedRole(ctx, roleTemplateID)
	if !ok {
		e.session.roleMembers[roleTemplateID] = nil
		return nil
	}

	raw, err := e.client.GetRoleMembers(ctx, activated.ID)
	if err != nil {
		e.log.Warn("Role member lookup failed; role yields no members",
			zap.String("roleTemplateId", roleTemplateID), zap.Error(err))
		e.session.recordAnomaly(AnomalyTransientLookup)
		e.session.roleMembers[roleTemplateID] = nil
		return nil
	}

	members := make([]schemas.MemberRecord, 0, len(raw))
	for _, m := range raw {
		members = append(members, schemas.MemberRecord{
			ID:          m.ID,
			Kind:        m.Kind,
			DisplayName: m.DisplayName,
			RawType:     m.RawType,
			Via:         []string{activated.DisplayName},
		})
	}
	e.session.roleMembers[roleTemplateID] = members
	return members
}

// activatedRole finds the activated instance for a role template, loading the
// tenant's activated role listing once per run.
func (e *RoleExpander) activatedRole(ctx context.Context, roleTemplateID string) (schemas.ActivatedRole, bool) {
	if !e.session.activatedLoaded {
		roles, err := e.client.ListActivatedRoles(ctx)
		if err != nil {
			// Leave the marker unset so a later expansion can retry.
			e.log.Warn("Activated role listing failed", zap.Error(err))
			e.session.recordAnomaly(AnomalyTransientLookup)
			return schemas.ActivatedRole{}, false
		}
		for _, r := range roles {
			e.session.activatedRoles[r.RoleTemplateID] = r
		}
		e.session.activatedLoaded = true
	}

	r, ok := e.session.activatedRoles[roleTemplateID]
	return r, ok
}
