package graph

import (
	"strings"

	"github.com/nullsweep/camap/api/schemas"
)

// synthesize emits the edges that cannot be derived from plain id/keyword
// scanning: guest/external user conditions, authentication context class
// references, insider risk levels, authentication flow transfer methods, and
// device filter rules. A node is only created when the underlying condition is
// actually configured; an absent condition never creates one.
func (b *Builder) synthesize(g *Graph, p schemas.ConditionalAccessPolicy) {
	b.synthesizeGuests(g, p, schemas.ScopeInclude, p.Conditions.Users.IncludeGuestsOrExternalUsers)
	b.synthesizeGuests(g, p, schemas.ScopeExclude, p.Conditions.Users.ExcludeGuestsOrExternalUsers)

	apps := p.Conditions.Applications
	b.synthesizeAuthContexts(g, p, apps.IncludeAuthenticationContextClassReferences, schemas.EdgeRequiresAuthContext)
	b.synthesizeAuthContexts(g, p, apps.ExcludeAuthenticationContextClassReferences, schemas.EdgeExcludesAuthContext)

	if levels := p.Conditions.InsiderRiskLevels; levels != "" {
		id := "insiderRisk|" + levels
		g.AddNode(schemas.Node{
			ID:    id,
			Label: "Insider Risk: " + levels,
			Type:  schemas.NodeInsiderRisk,
			Properties: map[string]interface{}{
				"levels": splitList(levels),
			},
		})
		g.AddEdge(schemas.Edge{From: p.ID, To: id, Relationship: schemas.EdgeConditionInsiderRisk})
	}

	if flows := p.Conditions.AuthenticationFlows; flows != nil && flows.TransferMethods != "" {
		id := "authFlow|" + flows.TransferMethods
		g.AddNode(schemas.Node{
			ID:    id,
			Label: "Auth Flow: " + flows.TransferMethods,
			Type:  schemas.NodeAuthenticationFlow,
			Properties: map[string]interface{}{
				"transferMethods": splitList(flows.TransferMethods),
			},
		})
		g.AddEdge(schemas.Edge{From: p.ID, To: id, Relationship: schemas.EdgeConditionAuthFlow})
	}

	if d := p.Conditions.Devices; d != nil && d.DeviceFilter != nil && d.DeviceFilter.Rule != "" {
		// Filter rules are free-form per policy, so the node is policy-scoped.
		id := "deviceFilter|" + p.ID
		g.AddNode(schemas.Node{
			ID:    id,
			Label: "Device Filter (" + d.DeviceFilter.Mode + ")",
			Type:  schemas.NodeDeviceFilter,
			Properties: map[string]interface{}{
				"mode": d.DeviceFilter.Mode,
				"rule": d.DeviceFilter.Rule,
			},
		})
		g.AddEdge(schemas.Edge{From: p.ID, To: id, Relationship: schemas.EdgeConditionDeviceFilter})
	}
}

// synthesizeGuests emits one synthetic node per policy and scope encoding the
// external identity type list, plus edges to external-tenant organization
// nodes when the condition names specific tenants.
func (b *Builder) synthesizeGuests(g *Graph, p schemas.ConditionalAccessPolicy, scope schemas.Scope, cond *schemas.GuestsOrExternalUsers) {
	if cond == nil || cond.GuestOrExternalUserTypes == "" {
		return
	}

	types := splitList(cond.GuestOrExternalUserTypes)
	id := strings.Join([]string{"guestsOrExternalUsers", p.ID, string(scope)}, "|")
	g.AddNode(schemas.Node{
		ID:    id,
		Label: strings.Join(types, ", "),
		Type:  schemas.NodeGuestOrExternal,
		Properties: map[string]interface{}{
			"guestOrExternalUserTypes": types,
		},
	})
	g.AddEdge(schemas.Edge{
		From:         p.ID,
		To:           id,
		Relationship: schemas.ScopedRelationship(scope, schemas.NodeGuestOrExternal),
	})

	if cond.ExternalTenants == nil {
		return
	}
	for _, tenant := range cond.ExternalTenants.Members {
		g.AddNode(schemas.Node{
			ID:    tenant,
			Label: tenant,
			Type:  schemas.NodeOrganization,
			Properties: map[string]interface{}{
				"membershipKind": cond.ExternalTenants.MembershipKind,
			},
		})
		g.AddEdge(schemas.Edge{
			From:         id,
			To:           tenant,
			Relationship: schemas.ScopedRelationship(scope, schemas.NodeOrganization),
		})
	}
}

// synthesizeAuthContexts emits one shared node per distinct class reference
// value. An empty list produces nothing.
func (b *Builder) synthesizeAuthContexts(g *Graph, p schemas.ConditionalAccessPolicy, refs []string, relationship string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		id := "authContext|" + ref
		g.AddNode(schemas.Node{
			ID:    id,
			Label: "Auth Context " + ref,
			Type:  schemas.NodeAuthContext,
			Properties: map[string]interface{}{
				"classReference": ref,
			},
		})
		g.AddEdge(schemas.Edge{From: p.ID, To: id, Relationship: relationship})
	}
}

// splitList splits the comma-separated list form the directory service uses
// for enumerated condition values.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
