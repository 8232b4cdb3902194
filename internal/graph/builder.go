package graph

import (
	"fmt"
	"strings"

	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

// Builder turns resolved policies, the entity registry, and the relationship
// set into the final node/edge graph. Building the same input twice yields the
// same graph: node creation is guarded by id presence and edge creation by the
// (from, to, relationship) triple.
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a graph builder.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{log: logger.Named("builder")}
}

// Build assembles the graph in five passes: policy nodes, keyword resolution,
// concrete target nodes and edges, remaining registry entities, and
// synthesized condition edges.
func (b *Builder) Build(policies []schemas.ConditionalAccessPolicy, entities []schemas.DirectoryEntity, relationships []schemas.Relationship) *Graph {
	g := New(b.log)

	byID := make(map[string]schemas.ConditionalAccessPolicy, len(policies))
	for _, p := range policies {
		byID[p.ID] = p
		b.addPolicyNode(g, p)
	}

	for _, r := range relationships {
		if r.TargetType == schemas.TargetKeyword {
			b.addKeywordTarget(g, byID[r.PolicyID], r)
			continue
		}
		b.addConcreteTarget(g, r)
	}

	// Entities collected independently of any single relationship (e.g. full
	// directory sweeps) still get nodes.
	for _, e := range entities {
		if g.HasNode(e.ID) {
			continue
		}
		g.AddNode(entityNode(e))
	}

	for _, p := range policies {
		b.synthesize(g, p)
	}

	b.log.Info("Graph built",
		zap.Int("nodes", len(g.nodes)), zap.Int("edges", len(g.edges)))
	return g
}

// addPolicyNode emits the node for one policy, embedding flattened display
// summaries of its controls while preserving the structured policy for detail
// views.
func (b *Builder) addPolicyNode(g *Graph, p schemas.ConditionalAccessPolicy) {
	g.AddNode(schemas.Node{
		ID:    p.ID,
		Label: p.DisplayName,
		Type:  schemas.NodePolicy,
		Properties: map[string]interface{}{
			"state":             p.State,
			"grantSummary":      summarizeGrant(p.GrantControls),
			"sessionSummary":    summarizeSession(p.SessionControls),
			"conditionsSummary": summarizeConditions(p.Conditions),
			"policy":            p,
		},
	})
}

// addKeywordTarget resolves a symbolic keyword to a concrete domain node and
// links the policy to it.
func (b *Builder) addKeywordTarget(g *Graph, p schemas.ConditionalAccessPolicy, r schemas.Relationship) {
	resolved, label := resolveKeyword(p, r.Scope, r.TargetID)
	id := keywordNodeID(r.PolicyID, r.Scope, resolved, r.TargetID)

	g.AddNode(schemas.Node{
		ID:    id,
		Label: label,
		Type:  resolved,
		Properties: map[string]interface{}{
			"keyword": r.TargetID,
		},
	})
	g.AddEdge(schemas.Edge{
		From:         r.PolicyID,
		To:           id,
		Relationship: schemas.ScopedRelationship(r.Scope, resolved),
	})
}

// addConcreteTarget creates the target node on first sight and the scoped
// assignment edge from its policy.
func (b *Builder) addConcreteTarget(g *Graph, r schemas.Relationship) {
	g.AddNode(schemas.Node{
		ID:    r.TargetID,
		Label: r.TargetDisplayName,
		Type:  schemas.NodeType(r.TargetType),
	})

	edgeProps := map[string]interface{}{}
	if len(r.Via) > 0 {
		edgeProps["via"] = r.ViaPath()
	}
	if r.Description != "" {
		edgeProps["description"] = r.Description
	}
	if len(edgeProps) == 0 {
		edgeProps = nil
	}
	g.AddEdge(schemas.Edge{
		From:         r.PolicyID,
		To:           r.TargetID,
		Relationship: schemas.ScopedRelationship(r.Scope, schemas.NodeType(r.TargetType)),
		Properties:   edgeProps,
	})
}

// entityNode maps a registry entity to its graph node.
func entityNode(e schemas.DirectoryEntity) schemas.Node {
	var props map[string]interface{}
	if e.Unresolved {
		props = map[string]interface{}{"unresolved": true}
	}
	if e.RawType != "" {
		if props == nil {
			props = map[string]interface{}{}
		}
		props["rawType"] = e.RawType
	}
	return schemas.Node{
		ID:         e.ID,
		Label:      e.DisplayName,
		Type:       entityNodeType(e.Kind),
		Properties: props,
	}
}

func entityNodeType(kind schemas.EntityKind) schemas.NodeType {
	switch kind {
	case schemas.KindUser:
		return schemas.NodeUser
	case schemas.KindGroup:
		return schemas.NodeGroup
	case schemas.KindRole:
		return schemas.NodeRole
	case schemas.KindServicePrincipal:
		return schemas.NodeServicePrincipal
	case schemas.KindNamedLocation:
		return schemas.NodeNamedLocation
	case schemas.KindDevice:
		return schemas.NodeDevice
	case schemas.KindOrganization:
		return schemas.NodeOrganization
	default:
		return schemas.NodeUnknown
	}
}

// summarizeGrant flattens grant controls into one display string.
func summarizeGrant(gc *schemas.GrantControls) string {
	if gc == nil {
		return ""
	}
	parts := append([]string{}, gc.BuiltInControls...)
	if gc.AuthenticationStrength != nil {
		parts = append(parts, fmt.Sprintf("authStrength(%s)", gc.AuthenticationStrength.DisplayName))
	}
	if len(gc.TermsOfUse) > 0 {
		parts = append(parts, fmt.Sprintf("termsOfUse(%d)", len(gc.TermsOfUse)))
	}
	if len(parts) == 0 {
		return ""
	}
	sep := " AND "
	if strings.EqualFold(gc.Operator, "OR") {
		sep = " OR "
	}
	return strings.Join(parts, sep)
}

// summarizeSession flattens session controls into one display string.
func summarizeSession(sc *schemas.SessionControls) string {
	if sc == nil {
		return ""
	}
	var parts []string
	if f := sc.SignInFrequency; f != nil && f.IsEnabled {
		parts = append(parts, fmt.Sprintf("signInFrequency(%d %s)", f.Value, f.Type))
	}
	if pb := sc.PersistentBrowser; pb != nil && pb.IsEnabled {
		parts = append(parts, fmt.Sprintf("persistentBrowser(%s)", pb.Mode))
	}
	if cas := sc.CloudAppSecurity; cas != nil && cas.IsEnabled {
		parts = append(parts, fmt.Sprintf("cloudAppSecurity(%s)", cas.Mode))
	}
	if aer := sc.ApplicationEnforcedRestrictions; aer != nil && aer.IsEnabled {
		parts = append(parts, "appEnforcedRestrictions")
	}
	if sc.DisableResilienceDefaults {
		parts = append(parts, "resilienceDefaultsDisabled")
	}
	return strings.Join(parts, ", ")
}

// summarizeConditions flattens the signal conditions into one display string.
func summarizeConditions(c schemas.Conditions) string {
	var parts []string
	if len(c.ClientAppTypes) > 0 {
		parts = append(parts, "clientApps: "+strings.Join(c.ClientAppTypes, ","))
	}
	if len(c.SignInRiskLevels) > 0 {
		parts = append(parts, "signInRisk: "+strings.Join(c.SignInRiskLevels, ","))
	}
	if len(c.UserRiskLevels) > 0 {
		parts = append(parts, "userRisk: "+strings.Join(c.UserRiskLevels, ","))
	}
	if c.InsiderRiskLevels != "" {
		parts = append(parts, "insiderRisk: "+c.InsiderRiskLevels)
	}
	if p := c.Platforms; p != nil && len(p.IncludePlatforms) > 0 {
		parts = append(parts, "platforms: "+strings.Join(p.IncludePlatforms, ","))
	}
	return strings.Join(parts, "; ")
}
