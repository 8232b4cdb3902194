package schemas

import "time"

// NodeType defines the categories of entities in the policy graph.
type NodeType string

const (
	NodePolicy             NodeType = "policy"
	NodeUser               NodeType = "user"
	NodeGroup              NodeType = "group"
	NodeRole               NodeType = "role"
	NodeServicePrincipal   NodeType = "servicePrincipal"
	NodeNamedLocation      NodeType = "namedLocation"
	NodeDevice             NodeType = "device"
	NodeOrganization       NodeType = "organization"
	NodeKeyword            NodeType = "keyword"
	NodeGuestOrExternal    NodeType = "guestOrExternalUser"
	NodeAuthContext        NodeType = "authenticationContext"
	NodeInsiderRisk        NodeType = "insiderRisk"
	NodeAuthenticationFlow NodeType = "authenticationFlow"
	NodeDeviceFilter       NodeType = "deviceFilter"
	NodeUnknown            NodeType = "unknown"
)

// Edge relationship tags for synthesized edges. Scoped assignment edges use
// ScopedRelationship instead. Consumers parse these strings by splitting on
// ":"; the grammar is a compatibility contract and must not change without a
// version bump.
const (
	EdgeConditionInsiderRisk  = "condition:insiderRisk"
	EdgeConditionAuthFlow     = "condition:authFlow"
	EdgeConditionDeviceFilter = "condition:deviceFilter"
	EdgeRequiresAuthContext   = "requires:authContext"
	EdgeExcludesAuthContext   = "excludes:authContext"
)

// ScopedRelationship renders the "<include|exclude>:<targetType>" edge label
// for a scoped assignment edge.
func ScopedRelationship(scope Scope, target NodeType) string {
	return string(scope) + ":" + string(target)
}

// Node is one entity in the exported graph. Exactly one node exists per id;
// the first writer wins.
type Node struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Type       NodeType               `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Edge is a directed, labeled relationship between two nodes. At most one edge
// exists per (from, to, relationship) triple.
type Edge struct {
	From         string                 `json:"from"`
	To           string                 `json:"to"`
	Relationship string                 `json:"relationship"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// GraphExport is the envelope handed to downstream consumers.
type GraphExport struct {
	GeneratedAt time.Time              `json:"generatedAt"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Nodes       []Node                 `json:"nodes"`
	Edges       []Edge                 `json:"edges"`
}
