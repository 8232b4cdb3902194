package schemas

// EntityKind identifies the directory object class of a resolved entity.
type EntityKind string

const (
	KindUser             EntityKind = "user"
	KindGroup            EntityKind = "group"
	KindRole             EntityKind = "role"
	KindServicePrincipal EntityKind = "servicePrincipal"
	KindNamedLocation    EntityKind = "namedLocation"
	KindDevice           EntityKind = "device"
	KindOrganization     EntityKind = "organization"
	KindUnknown          EntityKind = "unknown"
)

// DirectoryEntity is the canonical record for a directory object. Instances are
// created once by the entity cache and shared read-only afterwards; nothing
// mutates an entity after it has been cached.
type DirectoryEntity struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Kind        EntityKind `json:"kind"`
	// RawType carries the upstream type tag verbatim for objects that did not
	// match a known kind, so unrecognized member classes are retained rather
	// than dropped.
	RawType    string                 `json:"rawType,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	// Unresolved marks a placeholder produced after a failed lookup. The raw id
	// is the only reliable field on such a record.
	Unresolved bool `json:"unresolved,omitempty"`
}

// MemberRecord is a transient record of one transitive group member together
// with the breadcrumb of group display names it was discovered through. When
// the same member is reachable via several nesting paths, the first-discovered
// record wins.
type MemberRecord struct {
	ID          string     `json:"id"`
	Kind        EntityKind `json:"kind"`
	DisplayName string     `json:"displayName"`
	RawType     string     `json:"rawType,omitempty"`
	Via         []string   `json:"via,omitempty"`
}

// ExpansionResult is the flattened outcome of expanding one group.
type ExpansionResult struct {
	Members         []MemberRecord `json:"members"`
	NestedGroups    []string       `json:"nestedGroups"`
	CycleDetected   bool           `json:"cycleDetected"`
	MaxDepthReached bool           `json:"maxDepthReached"`
}

// ActivatedRole is a role template that has been instantiated in the tenant.
// Members can only be queried against the activated instance, not the template.
type ActivatedRole struct {
	ID             string `json:"id"`
	RoleTemplateID string `json:"roleTemplateId"`
	DisplayName    string `json:"displayName"`
}
