package schemas

import "strings"

// Scope says whether an assignment includes or excludes its target.
type Scope string

const (
	ScopeInclude Scope = "include"
	ScopeExclude Scope = "exclude"
)

// TargetType categorizes the object a relationship points at. The keyword type
// marks symbolic values that are resolved to a concrete domain during graph
// construction.
type TargetType string

const (
	TargetUser             TargetType = "user"
	TargetGroup            TargetType = "group"
	TargetRole             TargetType = "role"
	TargetServicePrincipal TargetType = "servicePrincipal"
	TargetNamedLocation    TargetType = "namedLocation"
	TargetKeyword          TargetType = "keyword"
)

// Relationship records one resolved policy-to-target assignment, including the
// provenance path for members reached through nested groups or roles.
// Relationships are never mutated after creation; a run-scoped set enforces
// uniqueness by Key().
type Relationship struct {
	PolicyID          string     `json:"policyId"`
	PolicyName        string     `json:"policyName"`
	Scope             Scope      `json:"scope"`
	TargetType        TargetType `json:"targetType"`
	TargetID          string     `json:"targetId"`
	TargetDisplayName string     `json:"targetDisplayName"`
	Via               []string   `json:"via,omitempty"`
	Description       string     `json:"description,omitempty"`
}

// ViaPath joins the breadcrumb into the display form used in descriptions and
// dedup keys ("Group A > Group B").
func (r Relationship) ViaPath() string {
	return strings.Join(r.Via, " > ")
}

// Key is the uniqueness tuple for the run-scoped dedup set.
func (r Relationship) Key() string {
	return strings.Join([]string{r.PolicyID, string(r.Scope), string(r.TargetType), r.TargetID, r.ViaPath()}, "|")
}
