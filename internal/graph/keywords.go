package graph

import (
	"strings"

	"github.com/nullsweep/camap/api/schemas"
)

// keywordLabels maps well-known symbolic keywords to display labels per
// resolved domain. Anything absent falls back to the raw keyword text.
var keywordLabels = map[schemas.NodeType]map[string]string{
	schemas.NodeUser: {
		"All":                   "All Users",
		"None":                  "No Users",
		"GuestsOrExternalUsers": "Guests or External Users",
	},
	schemas.NodeServicePrincipal: {
		"All":                   "All Applications",
		"None":                  "No Applications",
		"Office365":             "Office 365",
		"MicrosoftAdminPortals": "Microsoft Admin Portals",
	},
	schemas.NodeNamedLocation: {
		"All":        "All Locations",
		"AllTrusted": "All Trusted Locations",
	},
}

// resolveKeyword infers the concrete domain of a symbolic keyword by
// inspecting the owning policy's assignment categories for the same scope, in
// priority order user, then application, then location. This ordering is a
// compatibility contract with downstream consumers; do not reorder it. When no
// domain can be inferred, the keyword falls back to a generic keyword node —
// it is never dropped silently.
func resolveKeyword(p schemas.ConditionalAccessPolicy, scope schemas.Scope, keyword string) (schemas.NodeType, string) {
	if containsValue(userValues(p, scope), keyword) {
		return schemas.NodeUser, keywordLabel(schemas.NodeUser, keyword)
	}
	if containsValue(applicationValues(p, scope), keyword) {
		return schemas.NodeServicePrincipal, keywordLabel(schemas.NodeServicePrincipal, keyword)
	}
	if containsValue(locationValues(p, scope), keyword) {
		return schemas.NodeNamedLocation, keywordLabel(schemas.NodeNamedLocation, keyword)
	}
	return schemas.NodeKeyword, keyword
}

// keywordNodeID scopes a resolved keyword node by policy, scope, domain and
// text so identical keywords across policies or scopes remain distinct nodes.
func keywordNodeID(policyID string, scope schemas.Scope, resolved schemas.NodeType, keyword string) string {
	return strings.Join([]string{"keyword", policyID, string(scope), string(resolved), keyword}, "|")
}

func keywordLabel(domain schemas.NodeType, keyword string) string {
	if label, ok := keywordLabels[domain][keyword]; ok {
		return label
	}
	return keyword
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func userValues(p schemas.ConditionalAccessPolicy, scope schemas.Scope) []string {
	if scope == schemas.ScopeExclude {
		return p.Conditions.Users.ExcludeUsers
	}
	return p.Conditions.Users.IncludeUsers
}

func applicationValues(p schemas.ConditionalAccessPolicy, scope schemas.Scope) []string {
	if scope == schemas.ScopeExclude {
		return p.Conditions.Applications.ExcludeApplications
	}
	return p.Conditions.Applications.IncludeApplications
}

func locationValues(p schemas.ConditionalAccessPolicy, scope schemas.Scope) []string {
	loc := p.Conditions.Locations
	if loc == nil {
		return nil
	}
	if scope == schemas.ScopeExclude {
		return loc.ExcludeLocations
	}
	return loc.IncludeLocations
}
