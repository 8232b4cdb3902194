package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nullsweep/camap/api/schemas"
	"github.com/stretchr/testify/assert"
)

const (
	idGroup = "11111111-1111-1111-1111-111111111111"
	idUser  = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
)

func findNode(t *testing.T, g *Graph, id string) schemas.Node {
	t.Helper()
	for _, n := range g.Nodes() {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %q not in graph", id)
	return schemas.Node{}
}

func findEdge(t *testing.T, g *Graph, from, to, relationship string) schemas.Edge {
	t.Helper()
	for _, e := range g.Edges() {
		if e.From == from && e.To == to && e.Relationship == relationship {
			return e
		}
	}
	t.Fatalf("edge %q -> %q (%s) not in graph", from, to, relationship)
	return schemas.Edge{}
}

func TestBuilderAllUsersKeyword(t *testing.T) {
	policy := schemas.ConditionalAccessPolicy{
		ID: "p1", DisplayName: "Baseline MFA", State: "enabled",
		Conditions: schemas.Conditions{
			Users: schemas.UsersCondition{IncludeUsers: []string{"All"}},
		},
	}
	rels := []schemas.Relationship{{
		PolicyID: "p1", Scope: schemas.ScopeInclude,
		TargetType: schemas.TargetKeyword, TargetID: "All", TargetDisplayName: "All",
	}}

	g := NewBuilder(nil).Build([]schemas.ConditionalAccessPolicy{policy}, nil, rels)

	keywordID := "keyword|p1|include|user|All"
	node := findNode(t, g, keywordID)
	assert.Equal(t, "All Users", node.Label)
	assert.Equal(t, schemas.NodeUser, node.Type)
	assert.Equal(t, "All", node.Properties["keyword"])

	findEdge(t, g, "p1", keywordID, "include:user")
}

func TestBuilderKeywordDomainPriority(t *testing.T) {
	// "All" appears in both the application and location categories; the user
	// category is empty. Application wins over location.
	policy := schemas.ConditionalAccessPolicy{
		ID: "p1", DisplayName: "Everything", State: "enabled",
		Conditions: schemas.Conditions{
			Applications: schemas.ApplicationsCondition{IncludeApplications: []string{"All"}},
			Locations:    &schemas.LocationsCondition{IncludeLocations: []string{"All"}},
		},
	}

	resolved, label := resolveKeyword(policy, schemas.ScopeInclude, "All")
	assert.Equal(t, schemas.NodeServicePrincipal, resolved)
	assert.Equal(t, "All Applications", label)
}

func TestBuilderKeywordFallback(t *testing.T) {
	policy := schemas.ConditionalAccessPolicy{ID: "p1", DisplayName: "Odd", State: "enabled"}

	resolved, label := resolveKeyword(policy, schemas.ScopeInclude, "SomethingNew")
	assert.Equal(t, schemas.NodeKeyword, resolved)
	assert.Equal(t, "SomethingNew", label)
}

func TestBuilderConcreteTargetsAndViaProvenance(t *testing.T) {
	policy := schemas.ConditionalAccessPolicy{ID: "p1", DisplayName: "Require MFA", State: "enabled"}
	rels := []schemas.Relationship{
		{
			PolicyID: "p1", Scope: schemas.ScopeInclude,
			TargetType: schemas.TargetGroup, TargetID: idGroup, TargetDisplayName: "Engineering",
		},
		{
			PolicyID: "p1", Scope: schemas.ScopeInclude,
			TargetType: schemas.TargetUser, TargetID: idUser, TargetDisplayName: "Alice",
			Via: []string{"Engineering", "Platform"},
		},
	}

	g := NewBuilder(nil).Build([]schemas.ConditionalAccessPolicy{policy}, nil, rels)

	groupNode := findNode(t, g, idGroup)
	assert.Equal(t, schemas.NodeGroup, groupNode.Type)

	memberEdge := findEdge(t, g, "p1", idUser, "include:user")
	assert.Equal(t, "Engineering > Platform", memberEdge.Properties["via"])

	policyNode := findNode(t, g, "p1")
	assert.Equal(t, schemas.NodePolicy, policyNode.Type)
	assert.Equal(t, "enabled", policyNode.Properties["state"])
}

func TestBuilderRegistryEntitiesGetNodes(t *testing.T) {
	entities := []schemas.DirectoryEntity{
		{ID: idUser, DisplayName: "Alice", Kind: schemas.KindUser},
		{ID: idGroup, DisplayName: "ghost", Kind: schemas.KindGroup, Unresolved: true},
	}

	g := NewBuilder(nil).Build(nil, entities, nil)

	alice := findNode(t, g, idUser)
	assert.Equal(t, schemas.NodeUser, alice.Type)
	assert.Nil(t, alice.Properties)

	ghost := findNode(t, g, idGroup)
	assert.Equal(t, true, ghost.Properties["unresolved"])
}

func TestBuilderIdempotent(t *testing.T) {
	policies := []schemas.ConditionalAccessPolicy{{
		ID: "p1", DisplayName: "Baseline", State: "enabled",
		Conditions: schemas.Conditions{
			Users: schemas.UsersCondition{IncludeUsers: []string{"All"}},
			Applications: schemas.ApplicationsCondition{
				IncludeAuthenticationContextClassReferences: []string{"c1"},
			},
			InsiderRiskLevels: "minor,moderate",
		},
	}}
	entities := []schemas.DirectoryEntity{{ID: idUser, DisplayName: "Alice", Kind: schemas.KindUser}}
	rels := []schemas.Relationship{
		{PolicyID: "p1", Scope: schemas.ScopeInclude, TargetType: schemas.TargetKeyword, TargetID: "All", TargetDisplayName: "All"},
		{PolicyID: "p1", Scope: schemas.ScopeExclude, TargetType: schemas.TargetUser, TargetID: idUser, TargetDisplayName: "Alice"},
	}

	b := NewBuilder(nil)
	first := b.Build(policies, entities, rels)
	second := b.Build(policies, entities, rels)

	sortNodes := cmpopts.SortSlices(func(a, b schemas.Node) bool { return a.ID < b.ID })
	sortEdges := cmpopts.SortSlices(func(a, b schemas.Edge) bool {
		return a.From+a.To+a.Relationship < b.From+b.To+b.Relationship
	})
	if diff := cmp.Diff(first.Nodes(), second.Nodes(), sortNodes); diff != "" {
		t.Errorf("nodes differ between builds (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Edges(), second.Edges(), sortEdges); diff != "" {
		t.Errorf("edges differ between builds (-first +second):\n%s", diff)
	}
}

func TestSummarizeGrant(t *testing.T) {
	assert.Empty(t, summarizeGrant(nil))

	gc := &schemas.GrantControls{
		Operator:        "OR",
		BuiltInControls: []string{"mfa", "compliantDevice"},
	}
	assert.Equal(t, "mfa OR compliantDevice", summarizeGrant(gc))

	gc = &schemas.GrantControls{
		Operator:        "AND",
		BuiltInControls: []string{"mfa"},
		AuthenticationStrength: &schemas.AuthenticationStrength{
			ID: "00000000-0000-0000-0000-000000000004", DisplayName: "Phishing-resistant MFA",
		},
	}
	assert.Equal(t, "mfa AND authStrength(Phishing-resistant MFA)", summarizeGrant(gc))
}

func TestSummarizeSession(t *testing.T) {
	assert.Empty(t, summarizeSession(nil))

	sc := &schemas.SessionControls{
		SignInFrequency:   &schemas.SignInFrequency{IsEnabled: true, Type: "hours", Value: 4},
		PersistentBrowser: &schemas.ModeControl{IsEnabled: true, Mode: "never"},
	}
	assert.Equal(t, "signInFrequency(4 hours), persistentBrowser(never)", summarizeSession(sc))
}
