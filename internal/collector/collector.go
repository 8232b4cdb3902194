package collector

import (
	"context"
	"fmt"

	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

// Options tunes a collection run.
type Options struct {
	// MaxDepth bounds nested group traversal; zero selects DefaultMaxDepth.
	MaxDepth int
	// CheckpointEvery is the policy-count cadence for advisory partial-state
	// snapshots; zero disables them.
	CheckpointEvery int
	// CheckpointDir is where snapshots are written.
	CheckpointDir string
}

// Collector drives a full collection run: every policy is resolved completely
// — all scopes, all categories — before the next begins. Execution is strictly
// sequential over one run-scoped session.
type Collector struct {
	client       schemas.DirectoryClient
	session      *Session
	assignments  *AssignmentResolver
	checkpointer *Checkpointer
	log          *zap.Logger
}

// New wires a collector and its component chain around a fresh session.
func New(client schemas.DirectoryClient, opts Options, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("collector")

	session := NewSession()
	resolver := NewResolver(client, session, log)
	groups := NewGroupExpander(client, resolver, session, opts.MaxDepth, log)
	roles := NewRoleExpander(client, session, log)

	var checkpointer *Checkpointer
	if opts.CheckpointEvery > 0 {
		checkpointer = NewCheckpointer(opts.CheckpointDir, opts.CheckpointEvery, log)
	}

	return &Collector{
		client:       client,
		session:      session,
		assignments:  NewAssignmentResolver(resolver, groups, roles, session, log),
		checkpointer: checkpointer,
		log:          log,
	}
}

// Session exposes the run-scoped state, mainly for tests and checkpoints.
func (c *Collector) Session() *Session { return c.session }

// Result is the complete output of a collection run.
type Result struct {
	RunID         string                            `json:"runId"`
	Policies      []schemas.ConditionalAccessPolicy `json:"policies"`
	Relationships []schemas.Relationship            `json:"relationships"`
	Entities      []schemas.DirectoryEntity         `json:"entities"`
	Summary       Summary                           `json:"summary"`
}

// Run executes the collection. Only a fatal configuration problem — an
// unreachable directory service — aborts it; every per-object failure is
// recovered locally and reflected in the summary's anomaly count.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	policies, err := c.client.ListPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot list conditional access policies: %v", ErrFatalConfiguration, err)
	}
	c.log.Info("Collection started",
		zap.String("runId", c.session.RunID), zap.Int("policies", len(policies)))

	for i, p := range policies {
		c.resolvePolicy(ctx, p)

		if c.checkpointer != nil {
			c.checkpointer.MaybeWrite(c.session, policies[:i+1])
		}
	}

	summary := c.session.Summarize(len(policies))
	c.log.Info("Collection finished",
		zap.String("runId", c.session.RunID),
		zap.Int("relationships", summary.Relationships),
		zap.Int("entities", summary.Entities),
		zap.Int("anomalies", summary.Anomalies),
		zap.Int("cycles", summary.Cycles),
		zap.Int("depthTruncations", summary.DepthTruncations))

	return &Result{
		RunID:         c.session.RunID,
		Policies:      policies,
		Relationships: c.session.Relationships(),
		Entities:      c.session.Registry().Entities(),
		Summary:       summary,
	}, nil
}

// resolvePolicy resolves every scope and category of one policy.
func (c *Collector) resolvePolicy(ctx context.Context, p schemas.ConditionalAccessPolicy) {
	c.log.Debug("Resolving policy", zap.String("id", p.ID), zap.String("name", p.DisplayName))

	users := p.Conditions.Users
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeInclude, CategoryUser, users.IncludeUsers)
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeExclude, CategoryUser, users.ExcludeUsers)
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeInclude, CategoryGroup, users.IncludeGroups)
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeExclude, CategoryGroup, users.ExcludeGroups)
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeInclude, CategoryRole, users.IncludeRoles)
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeExclude, CategoryRole, users.ExcludeRoles)

	apps := p.Conditions.Applications
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeInclude, CategoryServicePrincipal, apps.IncludeApplications)
	c.assignments.ResolveCategory(ctx, p, schemas.ScopeExclude, CategoryServicePrincipal, apps.ExcludeApplications)

	if loc := p.Conditions.Locations; loc != nil {
		c.assignments.ResolveCategory(ctx, p, schemas.ScopeInclude, CategoryNamedLocation, loc.IncludeLocations)
		c.assignments.ResolveCategory(ctx, p, schemas.ScopeExclude, CategoryNamedLocation, loc.ExcludeLocations)
	}
}
