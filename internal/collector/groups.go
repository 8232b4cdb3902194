package collector

import (
	"context"

	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

// GroupExpander flattens nested group membership with bounded, cycle-safe
// traversal. Traversal is depth-first over an explicit frame stack rather than
// native recursion, so pathological nesting cannot exhaust the call stack and
// the cycle and depth bookkeeping stays independently testable.
type GroupExpander struct {
	client   schemas.DirectoryClient
	resolver *Resolver
	session  *Session
	maxDepth int
	log      *zap.Logger
}

// DefaultMaxDepth bounds traversal when the caller does not configure one.
const DefaultMaxDepth = 10

// NewGroupExpander creates an expander bound to one run's session.
func NewGroupExpander(client schemas.DirectoryClient, resolver *Resolver, session *Session, maxDepth int, logger *zap.Logger) *GroupExpander {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupExpander{
		client:   client,
		resolver: resolver,
		session:  session,
		maxDepth: maxDepth,
		log:      logger.Named("groups"),
	}
}

// frame is one branch of the traversal. Each frame carries its own visited set
// and breadcrumb: the same group may legitimately be revisited via a different
// sibling path, so visited state is never shared across branches.
type frame struct {
	groupID string
	path    []string
	visited map[string]struct{}
}

func (f frame) child(groupID, displayName string) frame {
	visited := make(map[string]struct{}, len(f.visited)+1)
	for id := range f.visited {
		visited[id] = struct{}{}
	}
	visited[groupID] = struct{}{}

	path := make([]string, 0, len(f.path)+1)
	path = append(path, f.path...)
	path = append(path, displayName)

	return frame{groupID: groupID, path: path, visited: visited}
}

// Expand flattens the membership tree rooted at groupID. Encountering a group
// already on the current branch halts that descent and flags CycleDetected;
// exceeding the depth bound halts descent and flags MaxDepthReached. Neither
// is an error. When a member is reachable via multiple nested paths, the
// first-discovered via-path wins.
func (g *GroupExpander) Expand(ctx context.Context, groupID string) schemas.ExpansionResult {
	var res schemas.ExpansionResult

	root := g.resolver.Resolve(ctx, schemas.KindGroup, groupID)

	seen := make(map[string]struct{})
	nested := make(map[string]struct{})

	stack := []frame{{
		groupID: groupID,
		path:    []string{root.DisplayName},
		visited: map[string]struct{}{groupID: {}},
	}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var children []frame
		for _, m := range g.directMembers(ctx, f.groupID) {
			if m.Kind == schemas.KindGroup {
				if _, ok := nested[m.ID]; !ok {
					nested[m.ID] = struct{}{}
					res.NestedGroups = append(res.NestedGroups, m.ID)
				}
				if _, revisit := f.visited[m.ID]; revisit {
					res.CycleDetected = true
					g.session.cycles++
					g.log.Debug("Cycle detected; halting branch",
						zap.String("group", m.ID), zap.Strings("path", f.path))
					continue
				}
				if len(f.path) >= g.maxDepth {
					res.MaxDepthReached = true
					g.session.depthTruncations++
					g.log.Debug("Max depth reached; halting branch",
						zap.String("group", m.ID), zap.Int("maxDepth", g.maxDepth))
					continue
				}
				children = append(children, f.child(m.ID, m.DisplayName))
				continue
			}

			if m.Kind == schemas.KindUnknown {
				// Unrecognized member classes are retained with their raw type
				// tag rather than dropped.
				g.session.recordAnomaly(AnomalyStructural)
				g.log.Warn("Member with unrecognized type retained",
					zap.String("id", m.ID), zap.String("rawType", m.RawType))
			}

			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			res.Members = append(res.Members, schemas.MemberRecord{
				ID:          m.ID,
				Kind:        m.Kind,
				DisplayName: m.DisplayName,
				RawType:     m.RawType,
				Via:         f.path,
			})
		}

		// Push in reverse so sibling groups are visited in discovery order.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return res
}

// directMembers fetches a group's direct membership, memoized for the run. A
// group's direct members are path-independent, so the cache is shared across
// branches. A failed lookup yields zero members for that branch only.
func (g *GroupExpander) directMembers(ctx context.Context, groupID string) []schemas.DirectoryEntity {
	if members, ok := g.session.members[groupID]; ok {
		return members
	}
	members, err := g.client.GetGroupMembers(ctx, groupID)
	if err != nil {
		g.log.Warn("Group membership lookup failed; branch yields no members",
			zap.String("group", groupID), zap.Error(err))
		g.session.recordAnomaly(AnomalyTransientLookup)
		members = nil
	}
	g.session.members[groupID] = members
	return members
}
