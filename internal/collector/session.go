package collector

import (
	"github.com/google/uuid"
	"github.com/nullsweep/camap/api/schemas"
)

// Session is the explicit run-scoped state value threaded through every
// resolver and expander call. All caches and dedup sets live here; nothing in
// the collector keeps ambient package state. A Session is created at the start
// of a run, mutated throughout, and must be Clear()ed before reuse — there is
// no implicit reset.
//
// Re-entrant or parallel use of one Session is unsupported: execution is
// strictly sequential, so no locking is needed.
type Session struct {
	RunID string

	// entities caches canonical records by lookup key (kind + ":" + id). A
	// service principal resolved through its application id is cached under
	// both identifiers, pointing at the same canonical record.
	entities map[string]schemas.DirectoryEntity

	// members memoizes direct group membership by group id. A group's direct
	// members are path-independent, so this cache is shared across branches.
	members map[string][]schemas.DirectoryEntity

	// roleMembers caches role expansion results by role template id.
	roleMembers map[string][]schemas.MemberRecord

	// activatedRoles maps role template id to the activated instance, loaded
	// in one listing on first use.
	activatedRoles  map[string]schemas.ActivatedRole
	activatedLoaded bool

	// Bulk preload markers for named locations and role templates.
	locationsLoaded bool
	templatesLoaded bool

	dedup    *Deduplicator
	registry *Registry

	relationships []schemas.Relationship

	anomalies        int
	cycles           int
	depthTruncations int
}

// NewSession creates an empty session for a fresh collection run.
func NewSession() *Session {
	s := &Session{}
	s.Clear()
	s.RunID = uuid.New().String()
	return s
}

// Clear resets every cache and counter so the session can back a new run.
func (s *Session) Clear() {
	s.RunID = uuid.New().String()
	s.entities = make(map[string]schemas.DirectoryEntity)
	s.members = make(map[string][]schemas.DirectoryEntity)
	s.roleMembers = make(map[string][]schemas.MemberRecord)
	s.activatedRoles = make(map[string]schemas.ActivatedRole)
	s.activatedLoaded = false
	s.locationsLoaded = false
	s.templatesLoaded = false
	if s.dedup == nil {
		s.dedup = NewDeduplicator()
	} else {
		s.dedup.Clear()
	}
	s.registry = NewRegistry()
	s.relationships = nil
	s.anomalies = 0
	s.cycles = 0
	s.depthTruncations = 0
}

// Registry returns the shared entity registry for this run.
func (s *Session) Registry() *Registry { return s.registry }

// Relationships returns the relationships emitted so far, in emission order.
func (s *Session) Relationships() []schemas.Relationship { return s.relationships }

// addRelationship appends a relationship if its key has not been seen this
// run. It is the sole gate preventing duplicate emission when a target is
// reachable via multiple nesting or role paths.
func (s *Session) addRelationship(r schemas.Relationship) bool {
	if !s.dedup.TryAdd(r.Key()) {
		return false
	}
	s.relationships = append(s.relationships, r)
	return true
}

// Summary captures the run counters surfaced alongside the collected data. A
// run with anomalies still completes; the counts let callers detect possible
// undercount instead of being handed a silently empty result.
type Summary struct {
	Policies         int `json:"policies"`
	Relationships    int `json:"relationships"`
	Entities         int `json:"entities"`
	Anomalies        int `json:"anomalies"`
	Cycles           int `json:"cycles"`
	DepthTruncations int `json:"depthTruncations"`
}

// Summarize builds the summary for the current session state.
func (s *Session) Summarize(policies int) Summary {
	return Summary{
		Policies:         policies,
		Relationships:    len(s.relationships),
		Entities:         s.registry.Len(),
		Anomalies:        s.anomalies,
		Cycles:           s.cycles,
		DepthTruncations: s.depthTruncations,
	}
}

// Registry is the ordered, first-writer-wins entity registry shared by a run.
type Registry struct {
	order    []string
	entities map[string]schemas.DirectoryEntity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]schemas.DirectoryEntity)}
}

// Add registers an entity under its id. The first registration per id wins;
// later registrations are ignored and reported with a false return.
func (r *Registry) Add(e schemas.DirectoryEntity) bool {
	if e.ID == "" {
		return false
	}
	if _, exists := r.entities[e.ID]; exists {
		return false
	}
	r.entities[e.ID] = e
	r.order = append(r.order, e.ID)
	return true
}

// Get returns the registered entity for an id.
func (r *Registry) Get(id string) (schemas.DirectoryEntity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// Entities returns all registered entities in registration order.
func (r *Registry) Entities() []schemas.DirectoryEntity {
	out := make([]schemas.DirectoryEntity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id])
	}
	return out
}

// Len reports the number of registered entities.
func (r *Registry) Len() int { return len(r.order) }
