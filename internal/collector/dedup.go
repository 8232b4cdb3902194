package collector

// Deduplicator is the run-scoped uniqueness guard over emitted relationship
// tuples. Keys follow schemas.Relationship.Key: policy id, scope, target type,
// target id, and the joined via path.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// TryAdd records the key and reports whether it was new.
func (d *Deduplicator) TryAdd(key string) bool {
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Clear resets the set between runs.
func (d *Deduplicator) Clear() {
	d.seen = make(map[string]struct{})
}

// Len reports the number of distinct keys seen this run.
func (d *Deduplicator) Len() int { return len(d.seen) }
