package collector

import "errors"

// ErrFatalConfiguration wraps the only error class that aborts a run: the
// directory service is unreachable, or collection was requested without a
// valid session. Every other failure is recovered locally — logged, counted,
// replaced with placeholder data — and never bubbles past the component that
// encountered it.
var ErrFatalConfiguration = errors.New("fatal configuration")

// AnomalyKind classifies a recoverable upstream problem.
type AnomalyKind string

const (
	// AnomalyTransientLookup marks a single entity, group, or role lookup that
	// failed. The caller proceeds with a placeholder.
	AnomalyTransientLookup AnomalyKind = "transientLookup"
	// AnomalyStructural marks a malformed or unexpected upstream shape, kept
	// with a best-effort fallback classification.
	AnomalyStructural AnomalyKind = "structural"
)

// recordAnomaly bumps the session anomaly counter. The kind only matters for
// logging at the recording site; the summary exposes a single count.
func (s *Session) recordAnomaly(AnomalyKind) {
	s.anomalies++
}
