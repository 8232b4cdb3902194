package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Checkpointer writes advisory partial-state snapshots at a fixed policy-count
// cadence. Snapshots exist purely for crash visibility on long runs; they are
// not transactional and a crash loses at most the uncheckpointed increment.
type Checkpointer struct {
	dir   string
	every int
	log   *zap.Logger

	written int
}

// NewCheckpointer creates a checkpointer writing into dir every `every`
// policies.
func NewCheckpointer(dir string, every int, logger *zap.Logger) *Checkpointer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkpointer{
		dir:   dir,
		every: every,
		log:   logger.Named("checkpoint"),
	}
}

// checkpoint is the serialized partial state.
type checkpoint struct {
	RunID             string                            `json:"runId"`
	WrittenAt         time.Time                         `json:"writtenAt"`
	ProcessedPolicies int                               `json:"processedPolicies"`
	Policies          []schemas.ConditionalAccessPolicy `json:"policies"`
	Relationships     []schemas.Relationship            `json:"relationships"`
	Entities          []schemas.DirectoryEntity         `json:"entities"`
	Summary           Summary                           `json:"summary"`
}

// MaybeWrite serializes the current session state if the cadence is due.
// Failures are logged and otherwise ignored; checkpointing never interferes
// with the run.
func (c *Checkpointer) MaybeWrite(session *Session, processed []schemas.ConditionalAccessPolicy) {
	if c.every <= 0 || len(processed)%c.every != 0 {
		return
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.log.Warn("Cannot create checkpoint directory", zap.String("dir", c.dir), zap.Error(err))
		return
	}

	cp := checkpoint{
		RunID:             session.RunID,
		WrittenAt:         time.Now().UTC(),
		ProcessedPolicies: len(processed),
		Policies:          processed,
		Relationships:     session.Relationships(),
		Entities:          session.Registry().Entities(),
		Summary:           session.Summarize(len(processed)),
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		c.log.Warn("Cannot serialize checkpoint", zap.Error(err))
		return
	}

	c.written++
	path := filepath.Join(c.dir, fmt.Sprintf("checkpoint-%s-%04d.json", session.RunID, c.written))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.log.Warn("Cannot write checkpoint", zap.String("path", path), zap.Error(err))
		return
	}
	c.log.Debug("Checkpoint written",
		zap.String("path", path), zap.Int("processedPolicies", len(processed)))
}
