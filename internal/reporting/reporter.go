package reporting

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// JSONReporter writes the graph export envelope as indented JSON. It is the
// default sink for a collection run.
type JSONReporter struct {
	writer io.WriteCloser
	log    *zap.Logger
}

// Ensures the reporter satisfies the sink contract at compile time.
var _ schemas.GraphSink = (*JSONReporter)(nil)

// New creates a reporter writing to outputPath. An empty path or "-" selects
// stdout, whose Close is a no-op.
func New(outputPath string, logger *zap.Logger) (*JSONReporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "-" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	return &JSONReporter{
		writer: writer,
		log:    logger.Named("reporter"),
	}, nil
}

// Persist writes the envelope.
func (r *JSONReporter) Persist(_ context.Context, export *schemas.GraphExport) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize graph export: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write graph export: %w", err)
	}
	r.log.Debug("Graph export written",
		zap.Int("nodes", len(export.Nodes)), zap.Int("edges", len(export.Edges)))
	return nil
}

// Close finalizes the report and releases the underlying file handle.
func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
