package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists built graphs to PostgreSQL. Upserts keep repeated
// persistence of the same graph idempotent, mirroring the in-memory identity
// guards.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

// Ensures the store satisfies the sink contract at compile time.
var _ schemas.GraphSink = (*PostgresStore)(nil)

// NewPostgresStore creates a store and verifies the connection.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("pgstore"),
	}, nil
}

// Persist writes all nodes and edges of an export in one transaction.
func (s *PostgresStore) Persist(ctx context.Context, export *schemas.GraphExport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	for _, n := range export.Nodes {
		props, err := json.Marshal(n.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal properties for node %q: %w", n.ID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO nodes (id, label, type, properties, generated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				label = EXCLUDED.label,
				type = EXCLUDED.type,
				properties = EXCLUDED.properties,
				generated_at = EXCLUDED.generated_at;
		`, n.ID, n.Label, string(n.Type), props, export.GeneratedAt); err != nil {
			return fmt.Errorf("failed to insert node %q: %w", n.ID, err)
		}
	}

	for _, e := range export.Edges {
		props, err := json.Marshal(e.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal properties for edge %s->%s: %w", e.From, e.To, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO edges (from_node, to_node, relationship, properties, generated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (from_node, to_node, relationship) DO UPDATE SET
				properties = EXCLUDED.properties,
				generated_at = EXCLUDED.generated_at;
		`, e.From, e.To, e.Relationship, props, export.GeneratedAt); err != nil {
			return fmt.Errorf("failed to insert edge %s->%s: %w", e.From, e.To, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Graph persisted",
		zap.Int("nodes", len(export.Nodes)), zap.Int("edges", len(export.Edges)))
	return nil
}
