package graph

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nullsweep/camap/api/schemas"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex for SQL mock
// expectations.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

const (
	sqlInsertNode = `
		INSERT INTO nodes (id, label, type, properties, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			type = EXCLUDED.type,
			properties = EXCLUDED.properties,
			generated_at = EXCLUDED.generated_at;
	`
	sqlInsertEdge = `
		INSERT INTO edges (from_node, to_node, relationship, properties, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (from_node, to_node, relationship) DO UPDATE SET
			properties = EXCLUDED.properties,
			generated_at = EXCLUDED.generated_at;
	`
)

func TestNewPostgresStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = NewPostgresStore(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStorePersist(t *testing.T) {
	ctx := context.Background()

	generatedAt := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	export := &schemas.GraphExport{
		GeneratedAt: generatedAt,
		Nodes: []schemas.Node{{
			ID:    "p1",
			Label: "Require MFA",
			Type:  schemas.NodePolicy,
			Properties: map[string]interface{}{
				"state": "enabled",
			},
		}},
		Edges: []schemas.Edge{{
			From:         "p1",
			To:           "u1",
			Relationship: "include:user",
		}},
	}

	t.Run("should persist nodes and edges in one transaction", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := NewPostgresStore(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertNode)).
			WithArgs("p1", "Require MFA", "policy", []byte(`{"state":"enabled"}`), generatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertEdge)).
			WithArgs("p1", "u1", "include:user", []byte(`null`), generatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.Persist(ctx, export))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should handle transaction begin failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := NewPostgresStore(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		beginErr := errors.New("cannot begin tx")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		err = store.Persist(ctx, export)
		require.Error(t, err)
		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should rollback when a node insert fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := NewPostgresStore(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		insertErr := errors.New("constraint violation")
		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertNode)).
			WithArgs("p1", "Require MFA", "policy", []byte(`{"state":"enabled"}`), generatedAt).
			WillReturnError(insertErr)
		mockPool.ExpectRollback()

		err = store.Persist(ctx, export)
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
		assert.Contains(t, err.Error(), `failed to insert node "p1"`)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
