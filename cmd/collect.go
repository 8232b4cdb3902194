package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nullsweep/camap/api/schemas"
	"github.com/nullsweep/camap/internal/collector"
	"github.com/nullsweep/camap/internal/config"
	"github.com/nullsweep/camap/internal/directory"
	"github.com/nullsweep/camap/internal/graph"
	"github.com/nullsweep/camap/internal/observability"
	"github.com/nullsweep/camap/internal/reporting"
)

// newCollectCmd creates and configures the `collect` command.
func newCollectCmd() *cobra.Command {
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collects policy assignments and builds the coverage graph",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line values override
			// the config file and environment with the right precedence.
			if err := viper.BindPFlag("collector.max_depth", cmd.Flags().Lookup("max-depth")); err != nil {
				return err
			}
			if err := viper.BindPFlag("collector.checkpoint_every", cmd.Flags().Lookup("checkpoint-every")); err != nil {
				return err
			}
			if err := viper.BindPFlag("directory.tenant", cmd.Flags().Lookup("tenant")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			cfg.Collect.Output = viper.GetString("output")
			cfg.Collect.Tenant = cfg.Directory.Tenant

			logger.Info("Starting collection",
				zap.String("tenant", cfg.Directory.Tenant),
				zap.Int("maxDepth", cfg.Collector.MaxDepth),
				zap.Int("checkpointEvery", cfg.Collector.CheckpointEvery))

			client, err := directory.NewClient(cfg.Directory, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize directory client: %w", err)
			}

			coll := collector.New(client, collector.Options{
				MaxDepth:        cfg.Collector.MaxDepth,
				CheckpointEvery: cfg.Collector.CheckpointEvery,
				CheckpointDir:   cfg.Collector.CheckpointDir,
			}, logger)

			result, err := coll.Run(ctx)
			if err != nil {
				if errors.Is(err, collector.ErrFatalConfiguration) {
					logger.Error("Collection aborted", zap.Error(err))
				}
				return err
			}

			built := graph.NewBuilder(logger).Build(result.Policies, result.Entities, result.Relationships)
			export := built.Export(map[string]interface{}{
				"runId":   result.RunID,
				"tenant":  cfg.Directory.Tenant,
				"summary": result.Summary,
			})

			reporter, err := reporting.New(cfg.Collect.Output, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := reporter.Close(); err != nil {
					logger.Error("Failed to close reporter", zap.Error(err))
				}
			}()
			if err := reporter.Persist(ctx, export); err != nil {
				return fmt.Errorf("failed to write graph export: %w", err)
			}

			if cfg.Graph.Persist {
				if err := persistGraph(ctx, cfg, export, logger); err != nil {
					return err
				}
			}

			logger.Info("Collection complete",
				zap.String("runId", result.RunID),
				zap.Int("policies", result.Summary.Policies),
				zap.Int("nodes", len(export.Nodes)),
				zap.Int("edges", len(export.Edges)),
				zap.Int("anomalies", result.Summary.Anomalies))
			return nil
		},
	}

	collectCmd.Flags().StringP("output", "o", "", "Output file for the graph JSON. Defaults to stdout.")
	collectCmd.Flags().String("tenant", "", "Tenant identifier recorded in the export metadata.")
	collectCmd.Flags().Int("max-depth", 0, "Maximum nested group traversal depth. (Overrides config/env)")
	collectCmd.Flags().Int("checkpoint-every", 0, "Write an advisory checkpoint every N policies; 0 disables. (Overrides config/env)")

	return collectCmd
}

// persistGraph writes the export to the optional Postgres store.
func persistGraph(ctx context.Context, cfg *config.Config, export *schemas.GraphExport, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.Graph.Postgres.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to graph database: %w", err)
	}
	defer pool.Close()

	store, err := graph.NewPostgresStore(ctx, pool, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize graph store: %w", err)
	}
	return store.Persist(ctx, export)
}
