package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/oss-listings/claims-backend/config"
	"github.com/oss-listings/claims-backend/internal/bootstrap"
	"github.com/oss-listings/claims-backend/internal/claims"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/storage/postgres"
)

type runtime struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	rdb  *redis.Client
	svc  *bootstrap.Services
}

func (rt *runtime) Close() {
	if rt.rdb != nil {
		rt.rdb.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	_ = logging.SetLevel(cfg.App.LogLevel)
	rt := &runtime{cfg: cfg}

	if rt.pool, err = bootstrap.OpenDB(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if rt.rdb, err = bootstrap.OpenRedis(ctx, cfg.Redis); err != nil {
		rt.Close()
		return nil, err
	}
	if rt.svc, err = bootstrap.NewServices(ctx, cfg, rt.pool, rt.rdb); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or roll back schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := postgres.NewConnection(&cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[0] {
			case "up":
				if steps > 0 {
					return postgres.MigrateSteps(db, steps)
				}
				return postgres.MigrateUp(db)
			case "down":
				if steps <= 0 {
					steps = 1
				}
				return postgres.MigrateSteps(db, -steps)
			default:
				version, dirty, err := postgres.MigrationVersion(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			}
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 0, "number of migrations to apply (down defaults to 1)")
	return cmd
}

func refreshReposCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-repos",
		Short: "Refresh cached repository metadata for every listed project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.svc.Refresher.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed=%d skipped=%d failed=%d\n", report.Refreshed, report.Skipped, report.Failed)
			return err
		},
	}
}

func eligibilityCmd() *cobra.Command {
	var claim bool

	cmd := &cobra.Command{
		Use:   "eligibility <project-id> <user-id>",
		Short: "Explain whether a user may claim a project",
		Long:  "Runs the same ownership check as the API. With --claim the project is claimed when the user is eligible.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			run := rt.svc.Workflow.Evaluate
			if claim {
				run = rt.svc.Workflow.Claim
			}
			attempt, err := run(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			out := map[string]any{
				"state":       attempt.State,
				"reason":      attempt.Reason,
				"eligibility": attempt.Eligibility,
			}
			if attempt.Record != nil {
				out["claim"] = attempt.Record
			}
			if attempt.Err != nil {
				out["error"] = attempt.Err.Error()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if claim && attempt.State != claims.StateClaimed {
				return fmt.Errorf("project not claimed: %s", attempt.State)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&claim, "claim", false, "claim the project when eligible")
	return cmd
}
