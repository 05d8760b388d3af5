package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-labs/rcpsched/internal/bundleio"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/observability"
	"github.com/kestrel-labs/rcpsched/internal/runstore"
	"github.com/kestrel-labs/rcpsched/internal/scheduler"
	"github.com/spf13/cobra"
)

func newScheduleCmd(app *App) *cobra.Command {
	var noSave bool
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "schedule <bundle.yaml>",
		Short: "Run the scheduler against a bundle file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundlePath := args[0]
			ctx := cmd.Context()

			bundle, err := bundleio.Load(bundlePath)
			if err != nil {
				return err
			}

			bundleHash, err := runstore.BundleHash(bundle)
			if err != nil {
				return fmt.Errorf("hashing %s: %w", bundlePath, err)
			}

			var result domain.AlgorithmResult
			var cacheHit bool
			if !noSave && app.Store != nil {
				result, cacheHit, err = app.Store.FindByBundleHash(ctx, bundleHash)
				if err != nil {
					return fmt.Errorf("checking run history: %w", err)
				}
			}

			if !cacheHit {
				fields := map[string]any{"strategy": bundle.Config.Strategy.Strategy}
				err = observability.Observe(ctx, app.Observer, "schedule_run", fields, func() error {
					var scheduleErr error
					result, scheduleErr = scheduler.Schedule(bundle)
					fields["task_count"] = len(bundle.Tasks)
					fields["warning_count"] = len(result.Warnings)
					return scheduleErr
				})
				if err != nil {
					return fmt.Errorf("scheduling %s: %w", bundlePath, err)
				}

				for _, d := range result.RolloutDecisions {
					observability.Emit(ctx, app.Observer, "rollout_decision", map[string]any{
						"task_id":      d.TaskID,
						"competing_id": d.CompetingID,
						"decision":     d.Decision,
						"score_a":      d.ScoreA,
						"score_b":      d.ScoreB,
					})
				}

				result.RunID = uuid.NewString()
				result.GeneratedAt = time.Now().UTC()

				if !noSave && app.Store != nil {
					if err := app.Store.Save(ctx, result, bundlePath, bundleHash); err != nil {
						return fmt.Errorf("saving run: %w", err)
					}
				}
			}

			return renderResult(cmd.OutOrStdout(), app, result, noTUI)
		},
	}

	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not record this run in run history")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "always print a plain table, even on an interactive terminal")

	return cmd
}
