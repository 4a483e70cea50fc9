package cli

import (
	"context"

	"github.com/spf13/cobra"

	"quietly-stated/internal/di"
	"quietly-stated/internal/domain"
	"quietly-stated/internal/usecase"
	"quietly-stated/internal/worker"
)

func newEnrichCommand(a *app) *cobra.Command {
	var (
		days       int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "enrich-signals",
		Short: "Extract signals from recent documents",
		Long: `Run topic tagging, bias filtering and statistic extraction over alerts and
articles fetched in the last N days. Re-running stores nothing new.

Examples:
  quietly enrich-signals
  quietly enrich-signals --days 30 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Pipeline.EnrichDays
			}
			return a.withLockedComponents(cmd.Context(), func(ctx context.Context, comps *di.ApplicationComponents) error {
				a.printer.Info("Extracting signals from last %d days...", days)
				result, err := comps.Enrich.Execute(ctx, days)
				if err != nil {
					return err
				}
				if jsonOutput {
					return a.printer.JSON(result)
				}
				a.printer.EnrichResult(result)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "process documents from last N days")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newAggregateCommand(a *app) *cobra.Command {
	var (
		days       int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate-insights",
		Short: "Group recent signals into insights",
		Long: `Group signals created in the last N days by topic and store one insight per
topic with enough signals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Pipeline.AggregateDays
			}
			return a.withLockedComponents(cmd.Context(), func(ctx context.Context, comps *di.ApplicationComponents) error {
				a.printer.Info("Generating insights for last %d days...", days)
				result, err := comps.Aggregate.Execute(ctx, days)
				if err != nil {
					return err
				}
				if jsonOutput {
					return a.printer.JSON(result)
				}
				a.printAggregate(result)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "generate insights for last N days")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newRunPipelineCommand(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "run-pipeline",
		Short: "Run ingest, enrich and aggregate once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			report, err := worker.NewPipelineScheduler(worker.SchedulerDeps{
				Ingest:        comps.Ingest,
				Enrich:        comps.Enrich,
				Aggregate:     comps.Aggregate,
				Lock:          comps.RunLock,
				LockTTL:       a.cfg.Redis.LockTTL,
				EnrichDays:    a.cfg.Pipeline.EnrichDays,
				AggregateDays: a.cfg.Pipeline.AggregateDays,
				Logger:        a.log,
			}).RunOnce(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return a.printer.JSON(report)
			}
			if report.Ingest != nil {
				a.printer.IngestResult(report.Ingest)
			}
			a.printer.EnrichResult(report.Enrich)
			a.printAggregate(report.Aggregate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func (a *app) printAggregate(result *usecase.AggregateResult) {
	a.printer.Success("Grouped %d topics: %d insights saved, %d failed", result.Groups, result.Saved, result.Failed)
	for _, insight := range result.Insights {
		a.printer.Print("  %s  %s", a.printer.Bold(insight.Topic), insight.Title)
	}
}

// withLockedComponents runs fn holding the pipeline run lock so a manual job
// never overlaps a scheduled run.
func (a *app) withLockedComponents(ctx context.Context, fn func(context.Context, *di.ApplicationComponents) error) error {
	comps, err := a.openComponents(ctx)
	if err != nil {
		return err
	}
	defer closeComponents(comps, a.log)

	unlock, err := comps.RunLock.TryLock(ctx, domain.PipelineLockName, a.cfg.Redis.LockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("failed to release pipeline lock", "error", err)
		}
	}()
	return fn(ctx, comps)
}
