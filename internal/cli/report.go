package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newWeeklyReportCommand(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "weekly-report",
		Short: "Compare this week with last week",
		Long: `Print top search terms, top topics and notable statistics for the seven
days before now against the seven days before that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			report, err := comps.Reports.WeeklyReport(ctx, time.Now().UTC().Truncate(time.Minute))
			if err != nil {
				return err
			}
			if jsonOutput {
				return a.printer.JSON(report)
			}
			return a.printer.WeeklyReport(report)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
