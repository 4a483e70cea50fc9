package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/output"
)

func newIngestCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load source documents into the store",
	}
	cmd.AddCommand(newIngestFeedsCommand(a), newIngestTrendsCommand(a))
	return cmd
}

func newIngestFeedsCommand(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Read every enabled RSS feed",
		Long: `Fetch every enabled feed from the feeds configuration. Alert feeds store
alerts; blog feeds store articles with their page text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			a.printer.Info("Fetching feeds...")
			result, err := comps.Ingest.IngestFeeds(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return a.printer.JSON(result)
			}
			a.printer.IngestResult(result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newIngestTrendsCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Import trend samples from a JSON file",
		Long: `Import a JSON array of trend samples. Samples are upserted by term, geo,
timeframe and pull time. Use --file - to read stdin.

Example:
  quietly ingest trends --file trends.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trends, err := readTrends(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			stored, err := comps.Ingest.ImportTrends(ctx, trends)
			if err != nil {
				return err
			}
			a.printer.Success("Imported %d of %d trend samples", stored, len(trends))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with trend samples (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readTrends(stdin io.Reader, file string) ([]domain.RawTrend, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, &output.CLIError{
			Summary:  fmt.Sprintf("cannot read trends file %s", file),
			Detail:   err.Error(),
			ExitCode: output.ExitUsageError,
		}
	}

	var trends []domain.RawTrend
	if err := json.Unmarshal(data, &trends); err != nil {
		return nil, &output.CLIError{
			Summary:    "trends file is not a JSON array of samples",
			Detail:     err.Error(),
			Suggestion: `Expected [{"term": "...", "geo": "...", "weekly_interest": 42}]`,
			ExitCode:   output.ExitUsageError,
		}
	}
	return trends, nil
}
