// Package cli contains the quietly command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"quietly-stated/internal/di"
	"quietly-stated/internal/domain"
	"quietly-stated/internal/infra/config"
	"quietly-stated/internal/infra/logger"
	"quietly-stated/internal/infra/otel"
	"quietly-stated/internal/output"
)

// annotationNoConfig marks commands that run without loading configuration.
const annotationNoConfig = "quietly.no-config"

// app carries the state shared by every command of one invocation.
type app struct {
	version string

	cfgFile   string
	verbose   bool
	quiet     bool
	colorMode string

	cfg     *config.Config
	log     *slog.Logger
	printer *output.Printer

	shutdownOTel otel.ShutdownFunc
}

// NewRootCommand builds the quietly command tree.
func NewRootCommand(version string) *cobra.Command {
	root, _ := newRootCommand(version)
	return root
}

func newRootCommand(version string) (*cobra.Command, *app) {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "quietly",
		Short: "QuietlyStated trend intelligence",
		Long: `quietly turns feeds and trend samples into statistical signals and insights.

Example usage:
  quietly ingest feeds              # Read every enabled feed
  quietly enrich-signals --days 7   # Extract signals from recent documents
  quietly aggregate-insights        # Group signals into insights
  quietly weekly-report             # Compare this week with last week
  quietly serve                     # HTTP API plus the pipeline scheduler`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./quietly.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress non-error output")
	root.PersistentFlags().StringVar(&a.colorMode, "color", "auto", "colorize output: auto, always, never")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &output.CLIError{
			Summary:    err.Error(),
			Suggestion: fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
			ExitCode:   output.ExitUsageError,
		}
	})

	root.AddCommand(
		newServeCommand(a),
		newMCPCommand(a),
		newMigrateCommand(a),
		newEnrichCommand(a),
		newAggregateCommand(a),
		newRunPipelineCommand(a),
		newWeeklyReportCommand(a),
		newIngestCommand(a),
		newConfigCommand(a),
		newVersionCommand(a),
	)
	return root, a
}

// Execute runs the command tree and returns the process exit code.
func Execute(version string) int {
	root, a := newRootCommand(version)
	err := root.Execute()
	a.flushTelemetry()
	return exitCode(root, err)
}

func exitCode(root *cobra.Command, err error) int {
	if err == nil {
		return output.ExitSuccess
	}
	cliErr := asCLIError(err)
	output.NewPrinter(output.PrinterOptions{
		Out:       root.OutOrStdout(),
		Err:       root.ErrOrStderr(),
		ColorMode: output.ColorAuto,
	}).FormatError(cliErr)
	return cliErr.ExitCode
}

func asCLIError(err error) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	if errors.Is(err, domain.ErrLockHeld) {
		return &output.CLIError{
			Summary:    "another pipeline run is in progress",
			Suggestion: "Wait for the running job to finish and retry",
			ExitCode:   output.ExitLockHeld,
		}
	}
	return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitGeneral}
}

func (a *app) init(cmd *cobra.Command) error {
	mode, err := output.ParseColorMode(a.colorMode)
	if err != nil {
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError}
	}
	a.printer = output.NewPrinter(output.PrinterOptions{
		Out:       cmd.OutOrStdout(),
		Err:       cmd.ErrOrStderr(),
		ColorMode: mode,
		Quiet:     a.quiet,
	})
	if cmd.Annotations[annotationNoConfig] == "true" {
		return nil
	}

	a.cfg, err = config.Load(a.cfgFile)
	if err != nil {
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "Check the config file and QUIETLY_* environment variables",
			ExitCode:   output.ExitConfigError,
		}
	}
	if a.verbose {
		a.cfg.Logging.Level = "debug"
	}

	// Spans from every command are exported when otel.enabled is set.
	a.shutdownOTel, err = otel.InitProvider(cmd.Context(), otel.ConfigFrom(a.cfg.OTel))
	if err != nil {
		return &output.CLIError{
			Summary:    "cannot start telemetry",
			Detail:     err.Error(),
			Suggestion: "Check otel.endpoint or set otel.enabled to false",
			ExitCode:   output.ExitConfigError,
		}
	}
	a.log = a.newLogger(cmd.ErrOrStderr())
	a.log.Debug("configuration loaded",
		"driver", a.cfg.Database.Driver,
		"rules_dir", a.cfg.Rules.Dir,
		"schedule", a.cfg.Pipeline.Schedule)
	return nil
}

// flushTelemetry exports pending spans and logs. It is safe to call twice.
func (a *app) flushTelemetry() {
	if a.shutdownOTel == nil {
		return
	}
	shutdown := a.shutdownOTel
	a.shutdownOTel = nil

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil && a.log != nil {
		a.log.Warn("failed to flush telemetry", "error", err)
	}
}

func (a *app) newLogger(w io.Writer) *slog.Logger {
	return logger.NewWithOptions(logger.Options{
		Level:       a.cfg.Logging.Level,
		ServiceName: a.cfg.OTel.ServiceName,
		EnableOTel:  a.cfg.OTel.Enabled,
		Output:      w,
	})
}

// openComponents connects the store and wires the usecases over it.
// The caller closes the returned components.
func (a *app) openComponents(ctx context.Context) (*di.ApplicationComponents, error) {
	store, err := di.OpenStore(ctx, a.cfg.Database, a.log)
	if err != nil {
		return nil, storeError(err)
	}
	comps, err := di.NewApplicationComponents(ctx, a.cfg, store, a.log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return comps, nil
}

func storeError(err error) *output.CLIError {
	return &output.CLIError{
		Summary:    "cannot open the store",
		Detail:     err.Error(),
		Suggestion: "Check the database section of the configuration",
		ExitCode:   output.ExitStoreError,
	}
}

func closeComponents(comps *di.ApplicationComponents, log *slog.Logger) {
	if err := comps.Close(); err != nil {
		log.Warn("failed to close components", "error", err)
	}
}
