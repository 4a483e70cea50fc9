package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quietly-stated/internal/adapter/signals_http"
	"quietly-stated/internal/worker"
)

func newServeCommand(a *app) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the pipeline scheduler",
		Long: `Serve the read API under /v1 and run ingest, enrich and aggregate on
pipeline.schedule. Stops gracefully on SIGINT or SIGTERM.

Examples:
  quietly serve
  quietly serve --no-scheduler   # API only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, noScheduler)
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run the pipeline on a schedule")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, noScheduler bool) error {
	ctx := cmd.Context()

	// Service logs are JSON on stdout.
	log := a.newLogger(cmd.OutOrStdout())
	a.log = log

	comps, err := a.openComponents(ctx)
	if err != nil {
		return err
	}
	defer closeComponents(comps, log)

	if !noScheduler {
		scheduler := worker.NewPipelineScheduler(worker.SchedulerDeps{
			Ingest:        comps.Ingest,
			Enrich:        comps.Enrich,
			Aggregate:     comps.Aggregate,
			Lock:          comps.RunLock,
			Schedule:      a.cfg.Pipeline.Schedule,
			LockTTL:       a.cfg.Redis.LockTTL,
			EnrichDays:    a.cfg.Pipeline.EnrichDays,
			AggregateDays: a.cfg.Pipeline.AggregateDays,
			Logger:        log,
		})
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer func() {
			log.Info("stopping scheduler")
			scheduler.Stop()
		}()
	}

	handler := signals_http.NewHandler(comps.Browse, comps.Reports, comps.Enrich, comps.Aggregate, comps.Store, signals_http.Options{
		Version:          a.version,
		DefaultDays:      a.cfg.Pipeline.EnrichDays,
		NotableThreshold: a.cfg.Pipeline.NotableThreshold,
		RunLock:          comps.RunLock,
		LockTTL:          a.cfg.Redis.LockTTL,
	})
	serverOpts := signals_http.ServerOptions{
		RateLimitRPS:   a.cfg.Server.RateLimitRPS,
		RateLimitBurst: a.cfg.Server.RateLimitBurst,
	}
	if a.cfg.OTel.Enabled {
		serverOpts.OTelServiceName = a.cfg.OTel.ServiceName
	}
	e := signals_http.NewServer(handler, serverOpts)
	e.Server.ReadTimeout = a.cfg.Server.ReadTimeout
	e.Server.WriteTimeout = a.cfg.Server.WriteTimeout

	serveErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", a.cfg.Server.Port)
		log.Info("starting server", "addr", addr, "scheduler", !noScheduler)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		log.Info("shutting down", "reason", ctx.Err())
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
