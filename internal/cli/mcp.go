package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quietly-stated/internal/adapter/signals_mcp"
)

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve reports and browsing as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout. Logs go to stderr so the protocol
stream stays clean.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			return signals_mcp.NewServer(comps.Browse, comps.Reports, a.version, a.log).Run(ctx)
		},
	}
}
