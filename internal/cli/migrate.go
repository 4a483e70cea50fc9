package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quietly-stated/internal/di"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := di.OpenStore(ctx, a.cfg.Database, a.log)
			if err != nil {
				return storeError(err)
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			a.printer.Success("Schema is up to date (%s)", a.cfg.Database.Driver)
			return nil
		},
	}
}
