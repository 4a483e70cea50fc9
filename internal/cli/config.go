package cli

import (
	"github.com/spf13/cobra"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/output"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage topics, bias rules and feeds",
		Long: `Stored configuration takes precedence over the JSON files in rules.dir.

Examples:
  quietly config seed                              # Copy rule files into the store
  quietly config stats                             # Show effective counts
  quietly config add-feed acme https://acme.example/feed.xml
  quietly config remove-feed acme`,
	}
	cmd.AddCommand(
		newConfigSeedCommand(a),
		newConfigStatsCommand(a),
		newConfigAddFeedCommand(a),
		newConfigRemoveFeedCommand(a),
	)
	return cmd
}

func newConfigSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the rule files from rules.dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			result, err := comps.Rules.Seed(ctx)
			if err != nil {
				return err
			}
			seeded := 0
			for _, doc := range []struct {
				name domain.ConfigType
				ok   bool
			}{
				{domain.ConfigTopics, result.Topics},
				{domain.ConfigBiasRules, result.BiasRules},
				{domain.ConfigFeeds, result.Feeds},
			} {
				if doc.ok {
					seeded++
					a.printer.Success("Seeded %s", doc.name)
				}
			}
			if seeded == 0 {
				a.printer.Warning("No rule files found in %s", a.cfg.Rules.Dir)
			}
			return nil
		},
	}
}

func newConfigStatsCommand(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show effective configuration counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			stats, err := comps.Rules.Stats(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return a.printer.JSON(stats)
			}
			return a.printer.ConfigStats(stats)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newConfigAddFeedCommand(a *app) *cobra.Command {
	var (
		feedType string
		keyword  string
	)
	cmd := &cobra.Command{
		Use:   "add-feed <source> <url>",
		Short: "Add a feed to the stored feeds document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			added, err := comps.Rules.AddFeed(ctx, domain.FeedConfig{
				Source:  args[0],
				URL:     args[1],
				Type:    feedType,
				Keyword: keyword,
			})
			if err != nil {
				return err
			}
			if !added {
				return &output.CLIError{
					Summary:    "no feeds document is stored",
					Suggestion: "Run 'quietly config seed' first",
					ExitCode:   output.ExitConfigError,
				}
			}
			a.printer.Success("Added feed %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&feedType, "type", "rss", "feed type; only rss feeds are read")
	cmd.Flags().StringVar(&keyword, "keyword", "", "keyword recorded on alerts from this feed")
	return cmd
}

func newConfigRemoveFeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-feed <source>",
		Short: "Remove a feed from the stored feeds document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comps, err := a.openComponents(ctx)
			if err != nil {
				return err
			}
			defer closeComponents(comps, a.log)

			removed, err := comps.Rules.RemoveFeed(ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				a.printer.Warning("No feed with source %s", args[0])
				return nil
			}
			a.printer.Success("Removed feed %s", args[0])
			return nil
		},
	}
}
