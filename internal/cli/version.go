package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			a.printer.Print("quietly %s (%s %s/%s)", a.version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
