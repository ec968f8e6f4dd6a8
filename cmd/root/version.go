package root

import (
	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
	"github.com/docker/docqa/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Display the version and commit hash`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cli.NewPrinter(cmd.OutOrStdout())
			out.Printf("docqa version %s\n", version.Version)
			out.Printf("Commit: %s\n", version.Commit)
		},
	}
}
