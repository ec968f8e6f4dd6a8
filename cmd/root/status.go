package root

import (
	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
)

func newStatusCmd(root *rootFlags) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the active document",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cli.NewPrinter(cmd.OutOrStdout())

			a, err := root.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.restore(ctx); err != nil {
				return err
			}

			meta, _ := a.session.Meta()
			out.PrintStatus(a.session.State(), meta)

			if history {
				entries, err := a.documents(ctx)
				if err != nil {
					return err
				}
				out.Println()
				out.PrintDocuments(entries)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "Also list every learned document")

	return cmd
}
