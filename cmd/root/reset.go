package root

import (
	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
)

func newResetCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "reset",
		Short:   "Forget the active document and delete every stored index",
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

			if err := a.session.Reset(ctx); err != nil {
				return err
			}

			out.Println("All stored indexes deleted.")
			return nil
		},
	}
}
