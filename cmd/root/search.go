package root

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
)

type searchFlags struct {
	k      int
	scores bool
}

func newSearchCmd(root *rootFlags) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Show the excerpts of the active document closest to a query",
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
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

			matches, err := a.session.SearchHits(ctx, strings.Join(args, " "), flags.k)
			if err != nil {
				return err
			}

			out.PrintMatches(matches, flags.scores)
			return nil
		},
	}

	cmd.Flags().IntVarP(&flags.k, "top-k", "k", 0, "Number of excerpts to return (default: retrieval.top_k)")
	cmd.Flags().BoolVar(&flags.scores, "scores", false, "Show positions and similarity scores")

	return cmd
}
