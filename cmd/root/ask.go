package root

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
	"github.com/docker/docqa/pkg/model"
	"github.com/docker/docqa/pkg/rag/prompt"
	"github.com/docker/docqa/pkg/rag/session"
)

type askFlags struct {
	model       string
	k           int
	showContext bool
}

func newAskCmd(root *rootFlags) *cobra.Command {
	var flags askFlags

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about the active document",
		Long:  "Retrieve the excerpts closest to the question and send them, with the question, to a language model.",
		Example: `  docqa ask "Qual é o valor total?"
  docqa ask "Quem assina o contrato?" --model gemini`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cli.NewPrinter(cmd.OutOrStdout())

			backend, err := model.ParseBackend(flags.model)
			if err != nil {
				return err
			}

			a, err := root.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			loaded, err := a.restore(ctx)
			if err != nil {
				return err
			}
			if !loaded {
				return session.ErrNoDocument
			}

			question := strings.Join(args, " ")
			chunks, err := a.session.Search(ctx, question, flags.k)
			if err != nil {
				return err
			}

			completer, err := a.completer(ctx, backend)
			if err != nil {
				return err
			}

			answer, err := completer.Complete(ctx, prompt.Build(question, chunks))
			if err != nil {
				return err
			}

			if flags.showContext {
				for _, c := range chunks {
					out.Printf("> %s\n\n", c)
				}
			}
			out.PrintAnswer(backend.Label(), answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.model, "model", "m", string(model.GPT), "Model backend: "+joinBackends())
	cmd.Flags().IntVarP(&flags.k, "top-k", "k", 0, "Number of excerpts sent to the model (default: retrieval.top_k)")
	cmd.Flags().BoolVar(&flags.showContext, "show-context", false, "Print the excerpts sent to the model")

	return cmd
}
