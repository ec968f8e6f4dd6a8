package root

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
	"github.com/docker/docqa/pkg/pdf"
)

func newLearnCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "learn <file>",
		Short: "Learn a PDF or text document",
		Long:  "Extract the text of a document, index it and make it the active document. The previous document is forgotten.",
		Example: `  docqa learn contrato.pdf
  docqa learn notas.txt`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cli.NewPrinter(cmd.OutOrStdout())

			text, err := pdf.ReadDocument(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			a, err := root.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			source := filepath.Base(args[0])
			result, err := a.session.Learn(ctx, text, source)
			if err != nil {
				return err
			}

			out.PrintLearnResult(source, result)
			return nil
		},
	}
}
