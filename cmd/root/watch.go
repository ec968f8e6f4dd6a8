package root

import (
	"cmp"
	"time"

	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
	"github.com/docker/docqa/pkg/rag/session"
	"github.com/docker/docqa/pkg/watch"
)

type watchFlags struct {
	pattern  string
	debounce time.Duration
}

func newWatchCmd(root *rootFlags) *cobra.Command {
	var flags watchFlags

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Learn documents as they are written to a directory",
		Long:  "Watch a directory (default: uploads.dir) and learn every file matching the pattern once it stops changing. The last file learned becomes the active document.",
		Example: `  docqa watch
  docqa watch ./inbox --pattern "**/*.pdf"`,
		GroupID:     "advanced",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationInfoLogs: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cli.NewPrinter(cmd.OutOrStdout())

			a, err := root.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			dir := a.cfg.Uploads.Dir
			if len(args) == 1 {
				dir = args[0]
			}

			w, err := watch.New(dir, a.session,
				watch.WithPattern(cmp.Or(flags.pattern, a.cfg.Uploads.Pattern)),
				watch.WithDebounce(flags.debounce),
				watch.OnLearn(func(path string, result session.Result, err error) {
					if err != nil {
						out.PrintError(err)
						return
					}
					out.PrintLearnResult(path, result)
				}),
			)
			if err != nil {
				return err
			}

			out.Printf("Watching %s (Ctrl+C to stop)\n", dir)
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&flags.pattern, "pattern", "", "Glob of files to learn, relative to the directory (default: uploads.pattern)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "Wait this long after the last change before learning")

	return cmd
}
