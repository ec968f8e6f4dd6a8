package root

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docker/docqa/pkg/cli"
	"github.com/docker/docqa/pkg/model"
	"github.com/docker/docqa/pkg/server"
	"github.com/docker/docqa/pkg/watch"
)

type serveFlags struct {
	listenAddr string
	restore    bool
	watch      bool
}

func newServeCmd(root *rootFlags) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serve the JSON API under /api: upload, learn, search, ask, reset, status and documents",
		Example: `  docqa serve
  docqa serve --listen unix:///tmp/docqa.sock --restore --watch`,
		GroupID:     "advanced",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationInfoLogs: ""},
		RunE:        flags.runServeCommand(root),
	}

	cmd.Flags().StringVarP(&flags.listenAddr, "listen", "l", "", "Address to listen on (default: server.listen, :8080)")
	cmd.Flags().BoolVar(&flags.restore, "restore", false, "Restore the most recently learned document on startup")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Also learn files dropped into the uploads directory")

	return cmd
}

func (f *serveFlags) runServeCommand(root *rootFlags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cli.NewPrinter(cmd.OutOrStdout())

		a, err := root.newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if f.restore {
			if ok, err := a.restore(ctx); err != nil {
				slog.Warn("Failed to restore document", "error", err)
			} else if ok {
				meta, _ := a.session.Meta()
				slog.Info("Restored document", "source", meta.SourceFilename, "chunks", meta.NChunks)
			}
		}

		addr := cmp.Or(f.listenAddr, a.cfg.Server.Listen)
		ln, err := server.Listen(ctx, addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		go func() {
			<-ctx.Done()
			_ = ln.Close()
		}()

		serverOpts := []server.Opt{
			server.WithUploadDir(a.cfg.Uploads.Dir),
			server.WithModels(func(ctx context.Context, backend model.Backend) (model.Completer, error) {
				return a.completer(ctx, backend)
			}),
		}
		if a.catalog != nil {
			serverOpts = append(serverOpts, server.WithCatalog(a.catalog))
		}

		var w *watch.Watcher
		if f.watch {
			w, err = watch.New(a.cfg.Uploads.Dir, a.session, watch.WithPattern(a.cfg.Uploads.Pattern))
			if err != nil {
				return err
			}
			serverOpts = append(serverOpts, server.WithUploadTracker(w))
		}
		srv := server.New(a.session, serverOpts...)

		out.Printf("Listening on %s\n", ln.Addr())

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Serve(ctx, ln)
		})
		if w != nil {
			g.Go(func() error {
				return w.Run(ctx)
			})
		}

		return g.Wait()
	}
}
