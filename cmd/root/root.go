package root

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model"
	"github.com/docker/docqa/pkg/rag/session"
)

// annotationInfoLogs marks commands that log at info level without --debug.
const annotationInfoLogs = "docqa/info-logs"

type rootFlags struct {
	enableOtel  bool
	debugMode   bool
	logFilePath string
	configPath  string
	envFiles    []string
	logFile     io.Closer
	otelFlush   func(context.Context) error
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "docqa - ask questions about a document",
		Long:  "docqa learns a PDF or text document and answers questions about it using the most relevant excerpts",
		Example: `  docqa learn contrato.pdf
  docqa search "prazo de entrega" --scores
  docqa ask "Qual é o prazo de entrega?" --model llama
  docqa serve --listen :8080 --restore`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.setupLogging(cmd); err != nil {
				// If logging setup fails, fall back to stderr so we still get logs
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: flags.logLevel(),
				})))
				slog.Warn("Failed to open log file", "path", flags.logFilePath, "error", err)
			}

			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Failed to load .env", "error", err)
			}

			if flags.enableOtel {
				shutdown, err := initOTelSDK(cmd.Context())
				if err != nil {
					slog.Warn("Failed to initialize OpenTelemetry SDK", "error", err)
				} else {
					flags.otelFlush = shutdown
					slog.Debug("OpenTelemetry SDK initialized successfully")
				}
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.otelFlush != nil {
				if err := flags.otelFlush(context.WithoutCancel(cmd.Context())); err != nil {
					slog.Warn("Failed to flush traces", "error", err)
				}
			}
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
			return nil
		},
		// If no subcommand is specified, show help
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.enableOtel, "otel", "o", false, "Enable OpenTelemetry tracing")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Write logs to this file instead of stderr")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the config file (default: ~/.config/docqa/config.yaml)")
	cmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-from-file", nil, "Read API keys from these .env files")

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "advanced", Title: "Advanced Commands:"})

	cmd.AddCommand(newLearnCmd(&flags))
	cmd.AddCommand(newSearchCmd(&flags))
	cmd.AddCommand(newAskCmd(&flags))
	cmd.AddCommand(newStatusCmd(&flags))
	cmd.AddCommand(newResetCmd(&flags))
	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newWatchCmd(&flags))
	cmd.AddCommand(newConfigCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return processErr(ctx, err, stderr, rootCmd)
	}
	return nil
}

func processErr(ctx context.Context, err error, stderr io.Writer, rootCmd *cobra.Command) error {
	if ctx.Err() != nil {
		return ctx.Err()
	} else if envErr, ok := errors.AsType[*environment.RequiredEnvError](err); ok {
		if envErr.AnyOf {
			fmt.Fprintln(stderr, "One of the following environment variables must be set:")
		} else {
			fmt.Fprintln(stderr, "The following environment variables must be set:")
		}
		for _, v := range envErr.Missing {
			fmt.Fprintf(stderr, " - %s\n", v)
		}
		fmt.Fprintln(stderr, "\nEither:\n - Set those environment variables before running docqa\n - Put them in a .env file in the working directory\n - Run docqa with --env-from-file")
	} else if errors.Is(err, session.ErrNoDocument) {
		fmt.Fprintln(stderr, "No document loaded. Run 'docqa learn <file>' first.")
	} else if errors.Is(err, model.ErrUnknownBackend) {
		fmt.Fprintln(stderr, err)
		fmt.Fprintf(stderr, "Available models: %s\n", joinBackends())
	} else if _, ok := errors.AsType[RuntimeError](err); ok {
		// Runtime errors have already been printed by the command itself
	} else {
		// Command line usage errors - show the error and usage
		fmt.Fprintln(stderr, err)
		if strings.HasPrefix(err.Error(), "unknown command ") || strings.HasPrefix(err.Error(), "accepts ") {
			fmt.Fprintln(stderr)
			_ = rootCmd.Usage()
		}
	}

	return err
}

func joinBackends() string {
	var names []string
	for _, b := range model.Backends() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

func (f *rootFlags) logLevel() slog.Level {
	if f.debugMode {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// setupLogging configures slog. Logs are discarded unless --debug is set
// or the command is a long running one; --log-file redirects them.
func (f *rootFlags) setupLogging(cmd *cobra.Command) error {
	_, infoLogs := cmd.Annotations[annotationInfoLogs]
	if !f.debugMode && !infoLogs {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nil
	}

	var out io.Writer = cmd.ErrOrStderr()
	if path := strings.TrimSpace(f.logFilePath); path != "" {
		logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		f.logFile = logFile
		out = logFile
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: f.logLevel()})))
	return nil
}

// RuntimeError wraps runtime errors to distinguish them from usage errors
type RuntimeError struct {
	Err error
}

func (e RuntimeError) Error() string {
	return e.Err.Error()
}

func (e RuntimeError) Unwrap() error {
	return e.Err
}

func configPath(f *rootFlags, fallback string) string {
	return cmp.Or(strings.TrimSpace(f.configPath), fallback)
}
