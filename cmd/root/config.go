package root

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/docker/docqa/pkg/cli"
	"github.com/docker/docqa/pkg/config"
)

func newConfigCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration",
		Long:  "View and manage the docqa configuration stored in ~/.config/docqa/config.yaml",
		Example: `  # Show the effective configuration
  docqa config show

  # Write the default configuration
  docqa config init`,
		GroupID: "advanced",
		RunE:    runConfigShowCommand(root),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  "Display the configuration, with defaults and environment overrides applied, in YAML format",
		Args:  cobra.NoArgs,
		RunE:  runConfigShowCommand(root),
	})
	cmd.AddCommand(newConfigInitCmd(root))
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the path to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli.NewPrinter(cmd.OutOrStdout()).Println(configPath(root, config.Path()))
			return nil
		},
	})

	return cmd
}

func runConfigShowCommand(root *rootFlags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		out := cli.NewPrinter(cmd.OutOrStdout())

		cfg, err := root.loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		data, err := yaml.MarshalWithOptions(cfg, yaml.IndentSequence(true), yaml.UseSingleQuote(false))
		if err != nil {
			return fmt.Errorf("failed to format config: %w", err)
		}

		out.Printf("%s", data)
		return nil
	}
}

func newConfigInitCmd(root *rootFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cli.NewPrinter(cmd.OutOrStdout())
			path := configPath(root, config.Path())

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			}

			if err := config.Default().Save(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			out.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
