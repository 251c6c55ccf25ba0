package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yildizm/DiagScan/internal/config"
	"github.com/yildizm/DiagScan/internal/emoji"
	"github.com/yildizm/DiagScan/internal/formatter"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".diagscan.yaml"

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the endpoint, upload and output settings",
		Long: `Create, inspect and check DiagScan configuration files.

Files are searched in the order printed by "diagscan config path". The global
--config flag points every subcommand at one specific file instead.`,
		// Subcommands load the file themselves so a broken config can still
		// be validated.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			emoji.SetEmojiDisabled(noEmoji)
		},
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigPathCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		outputPath string
		minimal    bool
		force      bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Example: `  diagscan config init
  diagscan config init --minimal --output ~/.config/diagscan/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeSampleConfig(cmd.OutOrStdout(), outputPath, minimal, force)
		},
	}

	initCmd.Flags().StringVarP(&outputPath, "output", "o", defaultConfigFile, "where to write the file")
	initCmd.Flags().BoolVarP(&minimal, "minimal", "m", false, "only the endpoint and upload settings")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing file")

	return initCmd
}

func writeSampleConfig(out io.Writer, path string, minimal, force bool) error {
	if path == "" {
		path = defaultConfigFile
	}
	if !force && fileExists(path) {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	content := config.SampleConfig()
	if minimal {
		content = config.MinimalSampleConfig()
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "%s Configuration file created at: %s\n", emoji.GetEmoji("success"), path)
	return nil
}

func newConfigShowCommand() *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after defaults, files and DIAGSCAN_ environment overrides are merged.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			cfg, err := loader.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			var data []byte
			switch format {
			case "json":
				data, err = json.MarshalIndent(cfg, "", "  ")
				data = append(data, '\n')
			case "yaml":
				data, err = yaml.Marshal(cfg)
			default:
				return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to encode config as %s: %w", format, err)
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "yaml or json")

	return showCmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file and summarize it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			loader := config.NewLoader()
			cfg, err := loader.LoadConfig(cfgFile)
			if err != nil {
				fmt.Fprintf(out, "%s Configuration validation failed:\n   %v\n", emoji.GetEmoji("error"), err)
				return err
			}

			fmt.Fprintf(out, "%s Configuration is valid\n", emoji.GetEmoji("success"))
			if files := loader.LoadedFiles(); len(files) > 0 {
				fmt.Fprintf(out, "   Source: %s\n", strings.Join(files, ", "))
			} else {
				fmt.Fprintln(out, "   Source: defaults")
			}
			fmt.Fprintf(out, "   Endpoint: %s\n", cfg.Endpoint.URL)
			fmt.Fprintf(out, "   Timeout: %s\n", cfg.Endpoint.Timeout)
			fmt.Fprintf(out, "   Upload Limit: %s\n", formatter.FormatByteSize(cfg.Upload.MaxBytes))
			fmt.Fprintf(out, "   Allowed Types: %s\n", strings.Join(cfg.Upload.AllowedTypes, ", "))
			fmt.Fprintf(out, "   Abort On Reset: %t\n", cfg.Controller.AbortOnReset)
			fmt.Fprintf(out, "   Output Format: %s\n", cfg.Output.DefaultFormat)

			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "List the configuration search paths",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "%s Search order:\n", emoji.GetEmoji("folder"))
			for i, path := range config.GetConfigPaths() {
				status := "not found"
				if fileExists(path) {
					status = "exists"
				}
				fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, path, status)
			}

			if current, found := config.FindConfigFile(); found {
				fmt.Fprintf(out, "%s Using %s\n", emoji.GetEmoji("target"), current)
			} else {
				fmt.Fprintf(out, "%s No config file found, using defaults\n", emoji.GetEmoji("info"))
			}
			fmt.Fprintf(out, "%s DIAGSCAN_ environment variables override file settings\n", emoji.GetEmoji("bulb"))
		},
	}
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
