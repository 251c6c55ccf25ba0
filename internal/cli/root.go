package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/yildizm/DiagScan/internal/config"
	"github.com/yildizm/DiagScan/internal/emoji"
	"github.com/yildizm/DiagScan/internal/logger"
	"github.com/yildizm/DiagScan/internal/metrics"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	noEmoji   bool
	outputFmt string
	traceOut  bool

	globalConfig  *config.Config
	traceShutdown metrics.ShutdownFunc
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diagscan",
		Short: "Diagnostic image classification client",
		Long: `DiagScan submits a diagnostic image to a classification service and
presents the predicted class, its confidence and a downloadable report.

Images are validated locally (JPEG, PNG or GIF up to 10 MB) before anything
is sent. One analysis runs at a time, bounded by a 30 second timeout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}

			cfg, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			applyConfigDefaults(cmd, cfg)
			globalConfig = cfg

			logger.SetColorDisabled(!useColor())
			emoji.SetEmojiDisabled(noEmoji)

			if traceOut || cfg.Telemetry.Trace {
				shutdown, err := metrics.InitTracer(os.Stderr)
				if err != nil {
					return err
				}
				traceShutdown = shutdown
			}
			return nil
		},
	}

	// Flush spans even when the command fails
	cobra.OnFinalize(shutdownTracer)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json, markdown)")
	rootCmd.PersistentFlags().BoolVar(&traceOut, "trace", false, "print request spans to stderr")

	// Add subcommands
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newTUICommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// applyConfigDefaults fills global flags the user did not set from the config
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if f := flags.Lookup("verbose"); f != nil && !f.Changed && cfg.Output.Verbose {
		verbose = true
	}
	if f := flags.Lookup("output"); f != nil && !f.Changed && cfg.Output.DefaultFormat != "" {
		outputFmt = cfg.Output.DefaultFormat
	}
	if f := flags.Lookup("no-color"); f != nil && !f.Changed && cfg.Output.ColorMode == "never" {
		noColor = true
	}
	if f := flags.Lookup("no-emoji"); f != nil && !f.Changed && !cfg.Output.Emoji {
		noEmoji = true
	}
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			fmt.Printf("DiagScan %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// GetGlobalConfig returns the loaded configuration, or defaults before load
func GetGlobalConfig() *config.Config {
	if globalConfig == nil {
		return config.DefaultConfig()
	}
	return globalConfig
}

func shutdownTracer() {
	if traceShutdown == nil {
		return
	}
	if err := traceShutdown(context.Background()); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to flush traces: %v\n", err)
	}
	traceShutdown = nil
}

// Global helpers
func isVerbose() bool {
	return verbose
}

func getOutputFormat() string {
	return outputFmt
}

func useColor() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return GetGlobalConfig().Output.ColorMode != "never"
}

func newLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}

// verboseFlag reports the --verbose flag to loggers
type verboseFlag struct{}

func (verboseFlag) IsVerbose() bool {
	return isVerbose()
}
