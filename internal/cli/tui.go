package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yildizm/DiagScan/internal/logger"
	"github.com/yildizm/DiagScan/internal/ui"
)

var tuiLogFile string

func newTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive image analysis",
		Long: `Open the interactive terminal UI.

Type or paste an image path, press enter to select it, then press a to
analyze. The result screen shows the predicted class and a confidence bar;
press s to save a text report or r to start over.

With --verbose, logs go to a file instead of the terminal.`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}

	cmd.Flags().StringVar(&tuiLogFile, "log-file", filepath.Join(os.TempDir(), "diagscan-tui.log"), "log file used with --verbose")

	return cmd
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()

	log, closeLog, err := tuiLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	theme, ok := ui.ThemeByName(cfg.Output.Theme)
	if !ok {
		return fmt.Errorf("unknown theme: %s", cfg.Output.Theme)
	}

	sink := ui.NewProgramSink(16)
	sess, err := newSession(cfg, "tui", sink, log)
	if err != nil {
		return err
	}

	model := ui.NewModel(ui.Options{
		Controller: sess.controller,
		Sink:       sink,
		Validator:  sess.validator,
		Selection:  sess.selection,
		ReportDir:  cfg.Report.Directory,
		Timeout:    cfg.Endpoint.Timeout,
		Styles:     ui.NewStyles(theme, !useColor()),
		Logger:     log,
	})

	err = ui.Run(model)
	sess.controller.Wait()
	return err
}

// tuiLogger keeps log output off the alternate screen
func tuiLogger() (*logger.Logger, func(), error) {
	if !isVerbose() {
		return logger.Nop(), func() {}, nil
	}

	// #nosec G304 - path is supplied by the user
	f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log := logger.NewWithWriter("tui", verboseFlag{}, f)
	return log, func() { _ = f.Close() }, nil
}
