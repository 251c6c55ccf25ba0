package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/config"
	"github.com/yildizm/DiagScan/internal/emoji"
	"github.com/yildizm/DiagScan/internal/formatter"
	"github.com/yildizm/DiagScan/internal/report"
)

var (
	analyzeType      string
	analyzeReport    bool
	analyzeReportDir string
	analyzeTimeout   time.Duration
	analyzeEndpoint  string
)

// errAnalysisFailed is returned after the failure message has been shown
var errAnalysisFailed = errors.New("analysis did not succeed")

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Classify a single image",
		Long: `Validate an image and submit it to the classification service.

The media type is taken from the file extension unless --type is given.
Only JPEG, PNG and GIF images up to 10 MB are accepted.

Examples:
  diagscan analyze scan.png
  diagscan analyze --report scan.jpg
  diagscan analyze --output json --endpoint http://10.0.0.5:8000/predict scan.gif`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&analyzeType, "type", "t", "", "declared media type (default: from extension)")
	cmd.Flags().BoolVarP(&analyzeReport, "report", "r", false, "save a text report after a successful analysis")
	cmd.Flags().StringVar(&analyzeReportDir, "report-dir", "", "directory for saved reports")
	cmd.Flags().DurationVar(&analyzeTimeout, "timeout", classifier.DefaultTimeout, "request timeout")
	cmd.Flags().StringVar(&analyzeEndpoint, "endpoint", "", "classification endpoint URL")

	return cmd
}

// analyzeOptions carries the resolved inputs of one analyze run
type analyzeOptions struct {
	Path       string
	MediaType  string
	SaveReport bool
	ReportDir  string
	Format     string
	Color      bool
	Now        func() time.Time
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := *GetGlobalConfig()

	// Use config values if flags weren't explicitly set
	if cmd.Flag("timeout").Changed {
		cfg.Endpoint.Timeout = analyzeTimeout
	}
	if analyzeEndpoint != "" {
		cfg.Endpoint.URL = analyzeEndpoint
	}
	reportDir := cfg.Report.Directory
	if analyzeReportDir != "" {
		reportDir = analyzeReportDir
	}

	return analyzeFile(&cfg, analyzeOptions{
		Path:       args[0],
		MediaType:  analyzeType,
		SaveReport: analyzeReport || analyzeReportDir != "",
		ReportDir:  reportDir,
		Format:     getOutputFormat(),
		Color:      useColor(),
		Now:        time.Now,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// analyzeFile runs one validate-submit-report cycle and blocks until it ends
func analyzeFile(cfg *config.Config, opts analyzeOptions, out, errOut io.Writer) error {
	format, err := formatter.New(opts.Format, opts.Color)
	if err != nil {
		return err
	}

	sink := newLineSink(out, errOut, format)
	sess, err := newSession(cfg, "analyze", sink, nil)
	if err != nil {
		return err
	}

	artifact, err := sess.validator.LoadFile(opts.Path, opts.MediaType)
	if err != nil {
		fmt.Fprintf(errOut, "%s %s\n", emoji.GetEmoji("warning"), err)
		return fmt.Errorf("cannot analyze %s: %w", opts.Path, err)
	}
	sess.selection.Accept(artifact)
	sess.log.Debug("selected %s (%s, %s)", artifact.Name, artifact.MediaType, formatter.FormatByteSize(artifact.Size))

	sink.Label(artifact.Name)
	sess.controller.Start(sess.selection.Current())
	sess.controller.Wait()

	if sess.controller.State() != common.StateSucceeded {
		return errAnalysisFailed
	}

	if opts.SaveReport {
		path, err := report.Save(opts.ReportDir, sess.controller.LastResult(), opts.Now())
		if err != nil {
			sess.log.Error("failed to save report: %v", err)
			fmt.Fprintf(errOut, "%s %s\n", emoji.GetEmoji("error"), classifier.GenericFailureMessage)
			return err
		}
		fmt.Fprintf(errOut, "%s Report saved to %s\n", emoji.GetEmoji("report"), path)
	}

	return nil
}
