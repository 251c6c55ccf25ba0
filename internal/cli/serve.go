package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yildizm/DiagScan/internal/devserver"
	"github.com/yildizm/DiagScan/internal/emoji"
)

var (
	serveAddress string
	serveClasses []string
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local stand-in classification endpoint",
		Long: `Serve POST /predict with the same contract as the classification service.

The predicted class is derived from the brightness of the uploaded image, so
the same image always gets the same answer. Uploads use the "file" form field
and are limited to the configured upload size. Intended for development and
demos only.

Examples:
  diagscan serve
  diagscan serve --address :9000 --classes normal,abnormal`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddress, "address", "", "listen address (default from config)")
	cmd.Flags().StringSliceVar(&serveClasses, "classes", nil, "class labels, darkest first (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()

	address := cfg.Server.Address
	if serveAddress != "" {
		address = serveAddress
	}
	classes := cfg.Server.Classes
	if len(serveClasses) > 0 {
		classes = serveClasses
	}

	srv, err := devserver.New(devserver.Options{
		Classes:  classes,
		MaxBytes: cfg.Upload.MaxBytes,
		Mode:     cfg.Server.Mode,
		Logger:   newLogger("devserver"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Serving POST /predict on %s (classes: %s)\n",
		emoji.GetEmoji("server"), address, strings.Join(classes, ", "))
	return srv.Run(ctx, address)
}
