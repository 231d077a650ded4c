// Package serve handles the serve command: the upload form over HTTP.
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fjacquet/budget-sync/cmd/root"
	"fjacquet/budget-sync/internal/web"

	"github.com/spf13/cobra"
)

var port int

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload form over HTTP",
	Long: `Serve a form at / that takes YNAB credentials, a budget name and a CSV or
Excel file, runs the sync and renders the run log.`,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
}

func serveFunc(cmd *cobra.Command, _ []string) error {
	c, err := root.NewContainer()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	cfg := c.GetConfig()
	if port > 0 {
		cfg.Server.Port = port
	}

	srv, err := web.NewServer(web.Options{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		UploadDir:      cfg.Server.UploadDir,
	}, c.GetRunner(), c.GetLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx, time.Duration(cfg.Server.ShutdownTimeoutS)*time.Second)
}
