package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/credence/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve exposes the evaluation service over HTTP.

Routes:
  POST /api/evaluate          score one reading
  POST /api/evaluate/batch    score up to 100 readings
  GET  /api/pending/:id       payload echo used as the attestation target
  GET  /api/evaluations       evaluation log (limit, source, category)
  GET  /api/evaluations/:id   one logged evaluation
  GET  /api/formulas          the formula catalog
  GET  /healthz               liveness

Example:
  credence serve --addr 0.0.0.0:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, logger)
	defer a.Close()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithVersion(Version),
		server.WithMaxBatch(cfg.Server.MaxBatch),
	}
	if a.store != nil {
		opts = append(opts, server.WithHistory(a.store))
	}

	if err := server.New(a.service, opts...).Run(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
