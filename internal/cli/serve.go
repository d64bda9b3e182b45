package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/snapmed/internal/api"
	"github.com/ppiankov/snapmed/internal/auth"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/metrics"
)

var serveAddress string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the HTTP API:
  POST /analyze-base64     identify a medication from a base64 image
  POST /api/history        save an identification (authenticated)
  GET  /api/history        list your identifications (authenticated)
  GET  /api/auth/session   check the session cookies
  POST /api/auth/logout    end the session
  GET  /health             liveness
  GET  /metrics            prometheus metrics

Example:
  snapmed serve --addr :3000
  SNAPMED_ENVIRONMENT=production snapmed serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddress, "addr", "", "listen address (overrides server.address)")
	_ = viper.BindPFlag("server.address", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if serveAddress != "" {
		cfg.Server.Address = serveAddress
	}

	logger := logging.New(cfg.Logging)

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	p, err := buildPipeline(cfg, logger, m)
	if err != nil {
		return err
	}

	store, db, err := openHistory(cfg, logger, m)
	if err != nil {
		return err
	}
	defer closeDB(db)

	gate, err := auth.NewGate(cfg.Auth, cfg.HTTP, logger)
	if err != nil {
		return fmt.Errorf("create session gate: %w", err)
	}

	server := api.New(cfg, p, store, gate, api.WithMetrics(m), api.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("environment", cfg.Environment).
		WithField("auth", gate.Name()).
		WithField("store", cfg.Store.Driver).
		Info("starting snapmed")

	return server.Run(ctx)
}
