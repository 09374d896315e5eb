package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fincheck/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve POST /check and POST /chat, plus /healthz, /readyz and /metrics.
The server starts even when no index is available yet; /readyz reports 503 and
requests fail until the index is built and the server receives SIGHUP.

Examples:
  fincheck serve
  fincheck serve --addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	a := GetApp()
	logger := a.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, _, err := a.Retriever(ctx)
	if retriever == nil {
		return err
	}
	if err != nil {
		logger.Error("evidence index not loaded, serving as not ready", "error", err)
	}

	checkUC, err := a.CheckUseCase()
	if err != nil {
		return err
	}
	chatUC, err := a.ChatUseCase()
	if err != nil {
		return err
	}

	srv := server.New(checkUC, chatUC, retriever, server.Options{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RequestTimeout:     time.Duration(cfg.Server.RequestTimeoutS * float64(time.Second)),
	}, logger)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := a.Reload(ctx); err != nil {
					logger.Error("index reload failed", "error", err)
					continue
				}
				logger.Info("index reloaded")
			}
		}
	}()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(addr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
