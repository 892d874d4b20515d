package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/parallax/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for the disparity API",
	Long: `Start an HTTP server exposing the stereo matcher as a REST and
WebSocket API.

The server provides the following endpoints:
  POST /v1/disparity        - Match an uploaded stereo pair
  WS   /v1/disparity/stream - Match with per-stage progress frames
  GET  /v1/info             - Matcher configuration and limits
  GET  /health              - Health check endpoint
  GET  /metrics             - Prometheus metrics

Examples:
  parallax serve
  parallax serve --port 8080
  parallax serve --host 0.0.0.0 --port 3000 --max-concurrent 4`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyMatcherOverrides(cmd, &cfg.Matcher)

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		maxUploadMB := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
		}
		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}
		corsEnabled := cfg.Server.CORSEnabled
		if cmd.Flags().Changed("cors") {
			corsEnabled, _ = cmd.Flags().GetBool("cors")
		}
		maxConcurrent := cfg.Server.MaxConcurrent
		if cmd.Flags().Changed("max-concurrent") {
			maxConcurrent, _ = cmd.Flags().GetInt("max-concurrent")
		}
		shutdownTimeout, _ := cmd.Flags().GetInt("shutdown-timeout")

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		serverConfig := server.Config{
			Host:          host,
			Port:          port,
			MaxUploadMB:   int64(maxUploadMB),
			CORSEnabled:   corsEnabled,
			TimeoutSec:    timeout,
			MaxConcurrent: maxConcurrent,
			Matcher:       cfg.Matcher.ToOptions(),
		}

		srv, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		mux := http.NewServeMux()
		srv.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              serverConfig.Addr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(timeout) * time.Second,
			WriteTimeout:      time.Duration(timeout) * time.Second,
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			slog.Info("Starting disparity server", "host", host, "port", port,
				"max_concurrent", maxConcurrent, "max_upload_mb", maxUploadMB)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		slog.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "host interface to bind (empty = all)")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Bool("cors", true, "enable CORS headers")
	serveCmd.Flags().Int("max-concurrent", 0, "simultaneous disparity computations (0 = default)")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	addMatcherFlags(serveCmd)
}

// GetServeCommand returns the serve command for testing purposes.
func GetServeCommand() *cobra.Command {
	return serveCmd
}
