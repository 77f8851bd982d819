package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oldleaf/shelfscan/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web cataloging interface",
		Long: `Starts the Shelfscan web API on the specified port.

The API accepts cover photo uploads, drives batch identification runs, exposes
the session catalog, and serves the bulk-import feed as a zip download.`,
		Example: `  # Start server on default port 8888
  shelfscan serve

  # Start server on custom port
  shelfscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := handlers.New()

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/upload", handler.HandleUpload)
			mux.HandleFunc("/api/scan", handler.HandleScan)
			mux.HandleFunc("/api/working/accept", handler.HandleWorkingAccept)
			mux.HandleFunc("/api/batch", handler.HandleBatch)
			mux.HandleFunc("/api/batch/run", handler.HandleBatchRun)
			mux.HandleFunc("/api/batch/accept", handler.HandleBatchAccept)
			mux.HandleFunc("/api/batch/", handler.HandleBatchItem)
			mux.HandleFunc("/api/catalog", handler.HandleCatalog)
			mux.HandleFunc("/api/catalog/", handler.HandleCatalogEntry)
			mux.HandleFunc("/api/export", handler.HandleExport)
			mux.HandleFunc("/api/export/snapshot", handler.HandleSnapshot)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Shelfscan interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
