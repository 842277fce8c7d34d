package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenrok/sdstore"
	"github.com/tenrok/sdstore/internal/metrics"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve storage contents over HTTP",
	Long: `Starts an HTTP server that serves the storage read-only at / and
Prometheus metrics at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("sdstore %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Listen address")

	rootCmd.AddCommand(serveCmd, versionCmd)
}

// newServeMux wires the file server and the metrics endpoint.
func newServeMux(httpFS *sdstore.HttpFS) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", http.FileServer(httpFS))
	return mux
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	storage, err := openStorage(ctx)
	if err != nil {
		return err
	}
	httpFS, err := sdstore.NewHttpFS(ctx, storage, sdstore.WithLogger(logger))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           newServeMux(httpFS),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", listenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
