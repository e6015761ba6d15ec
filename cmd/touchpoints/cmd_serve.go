package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/touchpoints/internal/httpx"
	"github.com/AngelCh415/touchpoints/internal/metrics"
	"github.com/AngelCh415/touchpoints/internal/source"
	"github.com/AngelCh415/touchpoints/internal/store"
)

var serveFlags struct {
	document string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve journeys and analysis over HTTP",
	Long: `Loads a saved touchpoint document, when present, and serves journeys,
analysis and Prometheus metrics. With CRM_API_TOKEN set, POST /ingest/run
runs a fresh batch and replaces the served data.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.document, "document", "", "touchpoint document to serve (defaults to the output path)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	st := store.NewMemoryStore()
	path := serveFlags.document
	if path == "" {
		path = cfg.OutputPath
	}
	if journeys, err := source.ReadDocument(path); err != nil {
		logger.Warn("no document loaded", slog.String("path", path), slog.String("err", err.Error()))
	} else {
		st.Replace(journeys)
		logger.Info("document loaded", slog.String("path", path), slog.Int("customers", st.Len()))
	}

	var runner httpx.Runner
	if cfg.RequireToken() == nil {
		runner = newJob(cfg, st, logger)
	}
	svc := metrics.NewService(st, metrics.NewAnalyzer(logger))
	r := httpx.NewRouter(logger, runner, svc, func() bool { return st.Len() > 0 })

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
