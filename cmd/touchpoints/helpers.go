package main

import (
	"log/slog"
	"os"

	"github.com/AngelCh415/touchpoints/internal/config"
	"github.com/AngelCh415/touchpoints/internal/crm"
	"github.com/AngelCh415/touchpoints/internal/ingest"
	"github.com/AngelCh415/touchpoints/internal/store"
)

// loadConfig reads configuration and applies the persistent flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(rootFlags.envFile)
	if err != nil {
		return cfg, err
	}
	if rootFlags.input != "" {
		cfg.InputPath = rootFlags.input
	}
	if rootFlags.output != "" {
		cfg.OutputPath = rootFlags.output
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	return logger
}

func newJob(cfg config.Config, st *store.MemoryStore, logger *slog.Logger) *ingest.Job {
	client := crm.NewClient(crm.Config{
		BaseURL:      cfg.CRMBaseURL,
		Token:        cfg.CRMToken,
		Timeout:      cfg.HTTPTimeout,
		RatePerSec:   cfg.RateLimitRPS,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	etl := ingest.NewETL(client, st, logger, ingest.Options{
		MaxEngagements: cfg.MaxEngagements,
		MaxDeals:       cfg.MaxDeals,
		DetailMaxLen:   cfg.DetailMaxLen,
	})
	return &ingest.Job{ETL: etl, InputPath: cfg.InputPath, OutputPath: cfg.OutputPath}
}
