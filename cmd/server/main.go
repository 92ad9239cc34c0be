// Package main is the triage API server entry point.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	triageclient "github.com/tinkerloft/triage/internal/client"
	"github.com/tinkerloft/triage/internal/config"
	"github.com/tinkerloft/triage/internal/knowledge"
	"github.com/tinkerloft/triage/internal/logging"
	"github.com/tinkerloft/triage/internal/metrics"
	"github.com/tinkerloft/triage/internal/server"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	configPath := os.Getenv("TRIAGE_CONFIG")
	if configPath == "" {
		configPath = "routing.yaml"
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		logger.Error("failed to load routing config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if dir := os.Getenv("TRIAGE_DOMAIN_DOCS"); dir != "" {
		descriptors, err := config.LoadDescriptorDir(dir)
		if err != nil {
			logger.Error("failed to load domain descriptors", "dir", dir, "error", err)
			os.Exit(1)
		}
		config.MergeDescriptors(cfg, descriptors)
	}

	dbPath := os.Getenv("TRIAGE_DB_PATH")
	if dbPath == "" {
		dbPath = "triage.db"
	}
	store, err := knowledge.Open(dbPath)
	if err != nil {
		logger.Error("failed to open knowledge store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.SeedDomains(context.Background(), cfg.KnowledgeDomains()); err != nil {
		logger.Error("failed to seed domain registry", "error", err)
		os.Exit(1)
	}

	tc, err := triageclient.New()
	if err != nil {
		logger.Error("failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer tc.Close()

	registry := prometheus.NewRegistry()
	m, err := metrics.Register(registry)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	addr := os.Getenv("TRIAGE_SERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	s := server.New(store, tc, *cfg, m, registry)
	logger.Info("triage server listening", "addr", addr, "domains", len(cfg.Domains))
	if err := http.ListenAndServe(addr, s); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
