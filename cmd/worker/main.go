// Package main is the consolidation worker entry point.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	temporalactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	sdkinterceptor "go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/tinkerloft/triage/internal/activity"
	triageclient "github.com/tinkerloft/triage/internal/client"
	"github.com/tinkerloft/triage/internal/knowledge"
	"github.com/tinkerloft/triage/internal/logging"
	"github.com/tinkerloft/triage/internal/metrics"
	"github.com/tinkerloft/triage/internal/workflow"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

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

	temporalAddr := os.Getenv("TEMPORAL_ADDRESS")
	if temporalAddr == "" {
		temporalAddr = "localhost:7233"
	}
	c, err := client.Dial(client.Options{
		HostPort: temporalAddr,
		Logger:   logging.NewTemporalAdapter(logger),
	})
	if err != nil {
		logger.Error("failed to connect to Temporal", "addr", temporalAddr, "error", err)
		os.Exit(1)
	}
	defer c.Close()
	logger.Info("connected to Temporal", "addr", temporalAddr, "task_queue", triageclient.TaskQueue)

	registry := prometheus.NewRegistry()
	m, err := metrics.Register(registry)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	consolidation := activity.NewConsolidationActivities(store)
	consolidation.Metrics = m
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		consolidation.Summarizer = activity.NewClaudeSummarizer()
		logger.Info("content summarization enabled")
	}
	notify := activity.NewNotifyActivities()

	w := worker.New(c, triageclient.TaskQueue, worker.Options{
		Interceptors: []sdkinterceptor.WorkerInterceptor{metrics.NewInterceptor(m)},
	})

	w.RegisterWorkflow(workflow.Consolidate)
	w.RegisterActivityWithOptions(consolidation.ResolveWindow, temporalactivity.RegisterOptions{Name: activity.ActivityResolveWindow})
	w.RegisterActivityWithOptions(consolidation.RunConsolidation, temporalactivity.RegisterOptions{Name: activity.ActivityRunConsolidation})
	w.RegisterActivityWithOptions(notify.NotifyDigest, temporalactivity.RegisterOptions{Name: activity.ActivityNotifyDigest})

	metricsAddr := os.Getenv("TRIAGE_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()

	logger.Info("worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
