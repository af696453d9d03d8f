package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/podmatch/podcache/app/analysis"
	"github.com/podmatch/podcache/app/api"
	"github.com/podmatch/podcache/app/cfg"
	"github.com/podmatch/podcache/app/config"
	"github.com/podmatch/podcache/app/database"
	"github.com/podmatch/podcache/app/directory"
	"github.com/podmatch/podcache/app/orchestrator"
	"github.com/podmatch/podcache/app/podcast"
	"github.com/podmatch/podcache/app/sheets"
	"github.com/podmatch/podcache/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting PodCache server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	sources := config.NewSourceCache(appCfg.SourcesDir)
	if err := sources.Run(); err != nil {
		slog.Error("Failed to load range sources", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Range sources loaded", "count", sources.GetSourceCount())

	podcastRepo := database.NewPodcastRepository(db)

	clientAnnotations, err := database.NewAnnotationRepository(db, database.ConsumerKindClient)
	if err != nil {
		slog.Error("Failed to initialize annotation repository", "kind", "client", "error", err)
		os.Exit(1)
	}
	prospectAnnotations, err := database.NewAnnotationRepository(db, database.ConsumerKindProspect)
	if err != nil {
		slog.Error("Failed to initialize annotation repository", "kind", "prospect", "error", err)
		os.Exit(1)
	}
	annotations := map[database.ConsumerKind]database.AnnotationRepository{
		database.ConsumerKindClient:   clientAnnotations,
		database.ConsumerKindProspect: prospectAnnotations,
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	directoryClient := directory.NewClient(httpClient, appCfg.DirectoryAPIURL, appCfg.DirectoryAPIKey, appCfg.UserAgent)
	sheetsClient := sheets.NewClient(httpClient, appCfg.SheetsAPIURL, appCfg.SheetsAccessToken)

	oracle := analysis.NewOracle(appCfg.OracleProvider, appCfg.OracleModel, appCfg.OracleAPIKey, appCfg.OracleBaseURL)
	analyzer := analysis.NewAnalyzer(oracle, appCfg.EnrichWebsite)

	scheduler := tasks.NewScheduler(podcastRepo)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount)

	var enricher *podcast.Enricher
	if appCfg.EnrichRSS {
		enricher = podcast.NewEnricher(httpClient, appCfg.UserAgent)
	}

	engine := orchestrator.NewEngine(podcastRepo, directoryClient, analyzer, annotations, scheduler, enricher, orchestrator.Options{
		StaleDays:         appCfg.StaleDays,
		BatchSize:         appCfg.FetchBatchSize,
		ConcurrentBatches: appCfg.ConcurrentBatches,
		FetchBudget:       time.Duration(appCfg.TimeBudgetSeconds) * time.Second,
		AnalysisBudget:    time.Duration(appCfg.AnalysisTimeBudgetSeconds) * time.Second,
		EnrichRSS:         appCfg.EnrichRSS,
	})

	apiHandler := api.NewHandler(engine, podcastRepo, annotations, sheetsClient, directoryClient, sources, appCfg.StaleDays)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
