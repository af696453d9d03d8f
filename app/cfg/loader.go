package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./podcache.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing range source definition files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Maintenance scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Upstream directory API
	DirectoryAPIURL string `long:"directory-api-url" env:"DIRECTORY_API_URL" default:"https://api.podcastdirectory.example.com/v2" description:"Base URL of the podcast directory API"`
	DirectoryAPIKey string `long:"directory-api-key" env:"DIRECTORY_API_KEY" description:"API key for the podcast directory"`

	// Scoring oracle
	OracleProvider string `long:"oracle-provider" env:"ORACLE_PROVIDER" default:"openai" description:"LLM provider for fit analysis (openai or anthropic)"`
	OracleModel    string `long:"oracle-model" env:"ORACLE_MODEL" description:"LLM model for fit analysis (provider default when empty)"`
	OracleAPIKey   string `long:"oracle-api-key" env:"ORACLE_API_KEY" description:"API key for the LLM provider"`
	OracleBaseURL  string `long:"oracle-base-url" env:"ORACLE_BASE_URL" description:"Override base URL for the LLM provider"`

	// Google Sheets
	SheetsAPIURL      string `long:"sheets-api-url" env:"SHEETS_API_URL" description:"Override base URL for the Google Sheets API"`
	SheetsAccessToken string `long:"sheets-access-token" env:"SHEETS_ACCESS_TOKEN" description:"OAuth access token for the Google Sheets API"`

	// Cache behavior
	StaleDays                 int `long:"stale-days" env:"STALE_DAYS" default:"7" description:"Days before a cached podcast counts as stale"`
	FetchBatchSize            int `long:"fetch-batch-size" env:"FETCH_BATCH_SIZE" default:"5" description:"Podcasts fetched per upstream batch"`
	ConcurrentBatches         int `long:"concurrent-batches" env:"CONCURRENT_BATCHES" default:"3" description:"Upstream batches fetched concurrently"`
	TimeBudgetSeconds         int `long:"time-budget" env:"TIME_BUDGET_SECONDS" default:"50" description:"Wall clock budget in seconds for the fetch loop"`
	AnalysisTimeBudgetSeconds int `long:"analysis-time-budget" env:"ANALYSIS_TIME_BUDGET_SECONDS" default:"50" description:"Wall clock budget in seconds for the analysis loop"`
	RetentionDays             int `long:"retention-days" env:"RETENTION_DAYS" default:"180" description:"Days to keep unfetched podcasts before the sweep removes them (0 disables)"`

	// Enrichment
	EnrichRSS     bool `long:"enrich-rss" env:"ENRICH_RSS" description:"Fill episode data from RSS feeds when the directory omits it"`
	EnrichWebsite bool `long:"enrich-website" env:"ENRICH_WEBSITE" description:"Feed extracted website content to the fit analysis"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"PodCache/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:                    raw.DBPath,
		SourcesDir:                raw.SourcesDir,
		Port:                      raw.Port,
		WorkerCount:               raw.WorkerCount,
		SchedulerInterval:         raw.SchedulerInterval,
		APIAccessKey:              raw.APIAccessKey,
		DirectoryAPIURL:           raw.DirectoryAPIURL,
		DirectoryAPIKey:           raw.DirectoryAPIKey,
		OracleProvider:            raw.OracleProvider,
		OracleModel:               raw.OracleModel,
		OracleAPIKey:              raw.OracleAPIKey,
		OracleBaseURL:             raw.OracleBaseURL,
		SheetsAPIURL:              raw.SheetsAPIURL,
		SheetsAccessToken:         raw.SheetsAccessToken,
		StaleDays:                 raw.StaleDays,
		FetchBatchSize:            raw.FetchBatchSize,
		ConcurrentBatches:         raw.ConcurrentBatches,
		TimeBudgetSeconds:         raw.TimeBudgetSeconds,
		AnalysisTimeBudgetSeconds: raw.AnalysisTimeBudgetSeconds,
		RetentionDays:             raw.RetentionDays,
		EnrichRSS:                 raw.EnrichRSS,
		EnrichWebsite:             raw.EnrichWebsite,
		UserAgent:                 raw.UserAgent,
		Timezone:                  raw.Timezone,
		Debug:                     raw.Debug,
		Version:                   GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
