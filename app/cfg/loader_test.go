package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:                    "./test.db",
		SourcesDir:                "./sources",
		Port:                      "8080",
		WorkerCount:               5,
		SchedulerInterval:         3600,
		APIAccessKey:              "test-key",
		DirectoryAPIURL:           "https://directory.example.com",
		DirectoryAPIKey:           "dir-key",
		OracleProvider:            "openai",
		StaleDays:                 7,
		FetchBatchSize:            5,
		ConcurrentBatches:         3,
		TimeBudgetSeconds:         50,
		AnalysisTimeBudgetSeconds: 50,
		RetentionDays:             180,
		UserAgent:                 "Test Agent",
		Timezone:                  "UTC",
		Debug:                     true,
		Version:                   "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.OracleProvider != "openai" {
		t.Errorf("Expected oracle provider 'openai', got '%s'", cfg.OracleProvider)
	}
	if cfg.StaleDays != 7 {
		t.Errorf("Expected stale days 7, got %d", cfg.StaleDays)
	}
	if cfg.FetchBatchSize != 5 || cfg.ConcurrentBatches != 3 {
		t.Errorf("Expected batch sizing 5/3, got %d/%d", cfg.FetchBatchSize, cfg.ConcurrentBatches)
	}
	if cfg.TimeBudgetSeconds != 50 {
		t.Errorf("Expected time budget 50, got %d", cfg.TimeBudgetSeconds)
	}
	if cfg.RetentionDays != 180 {
		t.Errorf("Expected retention 180, got %d", cfg.RetentionDays)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}
