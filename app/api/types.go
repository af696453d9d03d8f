package api

import (
	"context"

	"github.com/podmatch/podcache/app/config"
	"github.com/podmatch/podcache/app/database"
	"github.com/podmatch/podcache/app/directory"
	"github.com/podmatch/podcache/app/orchestrator"
)

// EngineInterface is the slice of the orchestration engine the handlers
// need. Kept as an interface so handler tests can run against a fake.
type EngineInterface interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

var _ EngineInterface = (*orchestrator.Engine)(nil)

// SheetReader reads identifier ranges from a spreadsheet backend.
type SheetReader interface {
	ReadRange(ctx context.Context, spreadsheetID, cellRange string) ([][]string, error)
}

// DirectorySearcher runs search queries against the upstream directory.
type DirectorySearcher interface {
	Search(ctx context.Context, query string, page int) (*directory.SearchResult, error)
}

type Handler struct {
	engine      EngineInterface
	podcastRepo database.PodcastRepository
	annotations map[database.ConsumerKind]database.AnnotationRepository
	sheets      SheetReader
	searcher    DirectorySearcher
	sources     *config.SourceCache
	staleDays   int
}

// campaignRequest is the body of the campaign resolution endpoints.
// Either RangeSource names a configured source, or SpreadsheetID and
// Range point at a sheet directly.
type campaignRequest struct {
	RangeSource   string `json:"rangeSourceId"`
	SpreadsheetID string `json:"spreadsheetId"`
	Range         string `json:"range"`
	IDColumn      int    `json:"idColumn"`
	SkipHeader    bool   `json:"skipHeader"`

	// ConsumerID is read from the URL for client and prospect
	// campaigns; outreach runs may carry one here to get annotations.
	ConsumerID   string `json:"consumerId"`
	ConsumerName string `json:"consumerName"`
	ConsumerBio  string `json:"consumerBio"`

	CacheOnly           bool `json:"cacheOnly"`
	SkipAIAnalysis      bool `json:"skipAiAnalysis"`
	AIAnalysisOnly      bool `json:"aiAnalysisOnly"`
	CheckStatusOnly     bool `json:"checkStatusOnly"`
	StaleDays           int  `json:"staleDays"`
	IncludeDemographics bool `json:"includeDemographics"`
}

type campaignResponse struct {
	Success      bool                       `json:"success"`
	Podcasts     []orchestrator.PodcastView `json:"podcasts"`
	Total        int                        `json:"total"`
	Cached       int                        `json:"cached"`
	Fetched      int                        `json:"fetched"`
	StoppedEarly bool                       `json:"stoppedEarly"`
	Remaining    []string                   `json:"remaining"`
	Stats        orchestrator.Stats         `json:"stats"`
}
