package orchestrator

import (
	"time"

	"github.com/podmatch/podcache/app/database"
)

// Request describes one campaign resolution run. Kind selects the
// annotation table; an empty Kind is an outreach run and carries no
// per-consumer annotations at all.
type Request struct {
	Kind         database.ConsumerKind
	ConsumerID   string
	ConsumerName string
	ConsumerBio  string
	UpstreamIDs  []string

	// Mode flags. CheckStatusOnly wins over everything else;
	// AIAnalysisOnly and CacheOnly are mutually exclusive.
	CheckStatusOnly bool
	CacheOnly       bool
	AIAnalysisOnly  bool
	SkipAIAnalysis  bool

	// StaleDays overrides the configured staleness window when > 0.
	StaleDays           int
	IncludeDemographics bool
}

// PodcastView pairs a cached podcast with the requesting consumer's
// annotation, when one exists.
type PodcastView struct {
	database.Podcast
	Annotation *database.Annotation `json:"annotation,omitempty"`
}

// Stats summarizes what one run did.
type Stats struct {
	Resolved       int   `json:"resolved"`
	Hits           int   `json:"hits"`
	Stale          int   `json:"stale"`
	Analyzed       int   `json:"analyzed"`
	AnalysisFailed int   `json:"analysisFailed"`
	SaveFailed     int   `json:"saveFailed"`
	ElapsedMs      int64 `json:"elapsedMs"`
}

// Result is the outcome of one run. Podcasts preserves the input
// identifier order; identifiers that could not be served this run are
// listed in Remaining and can be retried by re-invoking with the same
// input.
type Result struct {
	Podcasts     []PodcastView `json:"podcasts"`
	Total        int           `json:"total"`
	Cached       int           `json:"cached"`
	Fetched      int           `json:"fetched"`
	StoppedEarly bool          `json:"stoppedEarly"`
	Remaining    []string      `json:"remaining,omitempty"`
	Stats        Stats         `json:"stats"`
}

// Options carries the tuning knobs for the engine.
type Options struct {
	StaleDays         int
	BatchSize         int
	ConcurrentBatches int
	FetchBudget       time.Duration
	AnalysisBudget    time.Duration
	EnrichRSS         bool
}

func (o Options) withDefaults() Options {
	if o.StaleDays <= 0 {
		o.StaleDays = 7
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.ConcurrentBatches <= 0 {
		o.ConcurrentBatches = 3
	}
	if o.FetchBudget <= 0 {
		o.FetchBudget = 50 * time.Second
	}
	if o.AnalysisBudget <= 0 {
		o.AnalysisBudget = 50 * time.Second
	}
	return o
}
