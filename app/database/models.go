package database

import (
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

// Podcast is one row of the central cache: the canonical snapshot for an
// upstream identifier plus freshness and usage bookkeeping.
type Podcast struct {
	ID int64 `json:"id"`
	podcast.Snapshot

	LastFetchedAt time.Time `json:"last_fetched_at"`
	FetchCount    int       `json:"fetch_count"`
	CacheHitCount int       `json:"cache_hit_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Annotation is consumer-specific derived data for one (consumer,
// podcast) pair. A nil AnalyzedAt means analysis has never been
// attempted; a set AnalyzedAt with empty payload means analysis was
// attempted but yielded nothing.
type Annotation struct {
	ID         int64  `json:"id"`
	ConsumerID string `json:"consumer_id"`
	PodcastID  int64  `json:"podcast_id"`

	CleanDescription string               `json:"clean_description"`
	FitReasons       []string             `json:"fit_reasons,omitempty"`
	PitchAngles      []podcast.PitchAngle `json:"pitch_angles,omitempty"`
	AnalyzedAt       *time.Time           `json:"analyzed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolution is the partition produced by the cache resolver. Cached
// contains every found row regardless of freshness; Stale names the
// subset of Cached older than the staleness window; Missing names ids
// with no row at all.
type Resolution struct {
	Cached  []Podcast
	Missing []string
	Stale   []string
}

// Fresh returns the upstream ids of cached rows inside the staleness
// window, i.e. the resolver hits whose counters should be bumped.
func (r *Resolution) Fresh() []string {
	stale := make(map[string]struct{}, len(r.Stale))
	for _, id := range r.Stale {
		stale[id] = struct{}{}
	}

	fresh := make([]string, 0, len(r.Cached))
	for _, p := range r.Cached {
		if _, ok := stale[p.UpstreamID]; ok {
			continue
		}
		fresh = append(fresh, p.UpstreamID)
	}

	return fresh
}

// CacheStats is the aggregate view over the whole cache.
type CacheStats struct {
	TotalPodcasts  int        `json:"total_podcasts"`
	TotalFetches   int        `json:"total_fetches"`
	TotalCacheHits int        `json:"total_cache_hits"`
	FreshCount     int        `json:"fresh_count"`
	StaleCount     int        `json:"stale_count"`
	OldestFetchAt  *time.Time `json:"oldest_fetch_at,omitempty"`
	NewestFetchAt  *time.Time `json:"newest_fetch_at,omitempty"`
}
