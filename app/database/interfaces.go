package database

import (
	"context"
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

// ConsumerKind selects which annotation table a repository operates on.
// Annotations are never shared across kinds or consumers even though the
// underlying podcast snapshot is.
type ConsumerKind string

const (
	ConsumerKindClient   ConsumerKind = "client"
	ConsumerKindProspect ConsumerKind = "prospect"
)

type PodcastRepository interface {
	Resolve(ctx context.Context, ids []string, staleDays int) (*Resolution, error)
	GetByUpstreamID(ctx context.Context, upstreamID string) (*Podcast, error)
	GetByUpstreamIDs(ctx context.Context, upstreamIDs []string) ([]Podcast, error)

	UpsertPodcast(ctx context.Context, snap podcast.Snapshot) (int64, error)
	UpsertPodcasts(ctx context.Context, snaps []podcast.Snapshot) (int, error)

	RecordCacheHits(ctx context.Context, upstreamIDs []string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	GetStats(ctx context.Context, staleDays int) (*CacheStats, error)
}

type AnnotationRepository interface {
	Kind() ConsumerKind

	Get(ctx context.Context, consumerID string, podcastID int64) (*Annotation, error)
	GetForPodcasts(ctx context.Context, consumerID string, podcastIDs []int64) (map[int64]Annotation, error)
	NeedsAnalysis(ctx context.Context, consumerID string, podcastID int64) (bool, error)

	Upsert(ctx context.Context, a Annotation) error
	ClearAnalysis(ctx context.Context, consumerID string, podcastID int64) error
	DeleteMissing(ctx context.Context, consumerID string, keepPodcastIDs []int64) (int64, error)
}
