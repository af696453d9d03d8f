package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/podmatch/podcache/app/database"
)

// RecordHitsTask increments cache_hit_count for a batch of podcasts
// that were served from cache. Counters are best effort; a request
// never waits on or fails because of this task.
type RecordHitsTask struct {
	Task
	UpstreamIDs []string
	podcastRepo database.PodcastRepository
}

func NewRecordHitsTask(upstreamIDs []string, podcastRepo database.PodcastRepository) *RecordHitsTask {
	subject := ""
	if len(upstreamIDs) > 0 {
		subject = upstreamIDs[0]
	}

	return &RecordHitsTask{
		Task:        NewTask(TaskTypeRecordHits, subject),
		UpstreamIDs: upstreamIDs,
		podcastRepo: podcastRepo,
	}
}

func (t *RecordHitsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if len(t.UpstreamIDs) == 0 {
		return nil
	}

	if err := t.podcastRepo.RecordCacheHits(ctx, t.UpstreamIDs); err != nil {
		return fmt.Errorf("failed to record cache hits: %w", err)
	}

	slog.Debug("Task completed",
		"type", "RecordHits",
		"duration", t.GetDuration(),
		"podcasts", len(t.UpstreamIDs))

	return nil
}
