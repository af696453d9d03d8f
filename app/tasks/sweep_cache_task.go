package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/podmatch/podcache/app/database"
)

// SweepCacheTask deletes podcasts whose last fetch is older than the
// retention window. Annotations go with them through the foreign key
// cascade.
type SweepCacheTask struct {
	Task
	retentionDays int
	podcastRepo   database.PodcastRepository
}

func NewSweepCacheTask(retentionDays int, podcastRepo database.PodcastRepository) *SweepCacheTask {
	return &SweepCacheTask{
		Task:          NewTask(TaskTypeSweepCache, "cache"),
		retentionDays: retentionDays,
		podcastRepo:   podcastRepo,
	}
}

func (t *SweepCacheTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -t.retentionDays)

	deleted, err := t.podcastRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to sweep cache: %w", err)
	}

	if deleted > 0 {
		slog.Info("Task completed",
			"type", "SweepCache",
			"duration", t.GetDuration(),
			"deleted", deleted,
			"cutoff", cutoff)
	}

	return nil
}
