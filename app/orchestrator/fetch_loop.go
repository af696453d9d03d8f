package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/podmatch/podcache/app/database"
	"github.com/podmatch/podcache/app/podcast"
)

// runFetch pulls missing identifiers from the upstream directory in
// concurrent waves, then persists everything in one batch
// write. The loop stops when the wall clock budget runs out; whatever
// was not reached lands in result.Remaining and the run is flagged
// stoppedEarly so the caller knows to re-invoke.
func (e *Engine) runFetch(ctx context.Context, req Request, toFetch []string, rows map[string]database.Podcast, result *Result) {
	if len(toFetch) == 0 {
		return
	}

	deadline := e.now().Add(e.opts.FetchBudget)

	batches := chunkIDs(toFetch, e.opts.BatchSize)

	var mu sync.Mutex
	snapshots := make([]podcast.Snapshot, 0, len(toFetch))

	next := 0
	for next < len(batches) {
		if e.now().After(deadline) || ctx.Err() != nil {
			result.StoppedEarly = true
			break
		}

		wave := batches[next:min(next+e.opts.ConcurrentBatches, len(batches))]
		next += len(wave)

		var wg sync.WaitGroup
		for _, batch := range wave {
			wg.Add(1)
			go func(ids []string) {
				defer wg.Done()
				for _, id := range ids {
					snap, err := e.fetchOne(ctx, req, id)
					if err != nil {
						slog.Warn("Failed to fetch podcast", "upstream_id", id, "error", err)
						mu.Lock()
						result.Remaining = append(result.Remaining, id)
						mu.Unlock()
						continue
					}
					mu.Lock()
					snapshots = append(snapshots, *snap)
					mu.Unlock()
				}
			}(batch)
		}
		wg.Wait()
	}

	// Identifiers the budget never reached.
	for _, batch := range batches[next:] {
		result.Remaining = append(result.Remaining, batch...)
	}

	if len(snapshots) == 0 {
		return
	}

	if _, err := e.podcastRepo.UpsertPodcasts(ctx, snapshots); err != nil {
		slog.Error("Failed to persist fetched podcasts", "count", len(snapshots), "error", err)
		result.Stats.SaveFailed += len(snapshots)
		for _, snap := range snapshots {
			result.Remaining = append(result.Remaining, snap.UpstreamID)
		}
		return
	}

	storedIDs := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		storedIDs = append(storedIDs, snap.UpstreamID)
	}

	stored, err := e.podcastRepo.GetByUpstreamIDs(ctx, storedIDs)
	if err != nil {
		slog.Error("Failed to reload persisted podcasts", "count", len(storedIDs), "error", err)
		result.Stats.SaveFailed += len(storedIDs)
		result.Remaining = append(result.Remaining, storedIDs...)
		return
	}

	for _, p := range stored {
		rows[p.UpstreamID] = p
	}
	result.Fetched = len(stored)
}

// fetchOne gets a single podcast from the directory and applies the
// optional enrichments. Enrichment failures degrade; the snapshot is
// still usable without them.
func (e *Engine) fetchOne(ctx context.Context, req Request, upstreamID string) (*podcast.Snapshot, error) {
	snap, err := e.directory.GetPodcast(ctx, upstreamID)
	if err != nil {
		return nil, err
	}

	if req.IncludeDemographics {
		demographics, err := e.directory.GetDemographics(ctx, upstreamID)
		if err != nil {
			slog.Debug("Failed to fetch demographics", "upstream_id", upstreamID, "error", err)
		} else {
			snap.Demographics = demographics
		}
	}

	if e.opts.EnrichRSS && e.enricher != nil {
		if err := e.enricher.EnrichFromRSS(ctx, snap); err != nil {
			slog.Debug("Failed to enrich from RSS", "upstream_id", upstreamID, "error", err)
		}
	}

	return snap, nil
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		chunks = append(chunks, ids[start:min(start+size, len(ids))])
	}
	return chunks
}
