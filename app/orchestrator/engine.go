package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/podmatch/podcache/app/database"
	"github.com/podmatch/podcache/app/podcast"
	"github.com/podmatch/podcache/app/tasks"
)

// Directory is the slice of the upstream directory client the engine
// needs.
type Directory interface {
	Configured() bool
	GetPodcast(ctx context.Context, upstreamID string) (*podcast.Snapshot, error)
	GetDemographics(ctx context.Context, upstreamID string) (*podcast.Demographics, error)
}

// Analyzer scores consumer/podcast pairs and persists annotations.
type Analyzer interface {
	Configured() bool
	AnalyzePair(ctx context.Context, repo database.AnnotationRepository, consumerID, consumerName, consumerBio string, pod *database.Podcast) (bool, error)
}

// Engine runs campaign resolutions: partition identifiers against the
// cache, fetch what is missing inside a wall clock budget, garbage
// collect and refresh per-consumer annotations, and hand back podcasts
// in the input order. Stale rows are served as-is and only reported;
// refreshing them is a separate concern.
type Engine struct {
	podcastRepo database.PodcastRepository
	directory   Directory
	analyzer    Analyzer
	annotations map[database.ConsumerKind]database.AnnotationRepository
	scheduler   tasks.TaskSchedulerInterface
	enricher    *podcast.Enricher
	opts        Options
	now         func() time.Time
}

func NewEngine(podcastRepo database.PodcastRepository, directory Directory, analyzer Analyzer,
	annotations map[database.ConsumerKind]database.AnnotationRepository,
	scheduler tasks.TaskSchedulerInterface, enricher *podcast.Enricher, opts Options) *Engine {
	return &Engine{
		podcastRepo: podcastRepo,
		directory:   directory,
		analyzer:    analyzer,
		annotations: annotations,
		scheduler:   scheduler,
		enricher:    enricher,
		opts:        opts.withDefaults(),
		now:         time.Now,
	}
}

// Run executes one campaign resolution.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	started := e.now()

	if err := e.validate(req); err != nil {
		return nil, err
	}

	ids := podcast.DedupeIdentifiers(req.UpstreamIDs)
	staleDays := req.StaleDays
	if staleDays <= 0 {
		staleDays = e.opts.StaleDays
	}

	resolution, err := e.podcastRepo.Resolve(ctx, ids, staleDays)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache: %w", err)
	}

	result := &Result{
		Total:  len(ids),
		Cached: len(resolution.Cached),
		Stats: Stats{
			Resolved: len(ids),
			Stale:    len(resolution.Stale),
		},
	}

	if req.CheckStatusOnly {
		e.finishStatusOnly(ctx, req, resolution, result, ids)
		result.Stats.ElapsedMs = e.now().Sub(started).Milliseconds()
		return result, nil
	}

	rows := make(map[string]database.Podcast, len(ids))
	for _, p := range resolution.Cached {
		rows[p.UpstreamID] = p
	}

	hitIDs := resolution.Fresh()
	if req.AIAnalysisOnly {
		// Analysis-only runs serve every cached row, stale or not.
		hitIDs = make([]string, 0, len(resolution.Cached))
		for _, p := range resolution.Cached {
			hitIDs = append(hitIDs, p.UpstreamID)
		}
	}
	e.recordHits(hitIDs)
	result.Stats.Hits = len(hitIDs)

	if !req.AIAnalysisOnly && !req.CacheOnly {
		e.runFetch(ctx, req, resolution.Missing, rows, result)
	}

	// Assemble views in input order. Identifiers with no cached row at
	// this point were not served this run.
	views := make([]PodcastView, 0, len(ids))
	seen := make(map[string]bool, len(result.Remaining))
	for _, id := range result.Remaining {
		seen[id] = true
	}
	for _, id := range ids {
		row, ok := rows[id]
		if !ok {
			if !seen[id] {
				seen[id] = true
				result.Remaining = append(result.Remaining, id)
			}
			continue
		}
		views = append(views, PodcastView{Podcast: row})
	}

	if req.Kind != "" {
		if err := e.maintainAnnotations(ctx, req, views, result); err != nil {
			return nil, err
		}
	}

	result.Podcasts = views
	result.Stats.ElapsedMs = e.now().Sub(started).Milliseconds()

	slog.Info("Campaign resolution completed",
		"kind", string(req.Kind),
		"consumer_id", req.ConsumerID,
		"total", result.Total,
		"cached", result.Cached,
		"fetched", result.Fetched,
		"stopped_early", result.StoppedEarly,
		"remaining", len(result.Remaining),
		"analyzed", result.Stats.Analyzed)

	return result, nil
}

func (e *Engine) validate(req Request) error {
	if req.AIAnalysisOnly && req.CacheOnly {
		return fmt.Errorf("aiAnalysisOnly and cacheOnly are mutually exclusive")
	}
	if req.Kind != "" {
		if _, ok := e.annotations[req.Kind]; !ok {
			return fmt.Errorf("unknown consumer kind: %s", req.Kind)
		}
		if req.ConsumerID == "" {
			return fmt.Errorf("consumer ID is required")
		}
	}
	if req.AIAnalysisOnly && req.Kind == "" {
		return fmt.Errorf("aiAnalysisOnly requires a consumer kind")
	}

	needsFetch := !req.CheckStatusOnly && !req.AIAnalysisOnly && !req.CacheOnly
	if needsFetch && !e.directory.Configured() {
		return fmt.Errorf("podcast directory API key is not configured")
	}

	needsAnalysis := req.Kind != "" && !req.CheckStatusOnly && !req.CacheOnly && !req.SkipAIAnalysis
	if needsAnalysis && !e.analyzer.Configured() {
		return fmt.Errorf("analysis oracle API key is not configured")
	}

	return nil
}

// finishStatusOnly reports the cache partition without touching the
// upstream, the hit counters, or the annotation tables.
func (e *Engine) finishStatusOnly(ctx context.Context, req Request, resolution *database.Resolution, result *Result, ids []string) {
	views := make([]PodcastView, 0, len(resolution.Cached))
	rows := make(map[string]database.Podcast, len(resolution.Cached))
	for _, p := range resolution.Cached {
		rows[p.UpstreamID] = p
	}
	for _, id := range ids {
		if row, ok := rows[id]; ok {
			views = append(views, PodcastView{Podcast: row})
		}
	}

	if req.Kind != "" {
		if repo, ok := e.annotations[req.Kind]; ok && req.ConsumerID != "" {
			e.attachAnnotations(ctx, repo, req.ConsumerID, views)
		}
	}

	result.Podcasts = views
	result.Remaining = append(result.Remaining, resolution.Missing...)
}

// recordHits hands hit counting to the background workers so the
// request never blocks on counter writes.
func (e *Engine) recordHits(upstreamIDs []string) {
	if len(upstreamIDs) == 0 || e.scheduler == nil {
		return
	}
	task := tasks.NewRecordHitsTask(upstreamIDs, e.podcastRepo)
	if err := e.scheduler.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue RecordHitsTask", "podcasts", len(upstreamIDs), "error", err)
	}
}

// maintainAnnotations garbage collects annotations for identifiers no
// longer in the campaign, runs the analysis loop, and attaches the
// consumer's annotations to the served podcasts.
func (e *Engine) maintainAnnotations(ctx context.Context, req Request, views []PodcastView, result *Result) error {
	repo := e.annotations[req.Kind]

	keep := make([]int64, 0, len(views))
	for _, v := range views {
		keep = append(keep, v.ID)
	}
	if deleted, err := repo.DeleteMissing(ctx, req.ConsumerID, keep); err != nil {
		slog.Warn("Failed to garbage collect annotations", "kind", string(req.Kind), "consumer_id", req.ConsumerID, "error", err)
	} else if deleted > 0 {
		slog.Debug("Garbage collected annotations", "kind", string(req.Kind), "consumer_id", req.ConsumerID, "deleted", deleted)
	}

	if !req.CacheOnly && !req.SkipAIAnalysis {
		if err := e.runAnalysis(ctx, req, repo, views, result); err != nil {
			return err
		}
	}

	e.attachAnnotations(ctx, repo, req.ConsumerID, views)
	return nil
}

// runAnalysis scores pairs that have never been analyzed, inside its
// own wall clock budget. Pairs left over when the budget runs out are
// reported in Remaining and picked up by the next invocation.
func (e *Engine) runAnalysis(ctx context.Context, req Request, repo database.AnnotationRepository, views []PodcastView, result *Result) error {
	podcastIDs := make([]int64, 0, len(views))
	for _, v := range views {
		podcastIDs = append(podcastIDs, v.ID)
	}

	existing, err := repo.GetForPodcasts(ctx, req.ConsumerID, podcastIDs)
	if err != nil {
		return fmt.Errorf("failed to load annotations: %w", err)
	}

	deadline := e.now().Add(e.opts.AnalysisBudget)

	for i := range views {
		if ann, ok := existing[views[i].ID]; ok && ann.AnalyzedAt != nil {
			continue
		}

		if e.now().After(deadline) || ctx.Err() != nil {
			result.StoppedEarly = true
			// Pairs the budget never reached; the caller re-invokes
			// with the same input to pick them up.
			for j := i; j < len(views); j++ {
				if ann, ok := existing[views[j].ID]; ok && ann.AnalyzedAt != nil {
					continue
				}
				result.Remaining = append(result.Remaining, views[j].UpstreamID)
			}
			break
		}

		ok, err := e.analyzer.AnalyzePair(ctx, repo, req.ConsumerID, req.ConsumerName, req.ConsumerBio, &views[i].Podcast)
		if ok {
			result.Stats.Analyzed++
		} else {
			result.Stats.AnalysisFailed++
			if err != nil {
				slog.Debug("Analysis pair failed", "consumer_id", req.ConsumerID, "upstream_id", views[i].UpstreamID, "error", err)
			}
		}
	}

	return nil
}

func (e *Engine) attachAnnotations(ctx context.Context, repo database.AnnotationRepository, consumerID string, views []PodcastView) {
	if len(views) == 0 {
		return
	}

	podcastIDs := make([]int64, 0, len(views))
	for _, v := range views {
		podcastIDs = append(podcastIDs, v.ID)
	}

	annotations, err := repo.GetForPodcasts(ctx, consumerID, podcastIDs)
	if err != nil {
		slog.Warn("Failed to attach annotations", "consumer_id", consumerID, "error", err)
		return
	}

	for i := range views {
		if ann, ok := annotations[views[i].ID]; ok {
			a := ann
			views[i].Annotation = &a
		}
	}
}
