package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/podmatch/podcache/app/database"
	"github.com/podmatch/podcache/app/podcast"
)

// Scorer produces a fit verdict for one consumer/podcast pair.
type Scorer interface {
	Configured() bool
	Score(ctx context.Context, consumerName, consumerBio string, snap *podcast.Snapshot, siteContent string) (*Verdict, error)
}

// Analyzer runs the oracle against consumer/podcast pairs and persists
// the outcome as per-consumer annotations. A failed oracle call still
// stamps analyzed_at so the pair is not retried on every request;
// ClearAnalysis is the escape hatch for re-running a pair.
type Analyzer struct {
	scorer        Scorer
	extractor     *podcast.SiteContentExtractor
	httpClient    *http.Client
	enrichWebsite bool
	now           func() time.Time
}

func NewAnalyzer(scorer Scorer, enrichWebsite bool) *Analyzer {
	return &Analyzer{
		scorer:        scorer,
		extractor:     podcast.NewSiteContentExtractor(),
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		enrichWebsite: enrichWebsite,
		now:           time.Now,
	}
}

// Configured reports whether the underlying scorer can be called.
func (a *Analyzer) Configured() bool {
	return a.scorer.Configured()
}

// AnalyzePair scores one pair and upserts the annotation. Returns true
// when the oracle produced a usable verdict, false when the attempt was
// recorded without a payload.
func (a *Analyzer) AnalyzePair(ctx context.Context, repo database.AnnotationRepository, consumerID, consumerName, consumerBio string, pod *database.Podcast) (bool, error) {
	siteContent := a.fetchSiteContent(ctx, pod.Website)

	verdict, err := a.scorer.Score(ctx, consumerName, consumerBio, &pod.Snapshot, siteContent)

	now := a.now().UTC()
	annotation := database.Annotation{
		ConsumerID: consumerID,
		PodcastID:  pod.ID,
		AnalyzedAt: &now,
	}

	if err != nil {
		slog.Warn("Podcast analysis failed", "consumer_id", consumerID, "upstream_id", pod.UpstreamID, "error", err)
		if upsertErr := repo.Upsert(ctx, annotation); upsertErr != nil {
			return false, fmt.Errorf("failed to record analysis attempt: %w", upsertErr)
		}
		return false, err
	}

	annotation.CleanDescription = verdict.CleanDescription
	annotation.FitReasons = verdict.FitReasons
	annotation.PitchAngles = verdict.PitchAngles

	if err := repo.Upsert(ctx, annotation); err != nil {
		return false, fmt.Errorf("failed to save annotation: %w", err)
	}

	slog.Debug("Analyzed podcast", "consumer_id", consumerID, "upstream_id", pod.UpstreamID, "fit_reasons", len(verdict.FitReasons))
	return true, nil
}

// fetchSiteContent downloads the podcast website and reduces it to
// readable text for the prompt. Any failure degrades to an empty string;
// the oracle still runs on the snapshot alone.
func (a *Analyzer) fetchSiteContent(ctx context.Context, websiteURL string) string {
	if !a.enrichWebsite || websiteURL == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, "GET", websiteURL, nil)
	if err != nil {
		return ""
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		slog.Debug("Failed to fetch podcast website", "url", websiteURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}

	content, err := a.extractor.Run(data)
	if err != nil {
		slog.Debug("Failed to extract website content", "url", websiteURL, "error", err)
		return ""
	}

	return content
}
