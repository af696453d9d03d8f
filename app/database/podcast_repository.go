package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

// Chunk size for multi-row upserts. Keeps one statement well under the
// SQLite bind-variable ceiling while avoiding per-row round trips.
const upsertChunkSize = 40

// BatchUpsertError reports a failed batch write. Callers must treat the
// whole batch as unpersisted; UpstreamIDs lists every attempted row so
// the batch can be retried as a unit.
type BatchUpsertError struct {
	UpstreamIDs []string
	Err         error
}

func (e *BatchUpsertError) Error() string {
	return fmt.Sprintf("batch upsert of %d podcasts failed: %v", len(e.UpstreamIDs), e.Err)
}

func (e *BatchUpsertError) Unwrap() error {
	return e.Err
}

// PodcastRepositoryImpl handles database operations for the central
// podcast cache.
type PodcastRepositoryImpl struct {
	db *DB
}

var _ PodcastRepository = (*PodcastRepositoryImpl)(nil)

func NewPodcastRepository(db *DB) *PodcastRepositoryImpl {
	return &PodcastRepositoryImpl{db: db}
}

const podcastColumns = `id, upstream_id, name, description, image_url, podcast_url, publisher,
	hosts, categories, language, region, episode_count, latest_episode_at,
	is_active, has_guests, has_sponsors, ratings, audience_size, reach_score,
	email, website, social_links, rss_url,
	demographics, demographics_episodes, demographics_fetched_at,
	last_fetched_at, fetch_count, cache_hit_count, created_at, updated_at`

// Resolve partitions the requested ids into cached, missing and stale for
// the given staleness window. Every found row is returned in Cached
// regardless of freshness; stale rows are additionally named in Stale so
// callers can schedule re-fetches while still serving the old snapshot.
func (r *PodcastRepositoryImpl) Resolve(ctx context.Context, ids []string, staleDays int) (*Resolution, error) {
	resolution := &Resolution{}
	if len(ids) == 0 {
		return resolution, nil
	}

	cached, err := r.GetByUpstreamIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve podcasts: %w", err)
	}

	found := make(map[string]struct{}, len(cached))
	cutoff := time.Now().UTC().AddDate(0, 0, -staleDays)

	for _, p := range cached {
		found[p.UpstreamID] = struct{}{}
		if p.LastFetchedAt.Before(cutoff) {
			resolution.Stale = append(resolution.Stale, p.UpstreamID)
		}
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			resolution.Missing = append(resolution.Missing, id)
		}
	}

	resolution.Cached = cached
	return resolution, nil
}

// GetByUpstreamID retrieves a single cached podcast, or nil when the
// identifier has never been fetched.
func (r *PodcastRepositoryImpl) GetByUpstreamID(ctx context.Context, upstreamID string) (*Podcast, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+podcastColumns+" FROM podcasts WHERE upstream_id = ?", upstreamID)

	p, err := scanPodcast(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get podcast %s: %w", upstreamID, err)
	}

	return p, nil
}

// GetByUpstreamIDs retrieves every cached row for the given ids. No
// ordering guarantee; callers re-order by their own request order.
func (r *PodcastRepositoryImpl) GetByUpstreamIDs(ctx context.Context, upstreamIDs []string) ([]Podcast, error) {
	if len(upstreamIDs) == 0 {
		return nil, nil
	}

	query := "SELECT " + podcastColumns + " FROM podcasts WHERE upstream_id IN (" +
		placeholders(len(upstreamIDs)) + ")"

	rows, err := r.db.QueryContext(ctx, query, stringArgs(upstreamIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []Podcast
	for rows.Next() {
		p, err := scanPodcast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan podcast row: %w", err)
		}
		podcasts = append(podcasts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating podcast rows: %w", err)
	}

	return podcasts, nil
}

// UpsertPodcast writes one fetched snapshot to the cache and returns the
// row id. On conflict the snapshot fields are overwritten wholesale and
// the store-maintained counters advance; caller input never touches
// fetch_count or cache_hit_count.
func (r *PodcastRepositoryImpl) UpsertPodcast(ctx context.Context, snap podcast.Snapshot) (int64, error) {
	if snap.UpstreamID == "" {
		return 0, fmt.Errorf("snapshot has no upstream id")
	}

	now := time.Now().UTC()

	var id int64
	err := r.db.QueryRowContext(ctx,
		upsertQuery(1)+" RETURNING id",
		snapshotArgs(snap, now)...,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert podcast %s: %w", snap.UpstreamID, err)
	}

	return id, nil
}

// UpsertPodcasts writes a batch of fetched snapshots as a small number of
// multi-row statements. On any error the whole batch must be considered
// unpersisted; the returned BatchUpsertError lists the attempted ids.
func (r *PodcastRepositoryImpl) UpsertPodcasts(ctx context.Context, snaps []podcast.Snapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	attempted := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		if snap.UpstreamID == "" {
			return 0, &BatchUpsertError{UpstreamIDs: attempted, Err: fmt.Errorf("snapshot has no upstream id")}
		}
		attempted = append(attempted, snap.UpstreamID)
	}

	now := time.Now().UTC()

	for offset := 0; offset < len(snaps); offset += upsertChunkSize {
		end := offset + upsertChunkSize
		if end > len(snaps) {
			end = len(snaps)
		}
		chunk := snaps[offset:end]

		args := make([]any, 0, len(chunk)*snapshotArgCount)
		for _, snap := range chunk {
			args = append(args, snapshotArgs(snap, now)...)
		}

		if _, err := r.db.ExecContext(ctx, upsertQuery(len(chunk)), args...); err != nil {
			return 0, &BatchUpsertError{UpstreamIDs: attempted, Err: err}
		}
	}

	return len(snaps), nil
}

// RecordCacheHits bumps cache_hit_count for every given id. Dispatched
// fire-and-forget after a resolver read; failures are logged by the
// caller, never surfaced to the read path.
func (r *PodcastRepositoryImpl) RecordCacheHits(ctx context.Context, upstreamIDs []string) error {
	if len(upstreamIDs) == 0 {
		return nil
	}

	query := "UPDATE podcasts SET cache_hit_count = cache_hit_count + 1 WHERE upstream_id IN (" +
		placeholders(len(upstreamIDs)) + ")"

	if _, err := r.db.ExecContext(ctx, query, stringArgs(upstreamIDs)...); err != nil {
		return fmt.Errorf("failed to record cache hits: %w", err)
	}

	return nil
}

// DeleteOlderThan removes rows whose last successful fetch predates the
// cutoff. Used only by the retention sweep.
func (r *PodcastRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM podcasts WHERE last_fetched_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale podcasts: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted podcasts: %w", err)
	}

	return deleted, nil
}

// GetStats returns the aggregate statistics view over the whole cache.
func (r *PodcastRepositoryImpl) GetStats(ctx context.Context, staleDays int) (*CacheStats, error) {
	stats := &CacheStats{}
	cutoff := time.Now().UTC().AddDate(0, 0, -staleDays)

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(fetch_count), 0),
		       COALESCE(SUM(cache_hit_count), 0),
		       COALESCE(SUM(CASE WHEN last_fetched_at >= ? THEN 1 ELSE 0 END), 0)
		FROM podcasts
	`, cutoff).Scan(&stats.TotalPodcasts, &stats.TotalFetches, &stats.TotalCacheHits, &stats.FreshCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache stats: %w", err)
	}
	stats.StaleCount = stats.TotalPodcasts - stats.FreshCount

	if stats.TotalPodcasts > 0 {
		var oldest, newest time.Time
		err = r.db.QueryRowContext(ctx,
			"SELECT last_fetched_at FROM podcasts ORDER BY last_fetched_at ASC LIMIT 1").Scan(&oldest)
		if err != nil {
			return nil, fmt.Errorf("failed to get oldest fetch time: %w", err)
		}
		err = r.db.QueryRowContext(ctx,
			"SELECT last_fetched_at FROM podcasts ORDER BY last_fetched_at DESC LIMIT 1").Scan(&newest)
		if err != nil {
			return nil, fmt.Errorf("failed to get newest fetch time: %w", err)
		}
		stats.OldestFetchAt = &oldest
		stats.NewestFetchAt = &newest
	}

	return stats, nil
}

const snapshotArgCount = 28

// upsertQuery builds the multi-row upsert for n snapshots. On conflict
// every snapshot field is overwritten (last write wins for the full row);
// demographics survive a fetch that did not include them, since they are
// a separately-fetched payload with their own timestamp.
func upsertQuery(n int) string {
	row := "(" + placeholders(snapshotArgCount) + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = row
	}

	return `
		INSERT INTO podcasts (
			upstream_id, name, description, image_url, podcast_url, publisher,
			hosts, categories, language, region, episode_count, latest_episode_at,
			is_active, has_guests, has_sponsors, ratings, audience_size, reach_score,
			email, website, social_links, rss_url,
			demographics, demographics_episodes, demographics_fetched_at,
			last_fetched_at, created_at, updated_at
		) VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT(upstream_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image_url = excluded.image_url,
			podcast_url = excluded.podcast_url,
			publisher = excluded.publisher,
			hosts = excluded.hosts,
			categories = excluded.categories,
			language = excluded.language,
			region = excluded.region,
			episode_count = excluded.episode_count,
			latest_episode_at = excluded.latest_episode_at,
			is_active = excluded.is_active,
			has_guests = excluded.has_guests,
			has_sponsors = excluded.has_sponsors,
			ratings = excluded.ratings,
			audience_size = excluded.audience_size,
			reach_score = excluded.reach_score,
			email = excluded.email,
			website = excluded.website,
			social_links = excluded.social_links,
			rss_url = excluded.rss_url,
			demographics = COALESCE(excluded.demographics, podcasts.demographics),
			demographics_episodes = MAX(excluded.demographics_episodes, podcasts.demographics_episodes),
			demographics_fetched_at = COALESCE(excluded.demographics_fetched_at, podcasts.demographics_fetched_at),
			last_fetched_at = excluded.last_fetched_at,
			fetch_count = podcasts.fetch_count + 1,
			updated_at = excluded.last_fetched_at`
}

func snapshotArgs(snap podcast.Snapshot, now time.Time) []any {
	var demographics any
	var demographicsEpisodes int
	var demographicsFetchedAt any
	if snap.Demographics != nil {
		demographics = string(marshalJSON(snap.Demographics.Data))
		demographicsEpisodes = snap.Demographics.EpisodesAnalyzed
		if snap.Demographics.FetchedAt != nil {
			demographicsFetchedAt = snap.Demographics.FetchedAt.UTC()
		}
	}

	var latestEpisodeAt any
	if snap.LatestEpisodeAt != nil {
		latestEpisodeAt = snap.LatestEpisodeAt.UTC()
	}

	return []any{
		snap.UpstreamID, snap.Name, snap.Description, snap.ImageURL, snap.PodcastURL, snap.Publisher,
		string(marshalJSON(snap.Hosts)), string(marshalJSON(snap.Categories)),
		snap.Language, snap.Region, snap.EpisodeCount, latestEpisodeAt,
		snap.IsActive, snap.HasGuests, snap.HasSponsors,
		string(marshalJSON(snap.Ratings)), snap.AudienceSize, snap.ReachScore,
		snap.Email, snap.Website, string(marshalJSON(snap.SocialLinks)), snap.RSSURL,
		demographics, demographicsEpisodes, demographicsFetchedAt,
		now, now, now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPodcast(row rowScanner) (*Podcast, error) {
	var p Podcast
	var hosts, categories, ratings, socialLinks string
	var demographics sql.NullString
	var demographicsEpisodes int
	var demographicsFetchedAt, latestEpisodeAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.UpstreamID, &p.Name, &p.Description, &p.ImageURL, &p.PodcastURL, &p.Publisher,
		&hosts, &categories, &p.Language, &p.Region, &p.EpisodeCount, &latestEpisodeAt,
		&p.IsActive, &p.HasGuests, &p.HasSponsors, &ratings, &p.AudienceSize, &p.ReachScore,
		&p.Email, &p.Website, &socialLinks, &p.RSSURL,
		&demographics, &demographicsEpisodes, &demographicsFetchedAt,
		&p.LastFetchedAt, &p.FetchCount, &p.CacheHitCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(hosts), &p.Hosts)
	json.Unmarshal([]byte(categories), &p.Categories)
	json.Unmarshal([]byte(ratings), &p.Ratings)
	json.Unmarshal([]byte(socialLinks), &p.SocialLinks)

	if latestEpisodeAt.Valid {
		t := latestEpisodeAt.Time
		p.LatestEpisodeAt = &t
	}

	if demographics.Valid {
		demo := &podcast.Demographics{
			Data:             json.RawMessage(demographics.String),
			EpisodesAnalyzed: demographicsEpisodes,
		}
		if demographicsFetchedAt.Valid {
			t := demographicsFetchedAt.Time
			demo.FetchedAt = &t
		}
		p.Demographics = demo
	}

	return &p, nil
}

func marshalJSON(v any) []byte {
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return []byte("null")
		}
		return raw
	}
	data, _ := json.Marshal(v)
	return data
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
