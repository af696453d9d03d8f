package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AnnotationRepositoryImpl handles database operations for one consumer
// kind's annotation table. Client and prospect annotations live in
// separate tables but share the same shape, so a single implementation
// is parameterized by kind.
type AnnotationRepositoryImpl struct {
	db    *DB
	kind  ConsumerKind
	table string
}

var _ AnnotationRepository = (*AnnotationRepositoryImpl)(nil)

func NewAnnotationRepository(db *DB, kind ConsumerKind) (*AnnotationRepositoryImpl, error) {
	var table string
	switch kind {
	case ConsumerKindClient:
		table = "client_annotations"
	case ConsumerKindProspect:
		table = "prospect_annotations"
	default:
		return nil, fmt.Errorf("unknown consumer kind: %s", kind)
	}

	return &AnnotationRepositoryImpl{db: db, kind: kind, table: table}, nil
}

func (r *AnnotationRepositoryImpl) Kind() ConsumerKind {
	return r.kind
}

const annotationColumns = `id, consumer_id, podcast_id, clean_description, fit_reasons, pitch_angles, analyzed_at, created_at, updated_at`

// Get retrieves the annotation for one (consumer, podcast) pair, or nil
// when none exists.
func (r *AnnotationRepositoryImpl) Get(ctx context.Context, consumerID string, podcastID int64) (*Annotation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+annotationColumns+" FROM "+r.table+" WHERE consumer_id = ? AND podcast_id = ?",
		consumerID, podcastID)

	a, err := scanAnnotation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}

	return a, nil
}

// GetForPodcasts retrieves all annotations a consumer has for the given
// podcast rows, keyed by podcast id.
func (r *AnnotationRepositoryImpl) GetForPodcasts(ctx context.Context, consumerID string, podcastIDs []int64) (map[int64]Annotation, error) {
	annotations := make(map[int64]Annotation, len(podcastIDs))
	if len(podcastIDs) == 0 {
		return annotations, nil
	}

	args := make([]any, 0, len(podcastIDs)+1)
	args = append(args, consumerID)
	for _, id := range podcastIDs {
		args = append(args, id)
	}

	query := "SELECT " + annotationColumns + " FROM " + r.table +
		" WHERE consumer_id = ? AND podcast_id IN (" + placeholders(len(podcastIDs)) + ")"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get annotations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation row: %w", err)
		}
		annotations[a.PodcastID] = *a
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotation rows: %w", err)
	}

	return annotations, nil
}

// NeedsAnalysis reports whether analysis should run for the pair: true
// when no annotation exists or the existing one was never analyzed. A set
// analyzed_at suppresses re-analysis even when the payload is empty.
func (r *AnnotationRepositoryImpl) NeedsAnalysis(ctx context.Context, consumerID string, podcastID int64) (bool, error) {
	var analyzedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		"SELECT analyzed_at FROM "+r.table+" WHERE consumer_id = ? AND podcast_id = ?",
		consumerID, podcastID).Scan(&analyzedAt)

	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check analysis status: %w", err)
	}

	return !analyzedAt.Valid, nil
}

// Upsert writes the annotation for a pair, overwriting any previous
// payload.
func (r *AnnotationRepositoryImpl) Upsert(ctx context.Context, a Annotation) error {
	now := time.Now().UTC()

	var analyzedAt any
	if a.AnalyzedAt != nil {
		analyzedAt = a.AnalyzedAt.UTC()
	}

	var fitReasons, pitchAngles any
	if a.FitReasons != nil {
		fitReasons = string(marshalJSON(a.FitReasons))
	}
	if a.PitchAngles != nil {
		pitchAngles = string(marshalJSON(a.PitchAngles))
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (consumer_id, podcast_id, clean_description, fit_reasons, pitch_angles, analyzed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(consumer_id, podcast_id) DO UPDATE SET
			clean_description = excluded.clean_description,
			fit_reasons = excluded.fit_reasons,
			pitch_angles = excluded.pitch_angles,
			analyzed_at = excluded.analyzed_at,
			updated_at = excluded.updated_at
	`, a.ConsumerID, a.PodcastID, nullableString(a.CleanDescription), fitReasons, pitchAngles, analyzedAt, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert annotation: %w", err)
	}

	return nil
}

// ClearAnalysis resets analyzed_at and the payload so the pair becomes
// eligible for analysis again. This is the manual escape hatch for pairs
// marked attempted after an oracle outage.
func (r *AnnotationRepositoryImpl) ClearAnalysis(ctx context.Context, consumerID string, podcastID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE `+r.table+`
		SET clean_description = NULL, fit_reasons = NULL, pitch_angles = NULL, analyzed_at = NULL, updated_at = ?
		WHERE consumer_id = ? AND podcast_id = ?
	`, time.Now().UTC(), consumerID, podcastID)

	if err != nil {
		return fmt.Errorf("failed to clear analysis: %w", err)
	}

	return nil
}

// DeleteMissing removes every annotation of the consumer whose podcast no
// longer appears in the current requested set. The external range is the
// consumer's editable source of truth for relevance.
func (r *AnnotationRepositoryImpl) DeleteMissing(ctx context.Context, consumerID string, keepPodcastIDs []int64) (int64, error) {
	query := "DELETE FROM " + r.table + " WHERE consumer_id = ?"
	args := []any{consumerID}

	if len(keepPodcastIDs) > 0 {
		query += " AND podcast_id NOT IN (" + placeholders(len(keepPodcastIDs)) + ")"
		for _, id := range keepPodcastIDs {
			args = append(args, id)
		}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale annotations: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted annotations: %w", err)
	}

	return deleted, nil
}

func scanAnnotation(row rowScanner) (*Annotation, error) {
	var a Annotation
	var cleanDescription, fitReasons, pitchAngles sql.NullString
	var analyzedAt sql.NullTime

	err := row.Scan(&a.ID, &a.ConsumerID, &a.PodcastID,
		&cleanDescription, &fitReasons, &pitchAngles, &analyzedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.CleanDescription = cleanDescription.String
	if fitReasons.Valid {
		json.Unmarshal([]byte(fitReasons.String), &a.FitReasons)
	}
	if pitchAngles.Valid {
		json.Unmarshal([]byte(pitchAngles.String), &a.PitchAngles)
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		a.AnalyzedAt = &t
	}

	return &a, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
