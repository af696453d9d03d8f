package database

import (
	"context"
	"testing"
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

func newTestAnnotationRepo(t *testing.T, db *DB, kind ConsumerKind) *AnnotationRepositoryImpl {
	t.Helper()

	repo, err := NewAnnotationRepository(db, kind)
	if err != nil {
		t.Fatalf("Failed to create annotation repository: %v", err)
	}
	return repo
}

func TestNewAnnotationRepositoryRejectsUnknownKind(t *testing.T) {
	db := openTestDB(t)

	if _, err := NewAnnotationRepository(db, "vendor"); err == nil {
		t.Error("Expected error for unknown consumer kind")
	}
}

func TestNeedsAnalysisLifecycle(t *testing.T) {
	db := openTestDB(t)
	podcasts := NewPodcastRepository(db)
	repo := newTestAnnotationRepo(t, db, ConsumerKindClient)
	ctx := context.Background()

	podcastID, err := podcasts.UpsertPodcast(ctx, testSnapshot("p1"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	needs, err := repo.NeedsAnalysis(ctx, "client-1", podcastID)
	if err != nil {
		t.Fatalf("NeedsAnalysis failed: %v", err)
	}
	if !needs {
		t.Error("Expected analysis needed for unseen pair")
	}

	// Attempt recorded without a payload still counts as analyzed.
	now := time.Now().UTC()
	err = repo.Upsert(ctx, Annotation{ConsumerID: "client-1", PodcastID: podcastID, AnalyzedAt: &now})
	if err != nil {
		t.Fatalf("Upsert annotation failed: %v", err)
	}

	needs, err = repo.NeedsAnalysis(ctx, "client-1", podcastID)
	if err != nil {
		t.Fatalf("NeedsAnalysis failed: %v", err)
	}
	if needs {
		t.Error("Expected no analysis needed after attempt was recorded")
	}

	if err := repo.ClearAnalysis(ctx, "client-1", podcastID); err != nil {
		t.Fatalf("ClearAnalysis failed: %v", err)
	}

	needs, err = repo.NeedsAnalysis(ctx, "client-1", podcastID)
	if err != nil {
		t.Fatalf("NeedsAnalysis failed: %v", err)
	}
	if !needs {
		t.Error("Expected analysis needed again after clear")
	}
}

func TestAnnotationUpsertAndGet(t *testing.T) {
	db := openTestDB(t)
	podcasts := NewPodcastRepository(db)
	repo := newTestAnnotationRepo(t, db, ConsumerKindProspect)
	ctx := context.Background()

	podcastID, err := podcasts.UpsertPodcast(ctx, testSnapshot("p1"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	now := time.Now().UTC()
	annotation := Annotation{
		ConsumerID:       "prospect-7",
		PodcastID:        podcastID,
		CleanDescription: "A clean description",
		FitReasons:       []string{"audience overlap", "topic match"},
		PitchAngles:      []podcast.PitchAngle{{Title: "Angle", Description: "Pitch it"}},
		AnalyzedAt:       &now,
	}
	if err := repo.Upsert(ctx, annotation); err != nil {
		t.Fatalf("Upsert annotation failed: %v", err)
	}

	got, err := repo.Get(ctx, "prospect-7", podcastID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected annotation, got nil")
	}
	if got.CleanDescription != "A clean description" {
		t.Errorf("Expected clean description, got '%s'", got.CleanDescription)
	}
	if len(got.FitReasons) != 2 {
		t.Errorf("Expected 2 fit reasons, got %d", len(got.FitReasons))
	}
	if len(got.PitchAngles) != 1 || got.PitchAngles[0].Title != "Angle" {
		t.Errorf("Expected pitch angle 'Angle', got %v", got.PitchAngles)
	}
	if got.AnalyzedAt == nil {
		t.Error("Expected analyzed_at to be set")
	}

	// Re-upsert replaces the payload for the same pair.
	annotation.CleanDescription = "Updated"
	if err := repo.Upsert(ctx, annotation); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	byPodcast, err := repo.GetForPodcasts(ctx, "prospect-7", []int64{podcastID})
	if err != nil {
		t.Fatalf("GetForPodcasts failed: %v", err)
	}
	if len(byPodcast) != 1 {
		t.Fatalf("Expected 1 annotation, got %d", len(byPodcast))
	}
	if byPodcast[podcastID].CleanDescription != "Updated" {
		t.Errorf("Expected updated description, got '%s'", byPodcast[podcastID].CleanDescription)
	}
}

func TestAnnotationsIsolatedPerConsumer(t *testing.T) {
	db := openTestDB(t)
	podcasts := NewPodcastRepository(db)
	repo := newTestAnnotationRepo(t, db, ConsumerKindClient)
	ctx := context.Background()

	podcastID, err := podcasts.UpsertPodcast(ctx, testSnapshot("p1"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	now := time.Now().UTC()
	if err := repo.Upsert(ctx, Annotation{ConsumerID: "client-1", PodcastID: podcastID, AnalyzedAt: &now}); err != nil {
		t.Fatalf("Upsert annotation failed: %v", err)
	}

	needs, err := repo.NeedsAnalysis(ctx, "client-2", podcastID)
	if err != nil {
		t.Fatalf("NeedsAnalysis failed: %v", err)
	}
	if !needs {
		t.Error("Expected client-2 to still need analysis for the shared podcast")
	}
}

func TestDeleteMissing(t *testing.T) {
	db := openTestDB(t)
	podcasts := NewPodcastRepository(db)
	repo := newTestAnnotationRepo(t, db, ConsumerKindClient)
	ctx := context.Background()

	var ids []int64
	for _, upstreamID := range []string{"a", "b", "c"} {
		id, err := podcasts.UpsertPodcast(ctx, testSnapshot(upstreamID))
		if err != nil {
			t.Fatalf("Upsert %s failed: %v", upstreamID, err)
		}
		ids = append(ids, id)

		now := time.Now().UTC()
		if err := repo.Upsert(ctx, Annotation{ConsumerID: "client-1", PodcastID: id, AnalyzedAt: &now}); err != nil {
			t.Fatalf("Upsert annotation failed: %v", err)
		}
	}

	// The campaign dropped "c"; its annotation goes, the others stay.
	deleted, err := repo.DeleteMissing(ctx, "client-1", ids[:2])
	if err != nil {
		t.Fatalf("DeleteMissing failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	remaining, err := repo.GetForPodcasts(ctx, "client-1", ids)
	if err != nil {
		t.Fatalf("GetForPodcasts failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("Expected 2 annotations after GC, got %d", len(remaining))
	}

	// An empty keep list wipes the consumer's annotations entirely.
	deleted, err = repo.DeleteMissing(ctx, "client-1", nil)
	if err != nil {
		t.Fatalf("DeleteMissing with empty keep list failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}
}

func TestAnnotationCascadeOnPodcastDelete(t *testing.T) {
	db := openTestDB(t)
	podcasts := NewPodcastRepository(db)
	repo := newTestAnnotationRepo(t, db, ConsumerKindClient)
	ctx := context.Background()

	podcastID, err := podcasts.UpsertPodcast(ctx, testSnapshot("doomed"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	now := time.Now().UTC()
	if err := repo.Upsert(ctx, Annotation{ConsumerID: "client-1", PodcastID: podcastID, AnalyzedAt: &now}); err != nil {
		t.Fatalf("Upsert annotation failed: %v", err)
	}

	backdate(t, db, "doomed", 300)
	if _, err := podcasts.DeleteOlderThan(ctx, time.Now().UTC().AddDate(0, 0, -180)); err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}

	got, err := repo.Get(ctx, "client-1", podcastID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("Expected annotation to cascade away with the podcast")
	}
}
