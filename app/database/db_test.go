package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func testSnapshot(upstreamID string) podcast.Snapshot {
	return podcast.Snapshot{
		UpstreamID:   upstreamID,
		Name:         "Show " + upstreamID,
		Description:  "A show about testing",
		Publisher:    "Test Publisher",
		Hosts:        []string{"Alex Host"},
		Language:     "en",
		EpisodeCount: 42,
		Website:      "https://example.com/" + upstreamID,
	}
}

// backdate moves a podcast's last_fetched_at into the past so staleness
// paths can be exercised without sleeping.
func backdate(t *testing.T, db *DB, upstreamID string, days int) {
	t.Helper()

	past := time.Now().UTC().AddDate(0, 0, -days)
	if _, err := db.Exec("UPDATE podcasts SET last_fetched_at = ? WHERE upstream_id = ?", past, upstreamID); err != nil {
		t.Fatalf("Failed to backdate podcast %s: %v", upstreamID, err)
	}
}
