package podcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Tech Talks</title>
    <language>en-us</language>
    <item>
      <title>Episode 2</title>
      <pubDate>Mon, 10 Mar 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Episode 1</title>
      <pubDate>Mon, 03 Mar 2025 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestEnrichFromRSS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	enricher := NewEnricher(server.Client(), "Test Agent/1.0")

	snap := &Snapshot{UpstreamID: "p1", RSSURL: server.URL}
	if err := enricher.EnrichFromRSS(context.Background(), snap); err != nil {
		t.Fatalf("EnrichFromRSS failed: %v", err)
	}

	if snap.EpisodeCount != 2 {
		t.Errorf("Expected episode count 2, got %d", snap.EpisodeCount)
	}
	if snap.LatestEpisodeAt == nil {
		t.Fatal("Expected latest episode timestamp")
	}
	expected := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	if !snap.LatestEpisodeAt.Equal(expected) {
		t.Errorf("Expected latest episode at %v, got %v", expected, snap.LatestEpisodeAt)
	}
	if snap.Language != "en-US" {
		t.Errorf("Expected normalized language 'en-US', got '%s'", snap.Language)
	}
}

func TestEnrichFromRSSKeepsDirectoryValues(t *testing.T) {
	enricher := NewEnricher(http.DefaultClient, "Test Agent/1.0")

	latest := time.Now().UTC()
	snap := &Snapshot{UpstreamID: "p1", EpisodeCount: 99, LatestEpisodeAt: &latest}

	// Both fields set means no network call happens at all.
	if err := enricher.EnrichFromRSS(context.Background(), snap); err != nil {
		t.Fatalf("EnrichFromRSS failed: %v", err)
	}
	if snap.EpisodeCount != 99 {
		t.Errorf("Expected directory episode count kept, got %d", snap.EpisodeCount)
	}
}

func TestEnrichFromRSSNoFeedURL(t *testing.T) {
	enricher := NewEnricher(http.DefaultClient, "Test Agent/1.0")

	snap := &Snapshot{UpstreamID: "p1"}
	if err := enricher.EnrichFromRSS(context.Background(), snap); err != nil {
		t.Errorf("Expected no error for snapshot without RSS URL, got %v", err)
	}
}
