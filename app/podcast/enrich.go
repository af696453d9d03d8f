package podcast

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mmcdole/gofeed"
)

// Enricher fills snapshot gaps from the podcast's own RSS feed. The
// upstream directory sometimes omits episode counts and last-posted
// timestamps; the feed itself is authoritative for both.
type Enricher struct {
	parser *gofeed.Parser
}

func NewEnricher(httpClient *http.Client, userAgent string) *Enricher {
	parser := gofeed.NewParser()
	parser.Client = httpClient
	parser.UserAgent = userAgent

	return &Enricher{parser: parser}
}

// EnrichFromRSS parses the snapshot's RSS feed and fills EpisodeCount and
// LatestEpisodeAt when the directory left them empty. A snapshot without
// an RSS URL, or with both fields already set, is returned unchanged.
func (e *Enricher) EnrichFromRSS(ctx context.Context, snap *Snapshot) error {
	if snap.RSSURL == "" {
		return nil
	}
	if snap.EpisodeCount > 0 && snap.LatestEpisodeAt != nil {
		return nil
	}

	feed, err := e.parser.ParseURLWithContext(snap.RSSURL, ctx)
	if err != nil {
		return fmt.Errorf("failed to parse podcast feed: %w", err)
	}

	if snap.EpisodeCount == 0 {
		snap.EpisodeCount = len(feed.Items)
	}

	if snap.LatestEpisodeAt == nil {
		for _, item := range feed.Items {
			if item == nil || item.PublishedParsed == nil {
				continue
			}
			if snap.LatestEpisodeAt == nil || item.PublishedParsed.After(*snap.LatestEpisodeAt) {
				published := *item.PublishedParsed
				snap.LatestEpisodeAt = &published
			}
		}
	}

	if snap.Language == "" && feed.Language != "" {
		snap.Language = NormalizeLanguage(feed.Language)
	}

	return nil
}
