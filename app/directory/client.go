package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/podmatch/podcache/app/podcast"
)

// Client issues requests against the external podcast directory API. It
// has no retry logic of its own; per-identifier failures are handled by
// the bounded fetch loop through re-invocation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
}

func NewClient(httpClient *http.Client, baseURL, apiKey, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		userAgent:  userAgent,
	}
}

// Configured reports whether the client has the credentials needed to
// reach the upstream API. A missing key is a configuration error for the
// whole invocation, not a per-identifier failure.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetPodcast fetches one podcast's descriptive snapshot.
func (c *Client) GetPodcast(ctx context.Context, upstreamID string) (*podcast.Snapshot, error) {
	data, err := c.get(ctx, "/podcasts/"+url.PathEscape(upstreamID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch podcast %s: %w", upstreamID, err)
	}

	var payload apiPodcast
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode podcast %s: %w", upstreamID, err)
	}

	if payload.PodcastID == "" {
		payload.PodcastID = upstreamID
	}

	snap := payload.toSnapshot()
	return &snap, nil
}

// GetDemographics fetches the audience demographics payload for one
// podcast. Returns (nil, nil) when the upstream has none (404).
func (c *Client) GetDemographics(ctx context.Context, upstreamID string) (*podcast.Demographics, error) {
	data, err := c.get(ctx, "/podcasts/"+url.PathEscape(upstreamID)+"/demographics")
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch demographics for %s: %w", upstreamID, err)
	}

	var payload apiDemographics
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode demographics for %s: %w", upstreamID, err)
	}

	now := time.Now().UTC()
	return &podcast.Demographics{
		Data:             payload.Demographics,
		EpisodesAnalyzed: payload.EpisodesAnalyzed,
		FetchedAt:        &now,
	}, nil
}

// Search runs a paginated search against the upstream directory.
func (c *Client) Search(ctx context.Context, query string, page int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}

	path := "/podcasts/search?query=" + url.QueryEscape(query) + "&page=" + strconv.Itoa(page)
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to search podcasts: %w", err)
	}

	var payload searchResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := &SearchResult{
		Total:   payload.Total,
		Page:    payload.Page,
		PerPage: payload.PerPage,
	}
	for i := range payload.Podcasts {
		result.Podcasts = append(result.Podcasts, payload.Podcasts[i].toSnapshot())
	}

	return result, nil
}

// statusError marks non-2xx upstream responses so callers can
// distinguish a 404 from other failures.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.code, e.status)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call directory API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
