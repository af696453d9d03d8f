package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/podmatch/podcache/app/config"
	"github.com/podmatch/podcache/app/database"
	"github.com/podmatch/podcache/app/directory"
	"github.com/podmatch/podcache/app/orchestrator"
	"github.com/podmatch/podcache/app/podcast"
)

type fakeEngine struct {
	lastRequest orchestrator.Request
	result      *orchestrator.Result
	err         error
}

func (e *fakeEngine) Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error) {
	e.lastRequest = req
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &orchestrator.Result{Total: len(req.UpstreamIDs)}, nil
}

type fakeSheets struct {
	rows [][]string
	err  error
}

func (s *fakeSheets) ReadRange(ctx context.Context, spreadsheetID, cellRange string) ([][]string, error) {
	return s.rows, s.err
}

type fakeSearcher struct {
	result *directory.SearchResult
	err    error
}

func (s *fakeSearcher) Search(ctx context.Context, query string, page int) (*directory.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type handlerEnv struct {
	engine   *fakeEngine
	sheets   *fakeSheets
	searcher *fakeSearcher
	repo     *database.PodcastRepositoryImpl
	router   *gin.Engine
}

func newHandlerEnv(t *testing.T, apiAccessKey string) *handlerEnv {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo := database.NewPodcastRepository(db)

	clientRepo, err := database.NewAnnotationRepository(db, database.ConsumerKindClient)
	if err != nil {
		t.Fatalf("Failed to create annotation repository: %v", err)
	}
	prospectRepo, err := database.NewAnnotationRepository(db, database.ConsumerKindProspect)
	if err != nil {
		t.Fatalf("Failed to create annotation repository: %v", err)
	}
	annotations := map[database.ConsumerKind]database.AnnotationRepository{
		database.ConsumerKindClient:   clientRepo,
		database.ConsumerKindProspect: prospectRepo,
	}

	sourcesDir := t.TempDir()
	sourceYAML := "name: clients\nspreadsheet_id: sheet-abc\nsheet: Podcasts\nrange: A2:A100\nid_column: 0\n"
	if err := os.WriteFile(filepath.Join(sourcesDir, "clients.yaml"), []byte(sourceYAML), 0o644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	sources := config.NewSourceCache(sourcesDir)
	if err := sources.Run(); err != nil {
		t.Fatalf("Failed to load sources: %v", err)
	}

	env := &handlerEnv{
		engine:   &fakeEngine{},
		sheets:   &fakeSheets{rows: [][]string{{"a1"}, {"a2"}}},
		searcher: &fakeSearcher{},
		repo:     repo,
	}

	handler := NewHandler(env.engine, repo, annotations, env.sheets, env.searcher, sources, 7)
	env.router = NewServer(handler, apiAccessKey)

	return env
}

func doRequest(router *gin.Engine, method, path, body, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	env := newHandlerEnv(t, "secret")

	w := doRequest(env.router, "GET", "/api/podcasts/p1", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	w = doRequest(env.router, "GET", "/api/podcasts/p1", "", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	w = doRequest(env.router, "GET", "/api/podcasts/p1", "", "secret")
	if w.Code == http.StatusUnauthorized {
		t.Errorf("Expected auth to pass with correct key, got %d", w.Code)
	}

	// Health stays open.
	w = doRequest(env.router, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected open health endpoint, got %d", w.Code)
	}
}

func TestResolveCampaignViaRangeSource(t *testing.T) {
	env := newHandlerEnv(t, "")

	body := `{"rangeSourceId": "clients", "consumerName": "Dana", "consumerBio": "Bio", "staleDays": 3}`
	w := doRequest(env.router, "POST", "/api/campaigns/clients/client-1/podcasts", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req := env.engine.lastRequest
	if req.Kind != database.ConsumerKindClient {
		t.Errorf("Expected client kind, got '%s'", req.Kind)
	}
	if req.ConsumerID != "client-1" {
		t.Errorf("Expected consumer id from URL, got '%s'", req.ConsumerID)
	}
	if len(req.UpstreamIDs) != 2 || req.UpstreamIDs[0] != "a1" {
		t.Errorf("Expected ids from sheet, got %v", req.UpstreamIDs)
	}
	if req.StaleDays != 3 {
		t.Errorf("Expected staleDays 3, got %d", req.StaleDays)
	}

	var resp campaignResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success true")
	}
	if resp.Podcasts == nil || resp.Remaining == nil {
		t.Error("Expected empty arrays, not null")
	}
}

func TestResolveCampaignInlineRange(t *testing.T) {
	env := newHandlerEnv(t, "")

	body := `{"spreadsheetId": "sheet-x", "range": "B1:B10", "idColumn": 0, "skipHeader": true}`
	w := doRequest(env.router, "POST", "/api/campaigns/prospects/prospect-9/podcasts", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req := env.engine.lastRequest
	if req.Kind != database.ConsumerKindProspect {
		t.Errorf("Expected prospect kind, got '%s'", req.Kind)
	}
	// skipHeader drops the first sheet row.
	if len(req.UpstreamIDs) != 1 || req.UpstreamIDs[0] != "a2" {
		t.Errorf("Expected ids [a2], got %v", req.UpstreamIDs)
	}
}

func TestResolveCampaignUnknownSource(t *testing.T) {
	env := newHandlerEnv(t, "")

	body := `{"rangeSourceId": "nope"}`
	w := doRequest(env.router, "POST", "/api/campaigns/clients/client-1/podcasts", body, "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for unknown source, got %d", w.Code)
	}
}

func TestResolveCampaignMissingRange(t *testing.T) {
	env := newHandlerEnv(t, "")

	w := doRequest(env.router, "POST", "/api/campaigns/clients/client-1/podcasts", `{}`, "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for missing range, got %d", w.Code)
	}
}

func TestResolveOutreachCampaign(t *testing.T) {
	env := newHandlerEnv(t, "")

	// Without a consumer id the run carries no annotations.
	body := `{"rangeSourceId": "clients"}`
	w := doRequest(env.router, "POST", "/api/campaigns/outreach/podcasts", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.engine.lastRequest.Kind != "" {
		t.Errorf("Expected no kind for anonymous outreach, got '%s'", env.engine.lastRequest.Kind)
	}

	// With a consumer id it behaves like a prospect run.
	body = `{"rangeSourceId": "clients", "consumerId": "lead-5"}`
	w = doRequest(env.router, "POST", "/api/campaigns/outreach/podcasts", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.engine.lastRequest.Kind != database.ConsumerKindProspect {
		t.Errorf("Expected prospect kind, got '%s'", env.engine.lastRequest.Kind)
	}
	if env.engine.lastRequest.ConsumerID != "lead-5" {
		t.Errorf("Expected consumer id 'lead-5', got '%s'", env.engine.lastRequest.ConsumerID)
	}
}

func TestGetPodcast(t *testing.T) {
	env := newHandlerEnv(t, "")

	w := doRequest(env.router, "GET", "/api/podcasts/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for uncached podcast, got %d", w.Code)
	}

	if _, err := env.repo.UpsertPodcast(context.Background(), podcast.Snapshot{UpstreamID: "p1", Name: "Show"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	w = doRequest(env.router, "GET", "/api/podcasts/p1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "\"Show\"") {
		t.Errorf("Expected podcast payload, got %s", w.Body.String())
	}
}

func TestSearchPodcastsCachesResults(t *testing.T) {
	env := newHandlerEnv(t, "")
	env.searcher.result = &directory.SearchResult{
		Podcasts: []podcast.Snapshot{{UpstreamID: "s1", Name: "Found Show"}},
		Total:    1,
		Page:     1,
		PerPage:  20,
	}

	w := doRequest(env.router, "GET", "/api/podcasts/search?query=tech", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	p, err := env.repo.GetByUpstreamID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetByUpstreamID failed: %v", err)
	}
	if p == nil {
		t.Error("Expected search result to be cached")
	}
}

func TestSearchPodcastsMissingQuery(t *testing.T) {
	env := newHandlerEnv(t, "")

	w := doRequest(env.router, "GET", "/api/podcasts/search", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing query, got %d", w.Code)
	}
}

func TestClearAnnotation(t *testing.T) {
	env := newHandlerEnv(t, "")
	ctx := context.Background()

	if _, err := env.repo.UpsertPodcast(ctx, podcast.Snapshot{UpstreamID: "p1", Name: "Show"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	w := doRequest(env.router, "DELETE", "/api/annotations/vendor/c1/p1", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown kind, got %d", w.Code)
	}

	w = doRequest(env.router, "DELETE", "/api/annotations/client/c1/unknown", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for uncached podcast, got %d", w.Code)
	}

	w = doRequest(env.router, "DELETE", "/api/annotations/client/c1/p1", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetStats(t *testing.T) {
	env := newHandlerEnv(t, "")

	if _, err := env.repo.UpsertPodcast(context.Background(), podcast.Snapshot{UpstreamID: "p1", Name: "Show"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	w := doRequest(env.router, "GET", "/stats", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Success   bool   `json:"success"`
		StaleDays int    `json:"stale_days"`
		Stats     struct {
			TotalPodcasts int `json:"total_podcasts"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || resp.Stats.TotalPodcasts != 1 {
		t.Errorf("Expected 1 podcast in stats, got %+v", resp)
	}
	if resp.StaleDays != 7 {
		t.Errorf("Expected stale_days 7, got %d", resp.StaleDays)
	}
}
