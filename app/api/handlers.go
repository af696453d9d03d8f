package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/podmatch/podcache/app/config"
	"github.com/podmatch/podcache/app/database"
	"github.com/podmatch/podcache/app/orchestrator"
	"github.com/podmatch/podcache/app/sheets"
)

func NewHandler(engine EngineInterface, podcastRepo database.PodcastRepository,
	annotations map[database.ConsumerKind]database.AnnotationRepository,
	sheetReader SheetReader, searcher DirectorySearcher,
	sources *config.SourceCache, staleDays int) *Handler {
	return &Handler{
		engine:      engine,
		podcastRepo: podcastRepo,
		annotations: annotations,
		sheets:      sheetReader,
		searcher:    searcher,
		sources:     sources,
		staleDays:   staleDays,
	}
}

func (h *Handler) ResolveClientCampaign(c *gin.Context) {
	h.resolveCampaign(c, database.ConsumerKindClient, c.Param("consumerID"))
}

func (h *Handler) ResolveProspectCampaign(c *gin.Context) {
	h.resolveCampaign(c, database.ConsumerKindProspect, c.Param("consumerID"))
}

// ResolveOutreachCampaign resolves a generic list. When the body names
// a consumer the run carries prospect annotations under that id,
// otherwise it is a pure cache run with no annotations.
func (h *Handler) ResolveOutreachCampaign(c *gin.Context) {
	h.resolveCampaign(c, "", "")
}

func (h *Handler) resolveCampaign(c *gin.Context, kind database.ConsumerKind, consumerID string) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
		return
	}

	if kind == "" && req.ConsumerID != "" {
		kind = database.ConsumerKindProspect
		consumerID = req.ConsumerID
	}

	ids, err := h.resolveIdentifiers(c, &req)
	if err != nil {
		slog.Error("Failed to resolve identifier range", "kind", string(kind), "consumer_id", consumerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := h.engine.Run(c.Request.Context(), orchestrator.Request{
		Kind:                kind,
		ConsumerID:          consumerID,
		ConsumerName:        req.ConsumerName,
		ConsumerBio:         req.ConsumerBio,
		UpstreamIDs:         ids,
		CheckStatusOnly:     req.CheckStatusOnly,
		CacheOnly:           req.CacheOnly,
		AIAnalysisOnly:      req.AIAnalysisOnly,
		SkipAIAnalysis:      req.SkipAIAnalysis,
		StaleDays:           req.StaleDays,
		IncludeDemographics: req.IncludeDemographics,
	})
	if err != nil {
		slog.Error("Campaign resolution failed", "kind", string(kind), "consumer_id", consumerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	podcasts := result.Podcasts
	if podcasts == nil {
		podcasts = []orchestrator.PodcastView{}
	}
	remaining := result.Remaining
	if remaining == nil {
		remaining = []string{}
	}

	c.JSON(http.StatusOK, campaignResponse{
		Success:      true,
		Podcasts:     podcasts,
		Total:        result.Total,
		Cached:       result.Cached,
		Fetched:      result.Fetched,
		StoppedEarly: result.StoppedEarly,
		Remaining:    remaining,
		Stats:        result.Stats,
	})
}

// resolveIdentifiers turns the request's range reference into the
// ordered identifier list. A named source wins over inline coordinates.
func (h *Handler) resolveIdentifiers(c *gin.Context, req *campaignRequest) ([]string, error) {
	spreadsheetID := req.SpreadsheetID
	cellRange := req.Range
	idColumn := req.IDColumn
	skipHeader := req.SkipHeader

	if req.RangeSource != "" {
		source, err := h.sources.GetSource(req.RangeSource)
		if err != nil {
			return nil, fmt.Errorf("unknown range source: %s", req.RangeSource)
		}
		spreadsheetID = source.SpreadsheetID
		cellRange = source.CellRange()
		idColumn = source.IDColumn
		skipHeader = source.SkipHeader
	}

	if spreadsheetID == "" || cellRange == "" {
		return nil, fmt.Errorf("rangeSourceId or spreadsheetId and range are required")
	}

	rows, err := h.sheets.ReadRange(c.Request.Context(), spreadsheetID, cellRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read identifier range: %w", err)
	}

	return sheets.IdentifierColumn(rows, idColumn, skipHeader), nil
}

func (h *Handler) GetPodcast(c *gin.Context) {
	upstreamID := c.Param("upstreamID")

	p, err := h.podcastRepo.GetByUpstreamID(c.Request.Context(), upstreamID)
	if err != nil {
		slog.Error("Database error", "operation", "get_podcast", "upstream_id", upstreamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Podcast not cached"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "podcast": p})
}

// SearchPodcasts proxies a search to the upstream directory and folds
// the returned snapshots into the cache on the way through.
func (h *Handler) SearchPodcasts(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing query parameter"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.searcher.Search(c.Request.Context(), query, page)
	if err != nil {
		slog.Error("Directory search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if len(result.Podcasts) > 0 {
		if _, err := h.podcastRepo.UpsertPodcasts(c.Request.Context(), result.Podcasts); err != nil {
			slog.Warn("Failed to cache search results", "query", query, "count", len(result.Podcasts), "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"podcasts": result.Podcasts,
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
	})
}

// ClearAnnotation wipes a pair's analysis payload and analyzed_at so
// the next campaign run scores it again.
func (h *Handler) ClearAnnotation(c *gin.Context) {
	kind := database.ConsumerKind(c.Param("kind"))
	consumerID := c.Param("consumerID")
	upstreamID := c.Param("upstreamID")

	repo, ok := h.annotations[kind]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown consumer kind: " + string(kind)})
		return
	}

	p, err := h.podcastRepo.GetByUpstreamID(c.Request.Context(), upstreamID)
	if err != nil {
		slog.Error("Database error", "operation", "clear_annotation", "upstream_id", upstreamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Podcast not cached"})
		return
	}

	if err := repo.ClearAnalysis(c.Request.Context(), consumerID, p.ID); err != nil {
		slog.Error("Failed to clear annotation", "kind", string(kind), "consumer_id", consumerID, "upstream_id", upstreamID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to clear annotation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.podcastRepo.GetStats(c.Request.Context(), h.staleDays); err == nil {
		health["podcasts"] = stats.TotalPodcasts
	}

	health["loaded_sources"] = h.sources.GetSourceCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.podcastRepo.GetStats(c.Request.Context(), h.staleDays)
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"stale_days": h.staleDays,
		"stats":      stats,
	})
}
