package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventpulse/backend/internal/api"
	"eventpulse/backend/internal/api/handlers"
	"eventpulse/backend/internal/config"
	"eventpulse/backend/internal/dedup"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDedupTestRouter(t *testing.T) (*gin.Engine, *dedup.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch := dedup.NewOrchestrator(dedup.DefaultConfig())
	require.NoError(t, orch.Initialize())

	dedupHandler := handlers.NewDedupHandler(orch)
	systemHandler := handlers.NewSystemHandler(orch, "test")

	router := gin.New()
	router.Use(api.RequestIDMiddleware())
	router.Use(api.CORSMiddleware(config.CORSConfig{AllowAll: true}))

	router.GET("/health", systemHandler.Health)

	v1 := router.Group("/api/v1")
	dd := v1.Group("/dedup")
	{
		dd.POST("/check", dedupHandler.CheckDuplicates)
		dd.POST("/decisions", dedupHandler.CreateMergeDecision)
		dd.POST("/merge", dedupHandler.ExecuteMerge)
		dd.POST("/process", dedupHandler.ProcessEvents)
		dd.GET("/history/:eventId", dedupHandler.GetEventHistory)
		dd.GET("/report", dedupHandler.GetReport)
		dd.GET("/config", dedupHandler.GetConfig)
		dd.PATCH("/config", dedupHandler.UpdateConfig)
		dd.GET("/cache/stats", dedupHandler.GetCacheStats)
		dd.POST("/cache/clear", dedupHandler.ClearCaches)
		dd.GET("/export", dedupHandler.ExportData)
		dd.POST("/import", dedupHandler.ImportData)
	}

	return router, orch
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func concertEvent(id, source string) dedup.EventRecord {
	start := time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC)
	lat := 40.7306
	lon := -74.0007
	return dedup.EventRecord{
		ID:        id,
		Title:     "Jazz Concert at Blue Note",
		VenueName: "Blue Note Jazz Club",
		CityName:  "New York",
		StartTime: &start,
		Latitude:  &lat,
		Longitude: &lon,
		Source:    source,
		Tags:      []string{"jazz", "live-music"},
	}
}

func TestCheckEndpointFindsDuplicate(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/check", handlers.CheckDuplicatesRequest{
		Event:      concertEvent("ev-1", "ticketmaster"),
		Candidates: []dedup.EventRecord{concertEvent("ev-2", "eventbrite")},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                       `json:"success"`
		Data    dedup.DuplicateCheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.IsDuplicate)
	require.Len(t, resp.Data.Matches, 1)
	assert.Equal(t, "ev-2", resp.Data.Matches[0].EventID)
	assert.NotEmpty(t, resp.Data.Matches[0].Reasons)
}

func TestCheckEndpointRejectsMalformedBody(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dedup/check", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckEndpointRequiresEventID(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	event := concertEvent("", "manual")
	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/check", handlers.CheckDuplicatesRequest{Event: event})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecisionsEndpointReturnsPreview(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/decisions", handlers.MergeDecisionRequest{
		Primary:    concertEvent("primary", "ticketmaster"),
		Duplicates: []dedup.EventRecord{concertEvent("dup", "eventbrite")},
		Strategy:   "enhance_primary",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dedup.MergeDecision `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "primary", resp.Data.PrimaryEventID)
	assert.Equal(t, []string{"dup"}, resp.Data.DuplicateEventIDs)
	assert.Greater(t, resp.Data.Confidence, 0.7)
}

func TestDecisionsEndpointRejectsUnknownStrategy(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/decisions", handlers.MergeDecisionRequest{
		Primary:    concertEvent("primary", "ticketmaster"),
		Duplicates: []dedup.EventRecord{concertEvent("dup", "eventbrite")},
		Strategy:   "upsert",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMergeEndpointRecordsHistory(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	primary := concertEvent("primary", "ticketmaster")
	primary.ImageURL = ""
	dup := concertEvent("dup", "eventbrite")
	dup.ImageURL = "https://cdn.example.com/poster.jpg"

	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/merge", handlers.ExecuteMergeRequest{
		Primary:    primary,
		Duplicates: []dedup.EventRecord{dup},
		Strategy:   "enhance_primary",
		MergedBy:   "curator",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dedup.MergeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Success)
	require.NotNil(t, resp.Data.MergedEvent)
	assert.Equal(t, "primary", resp.Data.MergedEvent.ID)
	assert.Equal(t, dup.ImageURL, resp.Data.MergedEvent.ImageURL)

	hw := doJSON(t, router, http.MethodGet, "/api/v1/dedup/history/primary", nil)
	require.Equal(t, http.StatusOK, hw.Code)

	var histResp struct {
		Data []dedup.MergeHistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(hw.Body.Bytes(), &histResp))
	require.Len(t, histResp.Data, 1)
	assert.Equal(t, "curator", histResp.Data[0].MergedBy)
}

func TestMergeEndpointConflictOnInvalidPrimary(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	primary := concertEvent("primary", "ticketmaster")
	primary.Title = ""

	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/merge", handlers.ExecuteMergeRequest{
		Primary:    primary,
		Duplicates: []dedup.EventRecord{concertEvent("dup", "eventbrite")},
		Strategy:   "enhance_primary",
	})

	assert.Equal(t, http.StatusConflict, w.Code)

	hw := doJSON(t, router, http.MethodGet, "/api/v1/dedup/history/primary", nil)
	assert.Equal(t, http.StatusNotFound, hw.Code)
}

func TestProcessEndpoint(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/process", handlers.ProcessEventsRequest{
		Events: []dedup.EventRecord{
			concertEvent("ev-1", "ticketmaster"),
			concertEvent("ev-2", "eventbrite"),
		},
		Mode: "detect",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dedup.ProcessReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.ProcessedCount)
	assert.Equal(t, 1, resp.Data.DuplicatesFound)
	assert.Equal(t, 1, resp.Data.UniqueEvents)
}

func TestProcessEndpointRejectsUnknownMode(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/process", handlers.ProcessEventsRequest{
		Events: []dedup.EventRecord{concertEvent("ev-1", "manual")},
		Mode:   "replay",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigEndpoints(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/dedup/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var getResp struct {
		Data dedup.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	assert.InDelta(t, 0.7, getResp.Data.Thresholds.Overall, 1e-9)

	pw := doJSON(t, router, http.MethodPatch, "/api/v1/dedup/config",
		map[string]interface{}{"thresholds": map[string]float64{"overall": 0.85}})
	require.Equal(t, http.StatusOK, pw.Code)

	var patchResp struct {
		Data dedup.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pw.Body.Bytes(), &patchResp))
	assert.InDelta(t, 0.85, patchResp.Data.Thresholds.Overall, 1e-9)
	// Unspecified keys stay at their previous values.
	assert.InDelta(t, 0.8, patchResp.Data.Thresholds.Title, 1e-9)
}

func TestConfigPatchRejectsInvalidValues(t *testing.T) {
	router, orch := setupDedupTestRouter(t)
	before := orch.GetConfig()

	w := doJSON(t, router, http.MethodPatch, "/api/v1/dedup/config",
		map[string]interface{}{"thresholds": map[string]float64{"overall": 1.7}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, orch.GetConfig())
}

func TestCacheEndpoints(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/dedup/check", handlers.CheckDuplicatesRequest{
		Event:      concertEvent("ev-1", "ticketmaster"),
		Candidates: []dedup.EventRecord{concertEvent("ev-2", "eventbrite")},
	})

	w := doJSON(t, router, http.MethodGet, "/api/v1/dedup/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var statsResp struct {
		Data dedup.CacheStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statsResp))
	assert.Positive(t, statsResp.Data.Fingerprints)

	cw := doJSON(t, router, http.MethodPost, "/api/v1/dedup/cache/clear", nil)
	require.Equal(t, http.StatusOK, cw.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/dedup/cache/stats", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statsResp))
	assert.Zero(t, statsResp.Data.Fingerprints)
}

func TestExportImportEndpoints(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/dedup/merge", handlers.ExecuteMergeRequest{
		Primary:    concertEvent("primary", "ticketmaster"),
		Duplicates: []dedup.EventRecord{concertEvent("dup", "eventbrite")},
		Strategy:   "enhance_primary",
	})

	w := doJSON(t, router, http.MethodGet, "/api/v1/dedup/export", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var exportResp struct {
		Data dedup.ExportDocument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exportResp))
	require.Len(t, exportResp.Data.MergeHistory, 1)

	// Round-trip into a fresh engine behind a fresh router.
	fresh, freshOrch := setupDedupTestRouter(t)
	iw := doJSON(t, fresh, http.MethodPost, "/api/v1/dedup/import", exportResp.Data)
	require.Equal(t, http.StatusOK, iw.Code)
	assert.Len(t, freshOrch.GetEventHistory("primary"), 1)
}

func TestImportEndpointRejectsInvalidConfig(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	doc := dedup.ExportDocument{Configuration: dedup.Config{}}
	w := doJSON(t, router, http.MethodPost, "/api/v1/dedup/import", doc)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportEndpoint(t *testing.T) {
	router, _ := setupDedupTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/dedup/merge", handlers.ExecuteMergeRequest{
		Primary:    concertEvent("primary", "ticketmaster"),
		Duplicates: []dedup.EventRecord{concertEvent("dup", "eventbrite")},
		Strategy:   "quality_based",
	})

	w := doJSON(t, router, http.MethodGet, "/api/v1/dedup/report", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data dedup.MergeReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.TotalMerges)
	assert.Equal(t, 1, resp.Data.MergesByStrategy[dedup.StrategyQualityBased])
}

func TestHealthEndpoint(t *testing.T) {
	router, orch := setupDedupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, orch.Cleanup())
	w = doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
