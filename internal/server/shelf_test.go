package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boardgame-shelf/internal/api"
	"boardgame-shelf/internal/config"
	"boardgame-shelf/internal/service"
	"boardgame-shelf/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestStack wires real clients against fake upstreams so handler tests
// cover the whole fetch path.
func newTestStack(t *testing.T, catalogHandler, enrichmentHandler http.HandlerFunc) (*ShelfServer, *httptest.Server) {
	t.Helper()

	catalogTS := httptest.NewServer(catalogHandler)
	t.Cleanup(catalogTS.Close)
	enrichmentTS := httptest.NewServer(enrichmentHandler)
	t.Cleanup(enrichmentTS.Close)

	cfg := &config.Config{
		CatalogBaseURL:    catalogTS.URL,
		EnrichmentBaseURL: enrichmentTS.URL,
	}
	logger := zerolog.Nop()

	st := store.NewCollectionStore()
	svc := service.NewCollectionService(
		api.NewCatalogClient(cfg, logger),
		api.NewEnrichmentClient(cfg, logger),
		st,
		logger,
	)
	shelf := NewShelfServer(svc, st, logger)

	mux := http.NewServeMux()
	shelf.Routes(mux)
	apiTS := httptest.NewServer(mux)
	t.Cleanup(apiTS.Close)

	return shelf, apiTS
}

func serveOneGameCatalog(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`<items totalitems="1"><item objectid="111775"><name>Test Game</name></item></items>`))
}

func serveOneGameEnrichment(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"id":"111775","bestWith":[3,4],"recommendedWith":[3,4,5]}` + "\n"))
}

func TestHealth(t *testing.T) {
	shelf, _ := newTestStack(t, serveOneGameCatalog, serveOneGameEnrichment)

	rec := httptest.NewRecorder()
	shelf.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRefreshAndList(t *testing.T) {
	shelf, _ := newTestStack(t, serveOneGameCatalog, serveOneGameEnrichment)

	rec := httptest.NewRecorder()
	shelf.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/collection/refresh", strings.NewReader(`{"username":"someuser"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	require.Equal(t, 1, refreshed.Games)
	require.Empty(t, refreshed.Warning)

	rec = httptest.NewRecorder()
	shelf.List(rec, httptest.NewRequest(http.MethodGet, "/api/collection?min=3&max=4&mode=best", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Games, 1)
	require.Equal(t, "111775", listed.Games[0].ID)
	require.Equal(t, []int{3, 4}, listed.Games[0].BestWith)
	require.Equal(t, []int{3, 4, 5}, listed.Games[0].RecommendedWith)

	// Range outside the game's best counts.
	rec = httptest.NewRecorder()
	shelf.List(rec, httptest.NewRequest(http.MethodGet, "/api/collection?min=6&max=8", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Empty(t, listed.Games)
}

func TestRefreshSurfacesUpstreamMessage(t *testing.T) {
	shelf, _ := newTestStack(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<errors><error><message>Invalid username specified</message></error></errors>`))
		},
		serveOneGameEnrichment,
	)

	rec := httptest.NewRecorder()
	shelf.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/collection/refresh", strings.NewReader(`{"username":"nosuchuser"}`)))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid username specified")
}

func TestRefreshReportsEnrichmentWarning(t *testing.T) {
	shelf, _ := newTestStack(t,
		serveOneGameCatalog,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	)

	rec := httptest.NewRecorder()
	shelf.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/collection/refresh", strings.NewReader(`{"username":"someuser"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	require.Equal(t, 1, refreshed.Games)
	require.Contains(t, refreshed.Warning, "failed to fetch enrichment data")
}

func TestRefreshValidation(t *testing.T) {
	shelf, _ := newTestStack(t, serveOneGameCatalog, serveOneGameEnrichment)

	rec := httptest.NewRecorder()
	shelf.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/collection/refresh", strings.NewReader(`not json`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	shelf.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/collection/refresh", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	shelf.Refresh(rec, httptest.NewRequest(http.MethodGet, "/api/collection/refresh", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListValidation(t *testing.T) {
	shelf, _ := newTestStack(t, serveOneGameCatalog, serveOneGameEnrichment)

	for _, query := range []string{"?min=abc", "?max=abc", "?min=0", "?max=9", "?min=5&max=2", "?mode=bogus"} {
		rec := httptest.NewRecorder()
		shelf.List(rec, httptest.NewRequest(http.MethodGet, "/api/collection"+query, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, "query %s", query)
	}
}

func TestWatchStreamsSnapshots(t *testing.T) {
	shelf, apiTS := newTestStack(t, serveOneGameCatalog, serveOneGameEnrichment)

	resp, err := http.Get(apiTS.URL + "/api/collection/watch?min=1&max=8&mode=recommended")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)

	var initial listResponse
	require.NoError(t, json.Unmarshal([]byte(line), &initial))
	require.Empty(t, initial.Games)

	// A refresh mutates the store; the watcher must see a new snapshot.
	rec := httptest.NewRecorder()
	shelf.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/collection/refresh", strings.NewReader(`{"username":"someuser"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)

	var updated listResponse
	require.NoError(t, json.Unmarshal([]byte(line), &updated))
	require.Greater(t, updated.Version, initial.Version)
	require.Len(t, updated.Games, 1)
	require.Equal(t, "Test Game", updated.Games[0].Name)
}
