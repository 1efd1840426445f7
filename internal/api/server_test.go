package api

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artriverapp/artriver-server/internal/domain"
	"github.com/artriverapp/artriver-server/internal/search"
	"github.com/artriverapp/artriver-server/internal/service"
	"github.com/artriverapp/artriver-server/internal/store/sqlite"
)

type testServer struct {
	server *Server
	store  *sqlite.Store
	index  *search.Index
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(t.TempDir()+"/test.db", logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	indexing := service.NewIndexingService(idx, st, 0, logger)
	services := &Services{
		Search: service.NewSearchService(idx, logger),
		Admin:  service.NewAdminService(indexing, idx, 24, logger),
	}

	return &testServer{
		server: NewServer(st, services, logger),
		store:  st,
		index:  idx,
	}
}

func seedGallery(t *testing.T, ts *testServer, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= count; i++ {
		img := &domain.Image{
			ID:        int64(i),
			PID:       fmt.Sprintf("p%d", i),
			Title:     fmt.Sprintf("Sunset Study %d", i),
			Author:    "Ada",
			AuthorID:  "a42",
			Platform:  "pixiv",
			Width:     1000 * i,
			Height:    800,
			CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, ts.store.CreateImage(ctx, img))
		require.NoError(t, ts.store.SetImageTags(ctx, img.PID, []string{"nature", "sky"}))
	}
}

func doRequest(t *testing.T, ts *testServer, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	rec := doRequest(t, ts, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	decodeBody(t, rec, &health)

	// Empty index reports degraded, not unhealthy.
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "degraded", health.Components["search"].Status)
}

func TestHealthCheck_HealthyAfterIndexing(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 3)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, ts, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	decodeBody(t, rec, &health)
	assert.Equal(t, "healthy", health.Status)
}

func TestSearch(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 5)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, ts, http.MethodGet, "/api/v1/search?q=sunset", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SearchResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "sunset", resp.Query)
	assert.Equal(t, int64(5), resp.Total)
	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, "Ada", resp.Hits[0].Author)
	assert.Contains(t, resp.Hits[0].Tags, "nature")
}

func TestSearch_TagFilter(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 3)
	require.NoError(t, ts.store.SetImageTags(context.Background(), "p1", []string{"nature", "night"}))

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, ts, http.MethodGet, "/api/v1/search?tags=nature,night", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "1", resp.Hits[0].ID)
}

func TestSearch_Facets(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 3)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, ts, http.MethodGet, "/api/v1/search?facets=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Facets)
	require.NotEmpty(t, resp.Facets.Platforms)
	assert.Equal(t, "pixiv", resp.Facets.Platforms[0].Value)
	assert.Equal(t, 3, resp.Facets.Platforms[0].Count)
}

func TestSearch_WidthRange(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 5)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, ts, http.MethodGet, "/api/v1/search?min_width=2000&max_width=4000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SearchResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Hits, 3)
	for _, hit := range resp.Hits {
		assert.GreaterOrEqual(t, hit.Width, 2000)
		assert.LessOrEqual(t, hit.Width, 4000)
	}
}

func TestSearch_LimitRejectedByRouter(t *testing.T) {
	ts := setupTestServer(t)

	rec := doRequest(t, ts, http.MethodGet, "/api/v1/search?limit=500", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSuggest(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 3)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, ts, http.MethodGet, "/api/v1/search/suggest?q=sun", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SuggestResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "sun", resp.Query)
	assert.NotEmpty(t, resp.Suggestions)
}

func TestSuggest_PrefixTooShort(t *testing.T) {
	ts := setupTestServer(t)

	rec := doRequest(t, ts, http.MethodGet, "/api/v1/search/suggest?q=a", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestArtists(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 4)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, ts, http.MethodGet, "/api/v1/search/artists", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ArtistsResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Ada", resp.Artists[0].Value)
	assert.Equal(t, 4, resp.Artists[0].Count)
}

func TestAdminIndex_IndexAll(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 5)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all","batch_size":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AdminIndexResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "index_all", resp.Action)
	assert.Equal(t, 5, resp.Processed)
}

func TestAdminIndex_Validate(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 2)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"validate"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AdminIndexResponse
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Validation)
	assert.Equal(t, int64(2), resp.Validation.DBCount)
	assert.Equal(t, int64(0), resp.Validation.IndexCount)
	assert.False(t, resp.Validation.Consistent)
}

func TestAdminIndex_UnknownAction(t *testing.T) {
	ts := setupTestServer(t)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"drop_everything"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestAdminIndexStatus(t *testing.T) {
	ts := setupTestServer(t)
	seedGallery(t, ts, 3)

	rec := doRequest(t, ts, http.MethodPost, "/api/v1/admin/index", `{"action":"index_all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, ts, http.MethodGet, "/api/v1/admin/index/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status service.IndexStatus
	decodeBody(t, rec, &status)
	assert.Equal(t, service.HealthHealthy, status.Health)
	assert.Equal(t, int64(3), status.DBCount)
	assert.Equal(t, int64(3), status.IndexCount)
	assert.NotEmpty(t, status.MappingVersion)
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	rec := doRequest(t, ts, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "route not found")
}
