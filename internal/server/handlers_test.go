package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timescale/TimescaleDB-HybridSearch/internal/config"
	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

type stubStore struct{}

func (stubStore) NearestNeighbors(_ context.Context, _ []float32, k int, _ *search.TimeWindow) ([]search.VectorHit, error) {
	hits := []search.VectorHit{{ID: "doc-1", Distance: 0.1}, {ID: "doc-2", Distance: 0.3}}
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (stubStore) LexicalMatch(_ context.Context, query string, _ int, _ *search.TimeWindow) ([]search.LexicalHit, error) {
	if strings.TrimSpace(query) == "" {
		return []search.LexicalHit{}, nil
	}
	return []search.LexicalHit{{ID: "doc-2", Relevance: 0.8}}, nil
}

func (stubStore) FetchDocuments(_ context.Context, ids []string) (map[string]search.Document, error) {
	now := time.Now()
	out := map[string]search.Document{}
	for _, id := range ids {
		out[id] = search.Document{ID: id, Title: "Title " + id, CreatedAt: now}
	}
	return out, nil
}

func (stubStore) GetDocumentByID(_ context.Context, id string) (*search.Document, error) {
	if id != "doc-1" {
		return nil, nil
	}
	return &search.Document{ID: id, Title: "Title doc-1"}, nil
}

func (stubStore) ListTrapSets(context.Context) ([]string, error) {
	return []string{"authentication", "compression"}, nil
}

func (stubStore) GetTrapQuartet(_ context.Context, name string) (map[string]search.Document, error) {
	if name != "authentication" {
		return map[string]search.Document{}, nil
	}
	return map[string]search.Document{
		search.TrapWinner: {ID: "doc-1", TrapSet: name, TrapType: search.TrapWinner},
	}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Model() string   { return "stub" }
func (stubEmbedder) Dimensions() int { return search.DefaultDimensions }
func (stubEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return make([]float32, search.DefaultDimensions), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := search.NewEngine(stubStore{}, search.Options{})
	require.NoError(t, err)

	cfg := config.Config{}
	cfg.ApplyDefaults()

	srv, err := New(Options{
		Engine:   engine,
		Embedder: stubEmbedder{},
		Search:   cfg.Search,
		HTTP:     cfg.HTTP,
	})
	require.NoError(t, err)
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleHybridSearch(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/search/hybrid",
		`{"query": "hypertable chunks", "limit": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"method":"Hybrid Search"`)
	assert.Contains(t, body, "doc-1")
	assert.Contains(t, body, "doc-2")
}

func TestHandleVectorSearch(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/search/vector",
		`{"query": "compression"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"method":"Vector Search"`)
}

func TestHandleTemporalSearch_InvalidWindow(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/search/temporal",
		`{"query": "retention", "time_window": "sometime recently"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTemporalSearch_DefaultWindow(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/search/temporal",
		`{"query": "retention"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"method":"Hybrid + Temporal"`)
}

func TestHandleSearch_BadBody(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/search/text", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetDocument(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/documents/doc-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/documents/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTrapSets(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/trap-sets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication")

	rec = doRequest(t, srv, http.MethodGet, "/trap-sets/authentication", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/trap-sets/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTypeahead_NotConfigured(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/typeahead?q=hyper", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
