package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/search"
	"github.com/kshetline/svc-api/internal/zones"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// memStore serves canned results and records the limits it was given.
type memStore struct {
	results   *atlas.LocationMap
	lastLimit int
	pingErr   error
}

func (m *memStore) Search(_ context.Context, _ *atlas.ParsedSearchString, _ bool, maxMatches int) (*atlas.LocationMap, error) {
	m.lastLimit = maxMatches
	if m.results == nil {
		return atlas.NewLocationMap(), nil
	}
	return m.results, nil
}

func (m *memStore) HasSearchBeenDoneRecently(context.Context, string, bool) (bool, error) {
	return false, nil
}
func (m *memStore) LogSearchResults(context.Context, string, bool, int) error { return nil }
func (m *memStore) SaveLocations(_ context.Context, locs []*atlas.Location) (int, error) {
	return len(locs), nil
}
func (m *memStore) ZonesForKey(context.Context, string) (string, error) { return "", nil }
func (m *memStore) LogMessage(context.Context, bool, string) error      { return nil }
func (m *memStore) Migrate(context.Context) error                       { return nil }
func (m *memStore) Ping(ctx context.Context) error                      { return m.pingErr }

type fixedFinder string

func (f fixedFinder) GetTimezoneName(_, _ float64) string { return string(f) }

func nashuaResults() *atlas.LocationMap {
	lm := atlas.NewLocationMap()
	lm.Add(&atlas.Location{
		City: "Nashua", State: "NH", Country: "USA", LongCountry: "United States",
		Latitude: 42.7575, Longitude: -71.4644, Zone: "America/New_York",
		Rank: 4, PlaceType: "P.PPL", Source: 1,
	})
	return lm
}

func newTestServer(st *memStore) *Server {
	zr := zones.NewWithFinder(st, fixedFinder("America/New_York"))
	searcher := search.New(st, zr, nil, nil, search.Config{})
	return New(searcher, zr, st)
}

func doGet(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAtlas_JSONResponse(t *testing.T) {
	st := &memStore{results: nashuaResults()}
	rec := doGet(t, newTestServer(st).Router(), "/atlas/?q=Nashua,+NH")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Nashua, NH", payload["originalSearch"])
	assert.EqualValues(t, 1, payload["count"])

	matches := payload["matches"].([]any)
	first := matches[0].(map[string]any)
	assert.Equal(t, "Nashua, NH", first["displayName"])
}

func TestAtlas_DefaultQuery(t *testing.T) {
	st := &memStore{results: nashuaResults()}
	rec := doGet(t, newTestServer(st).Router(), "/atlas/")

	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Nashua, NH", payload["originalSearch"])
}

func TestAtlas_PlainText(t *testing.T) {
	st := &memStore{results: nashuaResults()}
	rec := doGet(t, newTestServer(st).Router(), "/atlas/?q=Nashua,+NH&pt=true")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "NASHUA, NH: 1 match")
	assert.Contains(t, rec.Body.String(), "Nashua, NH [42.7575, -71.4644] America/New_York (rank 4)")
}

func TestAtlas_JSONP(t *testing.T) {
	st := &memStore{results: nashuaResults()}
	rec := doGet(t, newTestServer(st).Router(), "/atlas/?q=Nashua,+NH&callback=handleAtlas")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "handleAtlas("))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(rec.Body.String()), ");"))
}

func TestAtlas_BadCallbackRejected(t *testing.T) {
	st := &memStore{results: nashuaResults()}
	rec := doGet(t, newTestServer(st).Router(), "/atlas/?callback=alert(1)//")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAtlas_LimitClamped(t *testing.T) {
	st := &memStore{results: nashuaResults()}
	srv := newTestServer(st)
	router := srv.Router()

	doGet(t, router, "/atlas/?q=Nashua,+NH&limit=9999")
	assert.Equal(t, 500, st.lastLimit)

	doGet(t, router, "/atlas/?q=Nashua,+NH&limit=-3")
	assert.Equal(t, 1, st.lastLimit)

	doGet(t, router, "/atlas/?q=Nashua,+NH")
	assert.Equal(t, 75, st.lastLimit)
}

func TestUnknownPathIs404(t *testing.T) {
	rec := doGet(t, newTestServer(&memStore{}).Router(), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatesEndpoint(t *testing.T) {
	rec := doGet(t, newTestServer(&memStore{}).Router(), "/states/")

	require.Equal(t, http.StatusOK, rec.Code)
	var states []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	assert.NotEmpty(t, states)
}

func TestZoneEndpoint(t *testing.T) {
	rec := doGet(t, newTestServer(&memStore{}).Router(), "/zone/?lat=42.75&lon=-71.46")

	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "America/New_York", payload["zone"])
}

func TestZoneEndpoint_MissingParams(t *testing.T) {
	rec := doGet(t, newTestServer(&memStore{}).Router(), "/zone/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := doGet(t, newTestServer(&memStore{}).Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	degraded := &memStore{pingErr: assert.AnError}
	rec = doGet(t, newTestServer(degraded).Router(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitKicksIn(t *testing.T) {
	router := newTestServer(&memStore{}).Router()

	var limited bool
	for i := 0; i < rateLimitPerMinute+5; i++ {
		rec := doGet(t, router, "/healthz")
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "per-IP budget should run out within a burst")
}
