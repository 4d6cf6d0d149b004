// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gws "github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/trailatlas/internal/attribution"
	"github.com/tomtom215/trailatlas/internal/catalog"
	"github.com/tomtom215/trailatlas/internal/ledger"
	"github.com/tomtom215/trailatlas/internal/mapexport"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/strava"
	syncer "github.com/tomtom215/trailatlas/internal/sync"
	"github.com/tomtom215/trailatlas/internal/testinfra"
	"github.com/tomtom215/trailatlas/internal/websocket"
)

var jan = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

type fakeSyncer struct {
	mu     sync.Mutex
	status *syncer.Status
	err    error
	syncs  []bool
	resets []ledger.ResetScope
}

func (f *fakeSyncer) TriggerSync(fetchAll bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.syncs = append(f.syncs, fetchAll)
	return nil
}

func (f *fakeSyncer) TriggerReset(scope ledger.ResetScope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, scope)
	return nil
}

func (f *fakeSyncer) Status() *syncer.Status { return f.status }

type fakeOAuth struct {
	configured  bool
	connected   bool
	athlete     strava.Athlete
	exchangeErr error
	codes       []string
}

func (f *fakeOAuth) OAuthConfigured() bool { return f.configured }

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://strava.test/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (strava.Athlete, error) {
	f.codes = append(f.codes, code)
	if f.exchangeErr != nil {
		return strava.Athlete{}, f.exchangeErr
	}
	f.connected = true
	return f.athlete, nil
}

func (f *fakeOAuth) Connected(context.Context) bool { return f.connected }

func (f *fakeOAuth) Athlete(context.Context) (strava.Athlete, error) {
	if !f.connected {
		return strava.Athlete{}, errors.New("not connected")
	}
	return f.athlete, nil
}

type notReadyCatalog struct{}

func (notReadyCatalog) Ready() bool { return false }
func (notReadyCatalog) Counts(context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

type fixture struct {
	store   *ledger.Store
	catalog *catalog.Catalog
	engine  *attribution.Engine
	maps    *mapexport.Exporter
	sync    *fakeSyncer
	oauth   *fakeOAuth
	hub     *websocket.Hub
	deps    Deps
}

func newFixture(t *testing.T, exportDir string) *fixture {
	t.Helper()
	ctx := context.Background()

	c, err := catalog.New(testinfra.TempDB(t, "reference"), 0.5)
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx, testinfra.NewStaticSource()))
	store, err := ledger.New(testinfra.TempDB(t, "user"), c)
	require.NoError(t, err)

	f := &fixture{
		store:   store,
		catalog: c,
		engine:  attribution.NewEngine(c),
		maps:    mapexport.New(exportDir, store, c),
		sync:    &fakeSyncer{status: syncer.NewStatus()},
		oauth: &fakeOAuth{
			configured: true,
			connected:  true,
			athlete:    strava.Athlete{ID: 42, Name: "Ada Rider"},
		},
		hub: websocket.NewHub(),
	}
	f.deps = Deps{
		Sync:      f.sync,
		Ledger:    store,
		Catalog:   c,
		Maps:      f.maps,
		OAuth:     f.oauth,
		Hub:       f.hub,
		PublicURL: "/",
	}
	return f
}

func (f *fixture) ingest(t *testing.T, id int64, track models.Track) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveActivity(ctx, models.Activity{ID: id, Name: "Ride", Type: "Ride", StartDate: jan, Distance: 1000}))
	require.NoError(t, f.store.SetTrack(ctx, id, track))
	links, err := f.engine.Attribute(id, track)
	require.NoError(t, err)
	require.NoError(t, f.store.ApplyLinks(ctx, id, links))
	require.NoError(t, f.store.RecomputeAllFirstVisited(ctx))
}

func (f *fixture) handler() http.Handler {
	return NewRouter(NewHandler(f.deps), nil).SetupChi()
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.ingest(t, 1, testinfra.TrackM1)
	require.NoError(t, f.store.SetMeta(context.Background(), ledger.MetaLastSync, "2024-01-11T00:00:00Z"))

	rec := do(t, f.handler(), http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	env := decode(t, rec, &status)
	assert.True(t, env.Success)
	assert.Equal(t, syncer.StageIdle, status.Sync.Stage)
	assert.Equal(t, 1, status.Activities.Total)
	assert.Equal(t, 1, status.Activities.WithTrack)
	assert.True(t, status.CatalogReady)
	assert.Equal(t, 3, status.ReferenceRegions["nuts3"])
	assert.True(t, status.Connected)
	require.NotNil(t, status.Athlete)
	assert.Equal(t, "Ada Rider", status.Athlete.Name)
	assert.Equal(t, "2024-01-11T00:00:00Z", status.LastSync)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestTriggerEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		syncs  []bool
		resets []ledger.ResetScope
	}{
		{path: "/api/update", syncs: []bool{false}},
		{path: "/api/reset", resets: []ledger.ResetScope{ledger.ResetScopeAll}},
		{path: "/api/reset-activities", resets: []ledger.ResetScope{ledger.ResetScopeActivities}},
		{path: "/api/reset-derived", resets: []ledger.ResetScope{ledger.ResetScopeDerived}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, "")

			rec := do(t, f.handler(), http.MethodPost, tt.path)
			require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

			var resp TriggerResponse
			env := decode(t, rec, &resp)
			assert.True(t, env.Success)
			assert.NotEmpty(t, resp.Action)
			assert.Equal(t, tt.syncs, f.sync.syncs)
			assert.Equal(t, tt.resets, f.sync.resets)
		})
	}
}

func TestTrigger_ConflictWhileRunning(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.sync.err = syncer.ErrSyncInProgress
	h := f.handler()

	for _, path := range []string{"/api/update", "/api/reset", "/api/reset-activities", "/api/reset-derived"} {
		rec := do(t, h, http.MethodPost, path)
		require.Equal(t, http.StatusConflict, rec.Code, path)
		env := decode(t, rec, nil)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, ErrCodeConflict, env.Error.Code)
	}
}

func TestTrigger_RequiresConnectionToFetch(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.oauth.connected = false
	h := f.handler()

	rec := do(t, h, http.MethodPost, "/api/update")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.sync.syncs)

	rec = do(t, h, http.MethodPost, "/api/reset-derived")
	assert.Equal(t, http.StatusAccepted, rec.Code, "re-attribution works offline")
}

func TestTrigger_RequiresCatalog(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.deps.Catalog = notReadyCatalog{}

	rec := do(t, f.handler(), http.MethodPost, "/api/update")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, f.sync.syncs)
}

func TestTrigger_GetNotAllowed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	rec := do(t, f.handler(), http.MethodGet, "/api/update")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRegions(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.ingest(t, 1, testinfra.TrackM1)
	h := f.handler()

	tests := []struct {
		query string
		codes []string
	}{
		{"", []string{"M1"}},
		{"?level=lau", []string{"M1"}},
		{"?level=0", []string{"X"}},
		{"?level=3", []string{"X123"}},
		{"?level=nuts2&country=x", []string{"X12"}},
		{"?level=3&country=Y", []string{}},
	}

	for _, tt := range tests {
		rec := do(t, h, http.MethodGet, "/api/regions"+tt.query)
		require.Equal(t, http.StatusOK, rec.Code, tt.query)

		var regions []models.VisitedRegion
		env := decode(t, rec, &regions)
		codes := make([]string, 0, len(regions))
		for _, r := range regions {
			codes = append(codes, r.ID)
		}
		assert.Equal(t, tt.codes, codes, tt.query)
		require.NotNil(t, env.Meta.Count)
		assert.Equal(t, len(tt.codes), *env.Meta.Count)
	}
}

func TestRegions_InvalidParameters(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	h := f.handler()

	rec := do(t, h, http.MethodGet, "/api/regions?level=4")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, ErrCodeBadRequest, env.Error.Code)

	rec = do(t, h, http.MethodGet, "/api/regions?country=X1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env = decode(t, rec, nil)
	assert.Equal(t, ErrCodeValidationFailed, env.Error.Code)
}

func TestCountriesAndTotals(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.ingest(t, 1, testinfra.TrackM1M2)
	h := f.handler()

	rec := do(t, h, http.MethodGet, "/api/countries")
	require.Equal(t, http.StatusOK, rec.Code)
	var countries []models.Country
	decode(t, rec, &countries)
	assert.Equal(t, []models.Country{{Code: "X", Name: "Xland"}}, countries)

	rec = do(t, h, http.MethodGet, "/api/totals")
	require.Equal(t, http.StatusOK, rec.Code)
	var totals map[string]models.Totals
	decode(t, rec, &totals)
	assert.Equal(t, models.Totals{Visited: 2, Total: 3}, totals["nuts3"])
	assert.Equal(t, models.Totals{Visited: 1, Total: 2}, totals["nuts0"])

	rec = do(t, h, http.MethodGet, "/api/totals?country=Y")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &totals)
	assert.Equal(t, models.Totals{Visited: 0, Total: 1}, totals["nuts3"])
}

func featureCodes(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, geoJSONContentType, rec.Header().Get("Content-Type"))
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	codes := make([]string, 0, len(fc.Features))
	for _, feat := range fc.Features {
		codes = append(codes, feat.Properties.MustString("code"))
	}
	return codes
}

func TestMap_BuildsLiveWithoutExport(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.ingest(t, 1, testinfra.TrackM1)

	rec := do(t, f.handler(), http.MethodGet, "/api/map/nuts3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"X123"}, featureCodes(t, rec))

	rec = do(t, f.handler(), http.MethodGet, "/api/map/county")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMap_ServesExportUnlessFiltered(t *testing.T) {
	t.Parallel()
	f := newFixture(t, t.TempDir())
	f.ingest(t, 1, testinfra.TrackM1)
	_, err := f.maps.Export(context.Background())
	require.NoError(t, err)

	// Newer links are only visible once exported again, or when filtering.
	f.ingest(t, 2, testinfra.TrackM1M2)
	h := f.handler()

	rec := do(t, h, http.MethodGet, "/api/map/3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"X123"}, featureCodes(t, rec))

	rec = do(t, h, http.MethodGet, "/api/map/3?country=X")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"X123", "X124"}, featureCodes(t, rec))
}

func TestMap_LiveBuildCachedUntilInvalidated(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.ingest(t, 1, testinfra.TrackM1)
	handler := NewHandler(f.deps)
	h := NewRouter(handler, nil).SetupChi()

	rec := do(t, h, http.MethodGet, "/api/map/3?country=X")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"X123"}, featureCodes(t, rec))

	f.ingest(t, 2, testinfra.TrackM1M2)
	rec = do(t, h, http.MethodGet, "/api/map/3?country=X")
	assert.Equal(t, []string{"X123"}, featureCodes(t, rec))
	assert.Equal(t, int64(1), handler.mapCache.Stats().Hits)

	require.NoError(t, handler.InvalidateMaps(context.Background(), nil))
	rec = do(t, h, http.MethodGet, "/api/map/3?country=X")
	assert.ElementsMatch(t, []string{"X123", "X124"}, featureCodes(t, rec))
}

func TestOAuthFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.oauth.connected = false
	h := f.handler()

	rec := do(t, h, http.MethodGet, "/oauth/authorize")
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, oauthStateCookie, cookies[0].Name)
	assert.Equal(t, state, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, []string{"abc"}, f.oauth.codes)
	assert.True(t, f.oauth.connected)
}

func TestOAuthCallback_Rejections(t *testing.T) {
	t.Parallel()

	withCookie := func(target, state string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if state != "" {
			req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: state})
		}
		return req
	}

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"missing cookie", withCookie("/oauth/callback?code=abc&state=s1", ""), http.StatusBadRequest},
		{"state mismatch", withCookie("/oauth/callback?code=abc&state=s2", "s1"), http.StatusBadRequest},
		{"missing code", withCookie("/oauth/callback?state=s1", "s1"), http.StatusBadRequest},
		{"denied", withCookie("/oauth/callback?error=access_denied&state=s1", "s1"), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, "")
			rec := httptest.NewRecorder()
			f.handler().ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, f.oauth.codes)
		})
	}
}

func TestOAuthCallback_ExchangeFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.oauth.exchangeErr = errors.New("invalid grant")

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, ErrCodeExternalServiceFail, env.Error.Code)
}

func TestOAuth_NotConfigured(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.oauth.configured = false

	rec := do(t, f.handler(), http.MethodGet, "/oauth/authorize")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	rec := do(t, f.handler(), http.MethodGet, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, f.handler(), http.MethodGet, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.deps.Catalog = notReadyCatalog{}
	rec = do(t, f.handler(), http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var checks ReadinessChecks
	env := decode(t, rec, nil)
	raw, err := json.Marshal(env.Error.Details)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &checks))
	assert.Equal(t, ReadinessChecks{Database: true, Catalog: false}, checks)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	h := f.handler()
	do(t, h, http.MethodGet, "/api/countries")

	rec := do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_requests_total")
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	rec := do(t, f.handler(), http.MethodGet, "/api/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, ErrCodeNotFound, env.Error.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute})
	h := NewRouter(NewHandler(f.deps), mw).SetupChi()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/countries").Code)
	rec := do(t, h, http.MethodGet, "/api/countries")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, ErrCodeTooManyRequests, env.Error.Code)
}

func TestCompressionOnLists(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/countries", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestWebSocket_GreetsWithStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = f.hub.RunWithContext(ctx) }()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string                `json:"type"`
		Data syncer.StatusSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, websocket.MessageTypeStatus, msg.Type)
	assert.Equal(t, syncer.StageIdle, msg.Data.Stage)
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	f.deps.AllowedOrigins = []string{"https://maps.example"}
	check := NewHandler(f.deps).upgrader.CheckOrigin

	req := httptest.NewRequest(http.MethodGet, "http://trail.local/api/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "http://trail.local")
	assert.True(t, check(req), "same host")

	req.Header.Set("Origin", "https://maps.example")
	assert.True(t, check(req), "configured origin")

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}

func TestWriteGeoJSON_Body(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	writeGeoJSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), []byte(`{"type":"FeatureCollection","features":[]}`))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(body))
}
