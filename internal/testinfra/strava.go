// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package testinfra

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/models"
)

// ValidAuthCode is the only authorization code the fake server accepts.
const ValidAuthCode = "valid-code"

// StravaActivity is an activity served by the fake API.
type StravaActivity struct {
	ID        int64
	Name      string
	Type      string
	StartDate time.Time
	Distance  float64
}

// StravaCapture is one request seen by the fake API.
type StravaCapture struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type stravaEntry struct {
	activity StravaActivity
	track    models.Track
	streams  bool
}

// StravaServer is an in-process fake of the Strava v3 API and token endpoint.
type StravaServer struct {
	Server *httptest.Server

	mu           sync.Mutex
	entries      map[int64]*stravaEntry
	access       string
	refresh      string
	generation   int
	captures     []StravaCapture
	failPage     int
	failStreams  map[int64]int
	rejectAll    bool
	refreshFails bool
}

// NewStravaServer starts a fake API that is closed with the test.
func NewStravaServer(t testing.TB) *StravaServer {
	t.Helper()
	s := &StravaServer{
		entries:     make(map[int64]*stravaEntry),
		access:      "access-0",
		refresh:     "refresh-0",
		failStreams: make(map[int64]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /athlete/activities", s.handleActivities)
	mux.HandleFunc("GET /activities/{id}/streams", s.handleStreams)
	mux.HandleFunc("POST /oauth/token", s.handleToken)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.captures = append(s.captures, StravaCapture{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Server.Close)
	return s
}

// URL returns the server base URL.
func (s *StravaServer) URL() string { return s.Server.URL }

// Config returns a client configuration pointing at the fake with no
// request spacing.
func (s *StravaServer) Config() config.StravaConfig {
	return config.StravaConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/oauth/callback",
		APIBaseURL:   s.URL(),
		AuthURL:      s.URL() + "/oauth/authorize",
		TokenURL:     s.URL() + "/oauth/token",
		PageSize:     200,
		Timeout:      5 * time.Second,
	}
}

// AddActivity registers an activity. An empty track is served as a stream
// response without latlng.
func (s *StravaServer) AddActivity(a StravaActivity, track models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a.ID] = &stravaEntry{activity: a, track: track, streams: true}
}

// AddActivityWithoutStreams registers an activity whose streams endpoint
// answers 404.
func (s *StravaServer) AddActivityWithoutStreams(a StravaActivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a.ID] = &stravaEntry{activity: a}
}

// Tokens returns the currently valid access and refresh tokens.
func (s *StravaServer) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh
}

// ExpireAccessToken invalidates the current access token. The next refresh
// issues a new one.
func (s *StravaServer) ExpireAccessToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = "expired"
}

// RejectAll makes every API request answer 401, even after a refresh.
func (s *StravaServer) RejectAll(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAll = v
}

// FailRefresh makes the token endpoint reject refresh grants.
func (s *StravaServer) FailRefresh(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFails = v
}

// FailPage makes the given activities page answer 500. Zero disables.
func (s *StravaServer) FailPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPage = page
}

// FailStreams makes the next n stream requests for id answer 500.
func (s *StravaServer) FailStreams(id int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStreams[id] = n
}

// Captures returns a copy of every request seen so far.
func (s *StravaServer) Captures() []StravaCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StravaCapture, len(s.captures))
	copy(out, s.captures)
	return out
}

// CountRequests returns how many requests hit a path with the given prefix.
func (s *StravaServer) CountRequests(prefix string) int {
	n := 0
	for _, c := range s.Captures() {
		if strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

func (s *StravaServer) authorized(r *http.Request) bool {
	return !s.rejectAll && r.Header.Get("Authorization") == "Bearer "+s.access
}

func (s *StravaServer) handleActivities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authorization Error"})
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}
	if s.failPage != 0 && page == s.failPage {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
		return
	}
	var after int64
	if v := q.Get("after"); v != "" {
		after, _ = strconv.ParseInt(v, 10, 64)
	}

	list := make([]StravaActivity, 0, len(s.entries))
	for _, e := range s.entries {
		if e.activity.StartDate.Unix() > after {
			list = append(list, e.activity)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartDate.Equal(list[j].StartDate) {
			return list[i].StartDate.Before(list[j].StartDate)
		}
		return list[i].ID < list[j].ID
	})

	start := (page - 1) * perPage
	out := make([]map[string]any, 0, perPage)
	for i := start; i < len(list) && i < start+perPage; i++ {
		a := list[i]
		out = append(out, map[string]any{
			"id":         a.ID,
			"name":       a.Name,
			"type":       a.Type,
			"start_date": a.StartDate.UTC().Format(time.RFC3339),
			"distance":   a.Distance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *StravaServer) handleStreams(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authorization Error"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad id"})
		return
	}
	if n := s.failStreams[id]; n > 0 {
		s.failStreams[id] = n - 1
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
		return
	}

	e, ok := s.entries[id]
	if !ok || !e.streams {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Record Not Found"})
		return
	}

	resp := map[string]any{
		"time": map[string]any{"data": make([]int, len(e.track))},
	}
	if len(e.track) > 0 {
		resp["latlng"] = map[string]any{"data": e.track.LatLng()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *StravaServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad form"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := map[string]any{}
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != ValidAuthCode {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Bad Request", "errors": "code invalid"})
			return
		}
		resp["athlete"] = map[string]any{"id": 4242, "firstname": "Test", "lastname": "Rider"}
	case "refresh_token":
		if s.refreshFails || r.PostForm.Get("refresh_token") != s.refresh {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Bad Request", "errors": "refresh_token invalid"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "unsupported grant"})
		return
	}

	s.generation++
	s.access = fmt.Sprintf("access-%d", s.generation)
	s.refresh = fmt.Sprintf("refresh-%d", s.generation)
	resp["token_type"] = "Bearer"
	resp["access_token"] = s.access
	resp["refresh_token"] = s.refresh
	resp["expires_in"] = 21600
	resp["expires_at"] = time.Now().Add(6 * time.Hour).Unix()
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
