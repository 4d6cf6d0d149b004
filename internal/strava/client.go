// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package strava

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/credentials"
	"github.com/tomtom215/trailatlas/internal/metrics"
)

// maxErrorBodySize limits how much of an error response is kept.
const maxErrorBodySize = 64 * 1024

var (
	// ErrUnauthorized is returned when the API rejects the access token even
	// after a refresh.
	ErrUnauthorized = errors.New("activity source rejected credentials")

	// ErrNotConnected is returned when no tokens have been stored yet.
	ErrNotConnected = errors.New("activity source not connected")

	// errNotFound is the internal 404 signal; GetTrack turns it into "no track".
	errNotFound = errors.New("not found")
)

// StatusError is an unexpected HTTP status from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// Client talks to the Strava v3 API.
type Client struct {
	cfg     config.StravaConfig
	http    *http.Client
	creds   credentials.Store
	oauth   *oauth2.Config
	breaker *gobreaker.CircuitBreaker[[]byte]

	pageLimiter  *rate.Limiter
	trackLimiter *rate.Limiter

	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client. creds holds the OAuth tokens.
func New(cfg config.StravaConfig, creds credentials.Store, opts ...Option) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	c := &Client{
		cfg:          cfg,
		http:         &http.Client{Timeout: cfg.Timeout},
		creds:        creds,
		pageLimiter:  spacingLimiter(cfg.PageDelay),
		trackLimiter: spacingLimiter(cfg.TrackDelay),
	}
	c.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker("strava-api")
	return c
}

// spacingLimiter allows one request per delay with no burst.
func spacingLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// get performs an authorized GET, refreshing the token once on 401.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	body, err := c.do(ctx, endpoint, path, query)
	if !errors.Is(err, ErrUnauthorized) {
		return body, err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		return nil, fmt.Errorf("%w: refresh failed: %v", ErrUnauthorized, rerr)
	}
	return c.do(ctx, endpoint, path, query)
}

func (c *Client) do(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	token, err := c.creds.Get(ctx, credentials.KeyAccessToken)
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}

	reqURL := strings.TrimRight(c.cfg.APIBaseURL, "/") + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	return c.execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", endpoint, err)
		}
		defer resp.Body.Close()
		metrics.RecordSourceRequest(endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read %s response: %w", endpoint, err)
			}
			return body, nil
		case http.StatusUnauthorized:
			return nil, ErrUnauthorized
		case http.StatusNotFound:
			return nil, errNotFound
		default:
			return nil, &StatusError{Code: resp.StatusCode, Body: readBodyForError(resp.Body)}
		}
	})
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return string(body)
}
