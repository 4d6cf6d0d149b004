// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package strava

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/trailatlas/internal/credentials"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/metrics"
)

// Scope is requested on authorization. Strava expects a comma separated list.
const Scope = "read,activity:read_all"

// Athlete identifies the connected account.
type Athlete struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AuthCodeURL returns the authorization page URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// OAuthConfigured reports whether client id and secret are set.
func (c *Client) OAuthConfigured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// Exchange trades an authorization code for tokens, stores them together
// with the athlete identity and returns the athlete.
func (c *Client) Exchange(ctx context.Context, code string) (Athlete, error) {
	if code == "" {
		return Athlete{}, errors.New("authorization code is empty")
	}
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return Athlete{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := c.storeToken(ctx, tok); err != nil {
		return Athlete{}, err
	}

	athlete := athleteFromToken(tok)
	if athlete.ID != 0 {
		if err := c.creds.Set(ctx, credentials.KeyAthleteID, strconv.FormatInt(athlete.ID, 10)); err != nil {
			return athlete, fmt.Errorf("store athlete id: %w", err)
		}
		if err := c.creds.Set(ctx, credentials.KeyAthleteName, athlete.Name); err != nil {
			return athlete, fmt.Errorf("store athlete name: %w", err)
		}
	}
	logging.Info().Int64("athlete_id", athlete.ID).Msg("Activity source connected")
	return athlete, nil
}

// Refresh exchanges the stored refresh token for a new token pair and
// persists both. Concurrent callers share one refresh.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	refresh, err := c.creds.Get(ctx, credentials.KeyRefreshToken)
	if errors.Is(err, credentials.ErrNotFound) {
		return ErrNotConnected
	}
	if err != nil {
		return fmt.Errorf("read refresh token: %w", err)
	}

	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{
		RefreshToken: refresh,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		metrics.RecordTokenRefresh(false)
		return fmt.Errorf("refresh token: %w", err)
	}
	if err := c.storeToken(ctx, tok); err != nil {
		metrics.RecordTokenRefresh(false)
		return err
	}
	metrics.RecordTokenRefresh(true)
	logging.Debug().Time("expiry", tok.Expiry).Msg("Access token refreshed")
	return nil
}

// Connected reports whether a refresh token is stored.
func (c *Client) Connected(ctx context.Context) bool {
	_, err := c.creds.Get(ctx, credentials.KeyRefreshToken)
	return err == nil
}

// Athlete returns the stored athlete identity.
func (c *Client) Athlete(ctx context.Context) (Athlete, error) {
	vals, err := credentials.GetAll(ctx, c.creds, credentials.KeyAthleteID, credentials.KeyAthleteName)
	if err != nil {
		return Athlete{}, err
	}
	id, ok := vals[credentials.KeyAthleteID]
	if !ok {
		return Athlete{}, ErrNotConnected
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Athlete{}, fmt.Errorf("stored athlete id %q: %w", id, err)
	}
	return Athlete{ID: n, Name: vals[credentials.KeyAthleteName]}, nil
}

func (c *Client) storeToken(ctx context.Context, tok *oauth2.Token) error {
	if tok.AccessToken == "" {
		return errors.New("token response has no access token")
	}
	if err := c.creds.Set(ctx, credentials.KeyAccessToken, tok.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if tok.RefreshToken != "" {
		if err := c.creds.Set(ctx, credentials.KeyRefreshToken, tok.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
	}
	if !tok.Expiry.IsZero() {
		if err := c.creds.Set(ctx, credentials.KeyTokenExpiry, tok.Expiry.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("store token expiry: %w", err)
		}
	}
	return nil
}

// athleteFromToken reads the athlete object Strava adds to the token
// response.
func athleteFromToken(tok *oauth2.Token) Athlete {
	raw, ok := tok.Extra("athlete").(map[string]interface{})
	if !ok {
		return Athlete{}
	}
	var a Athlete
	if id, ok := raw["id"].(float64); ok {
		a.ID = int64(id)
	}
	first, _ := raw["firstname"].(string)
	last, _ := raw["lastname"].(string)
	a.Name = strings.TrimSpace(first + " " + last)
	return a
}
