// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/trailatlas/internal/ledger"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/strava"
	syncer "github.com/tomtom215/trailatlas/internal/sync"
)

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Sync             syncer.StatusSnapshot `json:"sync"`
	Activities       models.ActivityStats  `json:"activities"`
	CatalogReady     bool                  `json:"catalog_ready"`
	ReferenceRegions map[string]int        `json:"reference_regions"`
	OAuthConfigured  bool                  `json:"oauth_configured"`
	Connected        bool                  `json:"connected"`
	Athlete          *strava.Athlete       `json:"athlete,omitempty"`
	LastSync         string                `json:"last_sync,omitempty"`
	LastSyncMode     string                `json:"last_sync_mode,omitempty"`
}

// TriggerResponse is the payload of an accepted sync or reset request.
type TriggerResponse struct {
	Action string                `json:"action"`
	Status syncer.StatusSnapshot `json:"status"`
}

// Status reports sync progress, activity counts and connection state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	stats, err := h.ledger.Stats(ctx)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	counts, err := h.catalog.Counts(ctx)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	resp := StatusResponse{
		Sync:             h.sync.Status().Snapshot(),
		Activities:       stats,
		CatalogReady:     h.catalog.Ready(),
		ReferenceRegions: counts,
	}
	if v, err := h.ledger.GetMeta(ctx, ledger.MetaLastSync); err == nil {
		resp.LastSync = v
	}
	if v, err := h.ledger.GetMeta(ctx, ledger.MetaLastSyncMode); err == nil {
		resp.LastSyncMode = v
	}
	if h.oauth != nil {
		resp.OAuthConfigured = h.oauth.OAuthConfigured()
		resp.Connected = h.oauth.Connected(ctx)
		if resp.Connected {
			if athlete, err := h.oauth.Athlete(ctx); err == nil {
				resp.Athlete = &athlete
			}
		}
	}

	rw.Success(resp)
}

// Update starts an incremental sync.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "sync", true, func() error { return h.sync.TriggerSync(false) })
}

// ResetAll clears all user data except credentials, then runs a full sync.
func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "reset_all", true, func() error { return h.sync.TriggerReset(ledger.ResetScopeAll) })
}

// ResetActivities clears activities and links, then runs a full sync.
func (h *Handler) ResetActivities(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "reset_activities", true, func() error { return h.sync.TriggerReset(ledger.ResetScopeActivities) })
}

// ResetDerived clears links and re-attributes stored tracks without fetching.
func (h *Handler) ResetDerived(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "reset_derived", false, func() error { return h.sync.TriggerReset(ledger.ResetScopeDerived) })
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request, action string, needsSource bool, start func() error) {
	rw := NewResponseWriter(w, r)

	if !h.catalog.Ready() {
		rw.ServiceUnavailable("Reference regions are not loaded")
		return
	}
	if needsSource && h.oauth != nil && !h.oauth.Connected(r.Context()) {
		rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, "Strava account is not connected")
		return
	}

	err := start()
	switch {
	case errors.Is(err, syncer.ErrSyncInProgress):
		rw.Conflict("A sync is already in progress")
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("action", action).Msg("Failed to start run")
		rw.InternalError("Failed to start " + action)
	default:
		logging.Ctx(r.Context()).Info().Str("action", action).Msg("Run started")
		rw.Accepted(TriggerResponse{Action: action, Status: h.sync.Status().Snapshot()})
	}
}
