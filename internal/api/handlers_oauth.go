// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/trailatlas/internal/logging"
)

const (
	oauthStateCookie = "trailatlas_oauth_state"
	oauthStateMaxAge = 600 // seconds
)

func (h *Handler) oauthReady(rw *ResponseWriter) bool {
	if h.oauth == nil || !h.oauth.OAuthConfigured() {
		rw.ServiceUnavailable(ErrOAuthNotConfigured.Error())
		return false
	}
	return true
}

// OAuthAuthorize redirects to the Strava authorization page. The state
// value is kept in a short-lived cookie and checked on callback.
func (h *Handler) OAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	if !h.oauthReady(NewResponseWriter(w, r)) {
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/oauth",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// OAuthCallback exchanges the authorization code, stores the tokens and
// athlete, and redirects to the public URL.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.oauthReady(rw) {
		return
	}

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		logging.Ctx(r.Context()).Warn().Str("reason", reason).Msg("Strava authorization denied")
		rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, "Authorization denied: "+reason)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		rw.BadRequest(ErrInvalidState.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/oauth", MaxAge: -1, HttpOnly: true})

	code := q.Get("code")
	if code == "" {
		rw.BadRequest("Missing authorization code")
		return
	}
	athlete, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		rw.ExternalServiceError("strava", err)
		return
	}

	logging.Ctx(r.Context()).Info().Int64("athlete_id", athlete.ID).Str("athlete", athlete.Name).Msg("Strava account connected")
	http.Redirect(w, r, h.publicURL, http.StatusFound)
}
