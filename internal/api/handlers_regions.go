// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/mapexport"
	"github.com/tomtom215/trailatlas/internal/metrics"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/validation"
)

const geoJSONContentType = "application/geo+json"

// parseRegionsRequest validates level and country. It writes a 400 and
// returns false when either is invalid.
func parseRegionsRequest(rw *ResponseWriter, level, country string) (models.Classification, string, bool) {
	req := RegionsRequest{Level: level, Country: country}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "Invalid query parameters", verr.Details())
		return 0, "", false
	}
	class, err := models.ParseClassification(req.Level)
	if err != nil {
		rw.BadRequest("Invalid level: use lau, 0, 1, 2 or 3")
		return 0, "", false
	}
	return class, strings.ToUpper(req.Country), true
}

// Regions lists visited regions at one level.
func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()
	class, country, ok := parseRegionsRequest(rw, q.Get("level"), q.Get("country"))
	if !ok {
		return
	}

	regions, err := h.ledger.VisitedRegions(r.Context(), class, country)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.List(regions, len(regions))
}

// Countries lists visited NUTS0 countries.
func (h *Handler) Countries(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	countries, err := h.ledger.VisitedCountries(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.List(countries, len(countries))
}

// Totals reports visited and total region counts for every level.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	_, country, ok := parseRegionsRequest(rw, "", r.URL.Query().Get("country"))
	if !ok {
		return
	}
	totals, err := h.ledger.AllTotals(r.Context(), country)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(totals)
}

// Map serves GeoJSON of visited regions. Without a country filter the last
// export is served when present; otherwise the collection is built live.
func (h *Handler) Map(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	class, country, ok := parseRegionsRequest(rw, chi.URLParam(r, "level"), r.URL.Query().Get("country"))
	if !ok {
		return
	}

	if country == "" {
		data, err := h.maps.Read(class)
		switch {
		case err == nil:
			writeGeoJSON(w, r, data)
			return
		case !errors.Is(err, mapexport.ErrNotExported):
			logging.Ctx(r.Context()).Warn().Err(err).Str("level", class.Key()).Msg("Reading map export failed, building live")
		}
	}

	key := class.Key() + ":" + country
	if data, ok := h.mapCache.Get(key); ok {
		metrics.MapCacheLookups.WithLabelValues("hit").Inc()
		writeGeoJSON(w, r, data)
		return
	}
	metrics.MapCacheLookups.WithLabelValues("miss").Inc()

	fc, err := h.maps.Build(r.Context(), class, country)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		rw.InternalError("Failed to encode map")
		return
	}
	h.mapCache.Set(key, data)
	writeGeoJSON(w, r, data)
}

func writeGeoJSON(w http.ResponseWriter, r *http.Request, data []byte) {
	w.Header().Set("Content-Type", geoJSONContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write map response")
	}
}
