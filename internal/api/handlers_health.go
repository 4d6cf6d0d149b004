// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

import (
	"net/http"
	"time"
)

// ReadinessChecks lists the dependency checks behind /health/ready.
type ReadinessChecks struct {
	Database bool `json:"database"`
	Catalog  bool `json:"catalog"`
}

// HealthLive answers 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 200 once the user store responds and the reference
// catalog is loaded, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	checks := ReadinessChecks{
		Database: h.ledger.Ping(r.Context()) == nil,
		Catalog:  h.catalog.Ready(),
	}
	if !checks.Database || !checks.Catalog {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service is not ready", checks)
		return
	}
	rw.Success(map[string]interface{}{
		"ready":  true,
		"checks": checks,
	})
}
