// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSyncOperation(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		err    error
		result string
	}{
		{name: "success", mode: "test-incremental", result: "success"},
		{name: "failure", mode: "test-full", err: errors.New("boom"), result: "error"},
		{name: "canceled", mode: "test-derived", err: fmt.Errorf("page 3: %w", context.Canceled), result: "canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(SyncRuns.WithLabelValues(tt.mode, tt.result))
			RecordSyncOperation(tt.mode, 2*time.Second, tt.err)
			after := testutil.ToFloat64(SyncRuns.WithLabelValues(tt.mode, tt.result))
			if after-before != 1 {
				t.Errorf("sync_runs_total{%s,%s} grew by %v, want 1", tt.mode, tt.result, after-before)
			}
		})
	}
}

func TestRecordSyncOperation_SetsLastSuccess(t *testing.T) {
	RecordSyncOperation("test-last-success", time.Second, nil)
	if got := testutil.ToFloat64(SyncLastSuccess); got < float64(time.Now().Add(-time.Minute).Unix()) {
		t.Errorf("SyncLastSuccess = %v, want a recent timestamp", got)
	}
}

func TestRecordAttribution(t *testing.T) {
	beforeLau := testutil.ToFloat64(AttributionLinks.WithLabelValues("lau"))
	beforeUnmapped := testutil.ToFloat64(AttributionUnmapped)

	RecordAttribution(50*time.Millisecond, map[string]int{"lau": 3, "nuts3": 2}, 1)

	if got := testutil.ToFloat64(AttributionLinks.WithLabelValues("lau")) - beforeLau; got != 3 {
		t.Errorf("lau links grew by %v, want 3", got)
	}
	if got := testutil.ToFloat64(AttributionUnmapped) - beforeUnmapped; got != 1 {
		t.Errorf("unmapped grew by %v, want 1", got)
	}
}

func TestRecordSourceRequestAndRefresh(t *testing.T) {
	before := testutil.ToFloat64(SourceRequests.WithLabelValues("streams", "404"))
	RecordSourceRequest("streams", 404, 10*time.Millisecond)
	if got := testutil.ToFloat64(SourceRequests.WithLabelValues("streams", "404")) - before; got != 1 {
		t.Errorf("streams/404 grew by %v, want 1", got)
	}

	ok := testutil.ToFloat64(SourceTokenRefreshes.WithLabelValues("success"))
	failed := testutil.ToFloat64(SourceTokenRefreshes.WithLabelValues("failure"))
	RecordTokenRefresh(true)
	RecordTokenRefresh(false)
	RecordTokenRefresh(false)
	if got := testutil.ToFloat64(SourceTokenRefreshes.WithLabelValues("success")) - ok; got != 1 {
		t.Errorf("successful refreshes grew by %v, want 1", got)
	}
	if got := testutil.ToFloat64(SourceTokenRefreshes.WithLabelValues("failure")) - failed; got != 2 {
		t.Errorf("failed refreshes grew by %v, want 2", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestSetReferenceRegions(t *testing.T) {
	SetReferenceRegions(map[string]int{"lau": 98000, "nuts0": 37})
	if got := testutil.ToFloat64(ReferenceRegions.WithLabelValues("nuts0")); got != 37 {
		t.Errorf("reference_regions{nuts0} = %v, want 37", got)
	}
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("test-op", "ledger"))
	RecordDBQuery("test-op", "ledger", time.Millisecond, nil)
	RecordDBQuery("test-op", "ledger", time.Millisecond, errors.New("constraint"))
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("test-op", "ledger")) - before; got != 1 {
		t.Errorf("query errors grew by %v, want 1", got)
	}
}

func TestMetricGathering(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, p := range problems {
		t.Logf("lint: %s: %s", p.Metric, p.Text)
	}
}
