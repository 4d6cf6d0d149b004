// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geoJSONHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func TestCompression_GeoJSON(t *testing.T) {
	t.Parallel()

	body := strings.Repeat(`{"type":"Feature"},`, 200)
	req := httptest.NewRequest(http.MethodGet, "/api/map/nuts3", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	rec := httptest.NewRecorder()

	Compression(geoJSONHandler(body))(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	if got := rec.Header().Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("Vary = %q, want Accept-Encoding", got)
	}

	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gr.Close()
	plain, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}
	if string(plain) != body {
		t.Error("decompressed body differs from handler output")
	}
}

func TestCompression_Skips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		handler http.HandlerFunc
	}{
		{
			name:    "client without gzip",
			headers: map[string]string{},
			handler: geoJSONHandler("{}"),
		},
		{
			name:    "websocket upgrade",
			headers: map[string]string{"Accept-Encoding": "gzip", "Upgrade": "websocket"},
			handler: geoJSONHandler("{}"),
		},
		{
			name:    "binary payload",
			headers: map[string]string{"Accept-Encoding": "gzip"},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				_, _ = w.Write([]byte{0x00, 0x01, 0x02})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			Compression(tt.handler)(rec, req)

			if got := rec.Header().Get("Content-Encoding"); got != "" {
				t.Errorf("Content-Encoding = %q, want none", got)
			}
		})
	}
}

func TestCompression_DetectsContentType(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	Compression(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text body"))
	})(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip for sniffed text", got)
	}
}

func TestCompressible(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"application/json; charset=utf-8": true,
		"application/geo+json":            true,
		"text/plain":                      true,
		"image/png":                       false,
		"":                                false,
	}
	for ct, want := range tests {
		if got := compressible(ct); got != want {
			t.Errorf("compressible(%q) = %v, want %v", ct, got, want)
		}
	}
}
