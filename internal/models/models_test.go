// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package models

import (
	"errors"
	"math"
	"testing"
)

func TestParseClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Classification
		wantErr bool
	}{
		{"lau", LocalUnit, false},
		{"LAU", LocalUnit, false},
		{"", LocalUnit, false},
		{"0", Statistical0, false},
		{"nuts3", Statistical3, false},
		{"2", Statistical2, false},
		{"4", 0, true},
		{"county", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClassification(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownClassification) {
				t.Errorf("ParseClassification(%q) err = %v, want ErrUnknownClassification", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseClassification(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestClassificationKeys(t *testing.T) {
	t.Parallel()

	want := []string{"activity_lau", "activity_nuts0", "activity_nuts1", "activity_nuts2", "activity_nuts3"}
	for i, c := range Classifications {
		if got := c.LinkTable(); got != want[i] {
			t.Errorf("%v.LinkTable() = %q, want %q", c, got, want[i])
		}
	}
	if LocalUnit.Level() != -1 || Statistical2.Level() != 2 {
		t.Error("unexpected Level() values")
	}
}

func TestParentsFromNUTS3(t *testing.T) {
	t.Parallel()

	p, err := ParentsFromNUTS3("DE300")
	if err != nil {
		t.Fatal(err)
	}
	want := HierarchyParents{"DE", "DE3", "DE30", "DE300"}
	if p != want {
		t.Errorf("ParentsFromNUTS3 = %v, want %v", p, want)
	}
	if p.At(Statistical1) != "DE3" || p.At(LocalUnit) != "" {
		t.Error("At() returned unexpected values")
	}
	if _, err := ParentsFromNUTS3("DE3"); err == nil {
		t.Error("expected error for short code")
	}
}

func TestTrackRoundTripKeepsLatLngOrder(t *testing.T) {
	t.Parallel()

	track := TrackFromLatLng([][2]float64{{52.52, 13.40}, {52.53, 13.41}})
	if track[0].Lon() != 13.40 || track[0].Lat() != 52.52 {
		t.Fatalf("expected lon/lat swap, got %v", track[0])
	}

	data, err := MarshalTrack(track)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[[52.52,13.4],[52.53,13.41]]" {
		t.Errorf("unexpected encoding %s", data)
	}

	back, err := UnmarshalTrack(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[1] != track[1] {
		t.Errorf("round trip mismatch: %v", back)
	}
}

func TestTrackValidate(t *testing.T) {
	t.Parallel()

	if err := (Track{{13.4, 52.5}}).Validate(); err != nil {
		t.Errorf("valid track rejected: %v", err)
	}
	if err := (Track{{200, 52.5}}).Validate(); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("expected out of range error, got %v", err)
	}
	if err := (Track{{math.NaN(), 1}}).Validate(); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("expected NaN error, got %v", err)
	}
}
