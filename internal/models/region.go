// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Classification identifies one of the five region schemes.
type Classification int

const (
	// LocalUnit is a LAU, the finest granularity (municipality-equivalent).
	LocalUnit Classification = iota
	// Statistical0 is NUTS level 0 (countries).
	Statistical0
	// Statistical1 is NUTS level 1.
	Statistical1
	// Statistical2 is NUTS level 2.
	Statistical2
	// Statistical3 is NUTS level 3.
	Statistical3
)

// Classifications lists every classification, LocalUnit first.
var Classifications = []Classification{LocalUnit, Statistical0, Statistical1, Statistical2, Statistical3}

// StatisticalLevels lists the four NUTS classifications from coarsest to finest.
var StatisticalLevels = []Classification{Statistical0, Statistical1, Statistical2, Statistical3}

// ErrUnknownClassification is returned when parsing an unknown level.
var ErrUnknownClassification = errors.New("unknown classification")

// ParseClassification accepts the wire forms "lau", "0".."3" and "nuts0".."nuts3".
func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lau", "":
		return LocalUnit, nil
	case "0", "nuts0":
		return Statistical0, nil
	case "1", "nuts1":
		return Statistical1, nil
	case "2", "nuts2":
		return Statistical2, nil
	case "3", "nuts3":
		return Statistical3, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClassification, s)
}

// StatisticalLevel returns the classification for NUTS level 0..3.
func StatisticalLevel(level int) (Classification, error) {
	if level < 0 || level > 3 {
		return 0, fmt.Errorf("%w: nuts level %d", ErrUnknownClassification, level)
	}
	return Classification(int(Statistical0) + level), nil
}

// Valid reports whether c is one of the five known classifications.
func (c Classification) Valid() bool {
	return c >= LocalUnit && c <= Statistical3
}

// IsStatistical reports whether c is a NUTS level.
func (c Classification) IsStatistical() bool {
	return c >= Statistical0 && c <= Statistical3
}

// Level returns the NUTS level (0..3), or -1 for LocalUnit.
func (c Classification) Level() int {
	if !c.IsStatistical() {
		return -1
	}
	return int(c - Statistical0)
}

// Key is the name used in totals maps and persisted rows: lau, nuts0..nuts3.
func (c Classification) Key() string {
	if c == LocalUnit {
		return "lau"
	}
	return fmt.Sprintf("nuts%d", c.Level())
}

// LinkTable is the user-store table holding activity links for c.
func (c Classification) LinkTable() string {
	return "activity_" + c.Key()
}

func (c Classification) String() string {
	return c.Key()
}

// Region is an administrative area from the reference catalog.
type Region struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	CountryCode    string         `json:"country_code"`
	Classification Classification `json:"-"`
	Geometry       orb.Geometry   `json:"-"`
}

// Bound returns the geometry bounding box, or an empty bound without geometry.
func (r *Region) Bound() orb.Bound {
	if r.Geometry == nil {
		return orb.Bound{}
	}
	return r.Geometry.Bound()
}

// HierarchyParents holds the NUTS0..NUTS3 identifiers of one local unit.
type HierarchyParents [4]string

// At returns the parent identifier for a statistical classification.
func (p HierarchyParents) At(c Classification) string {
	if !c.IsStatistical() {
		return ""
	}
	return p[c.Level()]
}

// ParentsFromNUTS3 derives the full chain from a NUTS3 code by prefix.
func ParentsFromNUTS3(nuts3 string) (HierarchyParents, error) {
	nuts3 = strings.TrimSpace(nuts3)
	if len(nuts3) != 5 {
		return HierarchyParents{}, fmt.Errorf("invalid NUTS3 code %q", nuts3)
	}
	return HierarchyParents{nuts3[:2], nuts3[:3], nuts3[:4], nuts3}, nil
}

// VisitedRegion is a region with at least one linked activity.
type VisitedRegion struct {
	ID            string    `json:"code"`
	Name          string    `json:"region_name"`
	CountryCode   string    `json:"country_code"`
	Level         string    `json:"level"`
	FirstVisited  time.Time `json:"first_visited"`
	ActivityCount int       `json:"activity_count"`
}

// Totals compares visited regions with the catalog size.
type Totals struct {
	Visited int `json:"visited"`
	Total   int `json:"total"`
}

// Country is a visited NUTS0 region.
type Country struct {
	Code string `json:"nuts_code"`
	Name string `json:"name"`
}
