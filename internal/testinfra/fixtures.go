// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package testinfra

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/tomtom215/trailatlas/internal/models"
)

// Square returns a closed one-ring polygon with its lower-left corner at
// (lon, lat).
func Square(lon, lat, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{lon, lat},
		{lon + size, lat},
		{lon + size, lat + size},
		{lon, lat + size},
		{lon, lat},
	}}
}

// Tracks used across package tests.
var (
	TrackM1   = models.Track{{10.2, 50.5}, {10.8, 50.5}}
	TrackM1M2 = models.Track{{10.5, 50.5}, {11.5, 50.5}}
	TrackM3   = models.Track{{20.2, 50.2}, {20.4, 50.4}}
	TrackM4   = models.Track{{12.2, 50.2}, {12.4, 50.4}}
	TrackSea  = models.Track{{-30, 40}, {-29, 41}}
)

// LocalUnits returns the fixture local units.
func LocalUnits() []models.Region {
	return []models.Region{
		{ID: "M1", Name: "Municipality One", CountryCode: "X", Classification: models.LocalUnit, Geometry: Square(10, 50, 1)},
		{ID: "M2", Name: "Municipality Two", CountryCode: "X", Classification: models.LocalUnit, Geometry: Square(11, 50, 1)},
		{ID: "M3", Name: "Municipality Three", CountryCode: "Y", Classification: models.LocalUnit, Geometry: Square(20, 50, 1)},
		{ID: "M4", Name: "Unmapped Municipality", CountryCode: "X", Classification: models.LocalUnit, Geometry: Square(12, 50, 1)},
	}
}

// StatisticalRegions returns the fixture NUTS regions at all four levels.
func StatisticalRegions() []models.Region {
	x := Square(10, 50, 3)
	y := Square(20, 50, 1)
	return []models.Region{
		{ID: "X", Name: "Xland", CountryCode: "X", Classification: models.Statistical0, Geometry: x},
		{ID: "Y", Name: "Yland", CountryCode: "Y", Classification: models.Statistical0, Geometry: y},
		{ID: "X1", Name: "X North", CountryCode: "X", Classification: models.Statistical1, Geometry: x},
		{ID: "Y1", Name: "Y North", CountryCode: "Y", Classification: models.Statistical1, Geometry: y},
		{ID: "X12", Name: "X North Two", CountryCode: "X", Classification: models.Statistical2, Geometry: Square(10, 50, 2)},
		{ID: "Y11", Name: "Y North One", CountryCode: "Y", Classification: models.Statistical2, Geometry: y},
		{ID: "X123", Name: "X District 3", CountryCode: "X", Classification: models.Statistical3, Geometry: Square(10, 50, 1)},
		{ID: "X124", Name: "X District 4", CountryCode: "X", Classification: models.Statistical3, Geometry: Square(11, 50, 1)},
		{ID: "Y111", Name: "Y District 1", CountryCode: "Y", Classification: models.Statistical3, Geometry: y},
	}
}

// Mapping returns the fixture hierarchy. M4 is deliberately absent.
func Mapping() map[string]models.HierarchyParents {
	return map[string]models.HierarchyParents{
		"M1": {"X", "X1", "X12", "X123"},
		"M2": {"X", "X1", "X12", "X124"},
		"M3": {"Y", "Y1", "Y11", "Y111"},
	}
}

// StaticSource serves fixed datasets and counts how often it was asked.
type StaticSource struct {
	Locals      []models.Region
	Statistical []models.Region
	Hierarchy   map[string]models.HierarchyParents
	Err         error

	Calls int
}

// NewStaticSource returns a source serving the standard fixture.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		Locals:      LocalUnits(),
		Statistical: StatisticalRegions(),
		Hierarchy:   Mapping(),
	}
}

// LocalUnits implements catalog.Source.
func (s *StaticSource) LocalUnits(context.Context) ([]models.Region, error) {
	s.Calls++
	return s.Locals, s.Err
}

// StatisticalRegions implements catalog.Source.
func (s *StaticSource) StatisticalRegions(context.Context) ([]models.Region, error) {
	return s.Statistical, s.Err
}

// HierarchyMapping implements catalog.Source.
func (s *StaticSource) HierarchyMapping(context.Context) (map[string]models.HierarchyParents, error) {
	return s.Hierarchy, s.Err
}
