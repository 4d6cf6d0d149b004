// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package attribution

import (
	"sort"

	"github.com/tomtom215/trailatlas/internal/models"
)

// LinkSet is the set of regions one activity touches, per classification.
type LinkSet struct {
	byClass [5]map[string]struct{}
}

// NewLinkSet returns an empty set.
func NewLinkSet() LinkSet {
	var s LinkSet
	for i := range s.byClass {
		s.byClass[i] = make(map[string]struct{})
	}
	return s
}

// Add inserts id at class. Empty ids and unknown classes are ignored.
func (s *LinkSet) Add(class models.Classification, id string) {
	if id == "" || !class.Valid() {
		return
	}
	if s.byClass[class] == nil {
		s.byClass[class] = make(map[string]struct{})
	}
	s.byClass[class][id] = struct{}{}
}

// ByClass returns the region ids at class in ascending order.
func (s LinkSet) ByClass(class models.Classification) []string {
	if !class.Valid() {
		return nil
	}
	ids := make([]string, 0, len(s.byClass[class]))
	for id := range s.byClass[class] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contains reports whether id is linked at class.
func (s LinkSet) Contains(class models.Classification, id string) bool {
	if !class.Valid() {
		return false
	}
	_, ok := s.byClass[class][id]
	return ok
}

// Len returns the total number of links across all classifications.
func (s LinkSet) Len() int {
	n := 0
	for _, m := range s.byClass {
		n += len(m)
	}
	return n
}

// Empty reports whether the set has no links.
func (s LinkSet) Empty() bool {
	return s.Len() == 0
}
