// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package validation wraps go-playground/validator v10 with one shared
// instance for configuration and request structs.
//
// Custom tags:
//   - countrycode: one to three ASCII letters, either case
//   - classification: lau, 0..3 or nuts0..nuts3
//
// ValidateStruct returns a *RequestValidationError whose messages are
// readable without knowing the tag names:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, "Invalid query parameters", verr.Details())
//	    return
//	}
package validation
