// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

/*
Package credentials stores the activity source tokens and athlete identity.

Two backends are available:

  - settings: key/value rows in the user store's settings table (default)
  - badger: an embedded BadgerDB directory, useful when the user store is
    reset often or lives on a read-mostly volume

When a secret key is configured every value is sealed with NaCl secretbox
before it reaches the backend. Keys are never sealed, so a backend can still
be inspected to see which credentials are present.

Usage:

	store, err := credentials.Open(cfg.Credentials, ledgerStore)
	if err != nil {
	    return err
	}
	defer store.Close()

	token, err := store.Get(ctx, credentials.KeyRefreshToken)
	if errors.Is(err, credentials.ErrNotFound) {
	    // not connected yet
	}
*/
package credentials
