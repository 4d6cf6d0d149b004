// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/trailatlas/internal/database"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
)

// CredentialKeyPrefix marks settings that hold OAuth credentials.
const CredentialKeyPrefix = "strava_"

// ResetScope selects how much user data a reset removes.
type ResetScope int

const (
	// ResetScopeDerived clears links and first visited dates only.
	ResetScopeDerived ResetScope = iota
	// ResetScopeActivities also clears activities, tracks and sync metadata.
	ResetScopeActivities
	// ResetScopeAll also clears settings. Credentials stored under
	// CredentialKeyPrefix survive so a full resync can follow.
	ResetScopeAll
)

func (r ResetScope) String() string {
	switch r {
	case ResetScopeDerived:
		return "derived"
	case ResetScopeActivities:
		return "activities"
	case ResetScopeAll:
		return "all"
	}
	return fmt.Sprintf("reset_scope(%d)", int(r))
}

// ParseResetScope accepts derived, activities and all.
func ParseResetScope(s string) (ResetScope, error) {
	switch s {
	case "derived":
		return ResetScopeDerived, nil
	case "activities":
		return ResetScopeActivities, nil
	case "all":
		return ResetScopeAll, nil
	}
	return 0, fmt.Errorf("unknown reset scope %q", s)
}

// Reset removes user data for scope in one transaction.
func (s *Store) Reset(ctx context.Context, scope ResetScope) error {
	stmts := make([]string, 0, 10)
	for _, class := range models.Classifications {
		stmts = append(stmts, `DELETE FROM `+class.LinkTable())
	}
	stmts = append(stmts, `DELETE FROM first_visited`)

	switch scope {
	case ResetScopeDerived:
		stmts = append(stmts, `UPDATE activities SET attributed_at = NULL`)
	case ResetScopeActivities:
		stmts = append(stmts, `DELETE FROM activities`, `DELETE FROM metadata`)
	case ResetScopeAll:
		stmts = append(stmts, `DELETE FROM activities`, `DELETE FROM metadata`,
			`DELETE FROM settings WHERE NOT starts_with(key, '`+CredentialKeyPrefix+`')`)
	default:
		return fmt.Errorf("unknown reset scope %d", scope)
	}

	err := s.db.WithTx(ctx, func(tx database.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("reset %s: %s: %w", scope, stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.Info().Str("scope", scope.String()).Msg("User data reset")
	return nil
}

// ResetAll clears activities, links, first visited dates, metadata and
// every non-credential setting.
func (s *Store) ResetAll(ctx context.Context) error { return s.Reset(ctx, ResetScopeAll) }

// ResetActivities clears activities, links and first visited dates but keeps settings.
func (s *Store) ResetActivities(ctx context.Context) error {
	return s.Reset(ctx, ResetScopeActivities)
}

// ResetDerived clears links and first visited dates only.
func (s *Store) ResetDerived(ctx context.Context) error { return s.Reset(ctx, ResetScopeDerived) }

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
