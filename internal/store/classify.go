package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23), same
// codes the teacher's dialect/sql/sqlgraph/errors.go sniffs for.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation       = "23514"
)

// classify maps a raw database/sql or lib/pq error into the flat error
// kinds of §7: unique violations become KindDuplicateReview, foreign-key
// and check violations become KindInvalid, missing rows become
// KindNotFound, context cancellation becomes
// KindCancelled, and anything else is treated as a transient backend
// failure so callers may retry.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ugcerr.New(ugcerr.KindNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ugcerr.New(ugcerr.KindCancelled, op, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return ugcerr.New(ugcerr.KindDuplicateReview, op, err)
		case pgForeignKeyViolation, pgCheckViolation:
			return ugcerr.New(ugcerr.KindInvalid, op, err)
		}
		// Any other SQLSTATE from the driver is treated as transient:
		// connection-level and resource-class codes dominate the
		// remaining space and are safely retryable.
		return ugcerr.New(ugcerr.KindTransient, op, err)
	}

	if containsAny(err.Error(), "violates unique constraint") {
		return ugcerr.New(ugcerr.KindDuplicateReview, op, err)
	}
	if containsAny(err.Error(), "violates foreign key constraint", "violates check constraint") {
		return ugcerr.New(ugcerr.KindInvalid, op, err)
	}

	return ugcerr.New(ugcerr.KindTransient, op, err)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
