package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syssam/ugc-subgraph/internal/cursor"
	"github.com/syssam/ugc-subgraph/internal/review"
)

// Filter narrows List to the filter dimensions of §6:
// offer_id, author_id, rating, moderation_status.
type Filter struct {
	OfferID          *uuid.UUID
	AuthorID         *uuid.UUID
	Rating           *int
	ModerationStatus *review.Status

	// VisibleOnly restricts results to visible reviews (I3); a privileged
	// caller (moderation queue) sets this false to see every status.
	VisibleOnly bool
}

// List implements list_reviews_for_offer / list_reviews_for_author (§4.1),
// generalized over Filter: ordered by (created_at DESC, id DESC), forward
// keyset pagination via an optional cursor boundary.
func (s *Store) List(ctx context.Context, filter Filter, after *cursor.Cursor, limit int) ([]*review.Review, bool, error) {
	const op = "store.List"

	where := []string{"deleted_at IS NULL"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.VisibleOnly {
		where = append(where, "is_moderated = true")
	}
	if filter.OfferID != nil {
		where = append(where, "offer_id = "+arg(*filter.OfferID))
	}
	if filter.AuthorID != nil {
		where = append(where, "author_id = "+arg(*filter.AuthorID))
	}
	if filter.Rating != nil {
		where = append(where, "rating = "+arg(*filter.Rating))
	}
	if filter.ModerationStatus != nil {
		where = append(where, "moderation_status = "+arg(*filter.ModerationStatus))
	}
	if after != nil {
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(after.CreatedAt), arg(after.ID)))
	}

	args = append(args, limit+1)
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE ` + join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ` + placeholder(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, classify(op, err)
	}
	defer rows.Close()

	var out []*review.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, false, classify(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, classify(op, err)
	}

	hasNext := len(out) > limit
	if hasNext {
		out = out[:limit]
	}
	return out, hasNext, nil
}
