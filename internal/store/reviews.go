package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/syssam/ugc-subgraph/internal/review"
)

const reviewColumns = `id, offer_id, author_id, rating, text, created_at, updated_at,
	is_moderated, moderation_status, deleted_at, helpful_count, report_count,
	moderated_by_id, moderated_at`

// scanReview scans one row in reviewColumns order.
func scanReview(row interface{ Scan(...any) error }) (*review.Review, error) {
	var r review.Review
	var deletedAt, moderatedAt sql.NullTime
	var moderatedBy uuid.NullUUID
	if err := row.Scan(
		&r.ID, &r.OfferID, &r.AuthorID, &r.Rating, &r.Text, &r.CreatedAt, &r.UpdatedAt,
		&r.IsModerated, &r.ModerationStatus, &deletedAt, &r.HelpfulCount, &r.ReportCount,
		&moderatedBy, &moderatedAt,
	); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		r.DeletedAt = &t
	}
	if moderatedAt.Valid {
		t := moderatedAt.Time
		r.ModeratedAt = &t
	}
	if moderatedBy.Valid {
		id := moderatedBy.UUID
		r.ModeratedByID = &id
	}
	return &r, nil
}

// InsertReview implements review.Store.InsertReview: insert, then
// recompute the offer's aggregate inside the same transaction (I5).
func (s *Store) InsertReview(ctx context.Context, r *review.Review) (*review.Review, error) {
	const op = "store.InsertReview"
	var out *review.Review
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO reviews (id, offer_id, author_id, rating, text, created_at, updated_at,
				is_moderated, moderation_status, helpful_count, report_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0)
			RETURNING `+reviewColumns,
			r.ID, r.OfferID, r.AuthorID, r.Rating, r.Text, r.CreatedAt, r.UpdatedAt,
			r.IsModerated, r.ModerationStatus,
		)
		inserted, err := scanReview(row)
		if err != nil {
			return err
		}
		out = inserted
		return recomputeOfferRating(ctx, tx, r.OfferID)
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

// GetReviewByID implements review.Store.GetReviewByID.
func (s *Store) GetReviewByID(ctx context.Context, id uuid.UUID) (*review.Review, error) {
	const op = "store.GetReviewByID"
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	r, err := scanReview(row)
	if err != nil {
		return nil, classify(op, err)
	}
	return r, nil
}

// GetReviewsByIDs implements the C1 batched "get_reviews_by_ids" operation:
// the found rows in no particular order, with missing ids simply absent
// (C3 realigns the returned slice to its keys by id).
func (s *Store) GetReviewsByIDs(ctx context.Context, ids []uuid.UUID) ([]*review.Review, error) {
	const op = "store.GetReviewsByIDs"
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ANY($1::uuid[])`, uuidArray(ids))
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var out []*review.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, r)
	}
	return out, classify(op, rows.Err())
}

// UpdateReview implements review.Store.UpdateReview: a dynamic partial
// update, recomputing the aggregate when rating or moderation state may
// have changed.
func (s *Store) UpdateReview(ctx context.Context, id uuid.UUID, patch review.Patch) (*review.Review, error) {
	const op = "store.UpdateReview"
	var out *review.Review
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanReview(tx.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		set := []string{"updated_at = now()"}
		args := []any{}
		arg := func(v any) string {
			args = append(args, v)
			return placeholder(len(args))
		}
		affectsAggregate := false

		if patch.Rating != nil {
			set = append(set, "rating = "+arg(*patch.Rating))
			affectsAggregate = true
		}
		if patch.Text != nil {
			set = append(set, "text = "+arg(*patch.Text))
		}
		if patch.IsModerated != nil {
			set = append(set, "is_moderated = "+arg(*patch.IsModerated))
			affectsAggregate = true
		}
		if patch.ModerationStatus != nil {
			set = append(set, "moderation_status = "+arg(*patch.ModerationStatus))
			affectsAggregate = true
		}
		if patch.ModeratedByID != nil {
			set = append(set, "moderated_by_id = "+arg(*patch.ModeratedByID))
			set = append(set, "moderated_at = now()")
		}
		if patch.HelpfulCountDiff != 0 {
			set = append(set, "helpful_count = helpful_count + "+arg(patch.HelpfulCountDiff))
		}
		if patch.ReportCountDiff != 0 {
			set = append(set, "report_count = report_count + "+arg(patch.ReportCountDiff))
		}

		args = append(args, id)
		query := "UPDATE reviews SET " + join(set, ", ") + " WHERE id = " + placeholder(len(args)) + " RETURNING " + reviewColumns
		updated, err := scanReview(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return err
		}
		out = updated

		if affectsAggregate {
			if err := recomputeOfferRating(ctx, tx, existing.OfferID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

// SoftDeleteReview implements review.Store.SoftDeleteReview: idempotent
// per L2 (setting deleted_at on an already-deleted row is a no-op).
func (s *Store) SoftDeleteReview(ctx context.Context, id uuid.UUID) error {
	const op = "store.SoftDeleteReview"
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanReview(tx.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if existing.DeletedAt != nil {
			return nil // already deleted: idempotent no-op, no aggregate churn
		}
		if _, err := tx.ExecContext(ctx, `UPDATE reviews SET deleted_at = now(), updated_at = now() WHERE id = $1`, id); err != nil {
			return err
		}
		return recomputeOfferRating(ctx, tx, existing.OfferID)
	})
	return classify(op, err)
}

// ExistsAuthorOffer implements review.Store.ExistsAuthorOffer: the
// duplicate-review uniqueness check of §4.5 (one review per author per
// offer, ignoring soft-deleted rows).
func (s *Store) ExistsAuthorOffer(ctx context.Context, authorID, offerID uuid.UUID) (bool, error) {
	const op = "store.ExistsAuthorOffer"
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE author_id = $1 AND offer_id = $2 AND deleted_at IS NULL
		)`, authorID, offerID).Scan(&exists)
	if err != nil {
		return false, classify(op, err)
	}
	return exists, nil
}
