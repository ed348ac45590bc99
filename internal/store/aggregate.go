package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"

	"github.com/google/uuid"

	"github.com/syssam/ugc-subgraph/internal/review"
)

// recomputeOfferRating implements the aggregate-maintenance algorithm of
// §4.1: a pure function of the committed review rows for offerID, run
// inside the caller's transaction. It is strategy (b) from the spec — an
// idempotent recompute-from-truth, so the final state always equals the
// aggregate over the committed review set regardless of interleaving
// with concurrent writers on other reviews of the same offer.
//
// A per-offer advisory lock (scoped to the transaction) serializes
// concurrent recomputes of the *same* offer without taking a heavier
// table- or row-level lock, satisfying the "must not lose updates" race
// policy of §5.
func recomputeOfferRating(ctx context.Context, tx *sql.Tx, offerID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, offerID); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT rating, count(*)
		FROM reviews
		WHERE offer_id = $1 AND is_moderated = true AND deleted_at IS NULL
		GROUP BY rating`, offerID)
	if err != nil {
		return err
	}
	defer rows.Close()

	distribution := map[int]int{}
	total := 0
	sum := 0
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return err
		}
		distribution[rating] = count
		total += count
		sum += rating * count
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if total == 0 {
		_, err := tx.ExecContext(ctx, `DELETE FROM offer_ratings WHERE offer_id = $1`, offerID)
		return err
	}

	average := math.Round(float64(sum)/float64(total)*100) / 100
	distJSON, err := json.Marshal(distribution)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO offer_ratings (offer_id, average_rating, reviews_count, rating_distribution, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (offer_id) DO UPDATE SET
			average_rating = EXCLUDED.average_rating,
			reviews_count = EXCLUDED.reviews_count,
			rating_distribution = EXCLUDED.rating_distribution,
			updated_at = now()`,
		offerID, average, total, distJSON)
	return err
}

// GetAggregatesByOfferIDs implements review.Store's companion
// get_aggregates_by_offer_ids operation: the result is keyed by offer id,
// and an offer with no visible reviews has no entry in it (I5).
func (s *Store) GetAggregatesByOfferIDs(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*review.OfferRating, error) {
	const op = "store.GetAggregatesByOfferIDs"
	if len(offerIDs) == 0 {
		return map[uuid.UUID]*review.OfferRating{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT offer_id, average_rating, reviews_count, rating_distribution, updated_at
		FROM offer_ratings WHERE offer_id = ANY($1::uuid[])`, uuidArray(offerIDs))
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := map[uuid.UUID]*review.OfferRating{}
	for rows.Next() {
		var agg review.OfferRating
		var distJSON []byte
		if err := rows.Scan(&agg.OfferID, &agg.AverageRating, &agg.ReviewsCount, &distJSON, &agg.UpdatedAt); err != nil {
			return nil, classify(op, err)
		}
		dist := map[int]int{}
		if err := json.Unmarshal(distJSON, &dist); err != nil {
			return nil, classify(op, err)
		}
		agg.RatingDistribution = dist
		out[agg.OfferID] = &agg
	}
	return out, classify(op, rows.Err())
}
