package store

import (
	"context"
	"log/slog"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ugc-subgraph/internal/review"
	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, logger), mock
}

func reviewRow() *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"id", "offer_id", "author_id", "rating", "text", "created_at", "updated_at",
			"is_moderated", "moderation_status", "deleted_at", "helpful_count", "report_count",
			"moderated_by_id", "moderated_at"},
	)
}

func TestInsertReview_TriggersAggregateRecompute(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()
	id := uuid.New()
	offer := uuid.New()
	author := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reviews`).
		WillReturnRows(reviewRow().AddRow(id, offer, author, 5, "hello world", now, now, false, review.StatusPending, nil, 0, 0, nil, nil))
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT rating, count\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"rating", "count"})) // no visible reviews yet (pending)
	mock.ExpectExec(`DELETE FROM offer_ratings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := &review.Review{ID: id, OfferID: offer, AuthorID: author, Rating: 5, Text: "hello world", CreatedAt: now, UpdatedAt: now, ModerationStatus: review.StatusPending}
	out, err := s.InsertReview(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, id, out.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReview_DuplicateMapsToDuplicateReview(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reviews`).WillReturnError(&dupErr{})
	mock.ExpectRollback()

	_, err := s.InsertReview(context.Background(), &review.Review{ID: uuid.New(), OfferID: uuid.New(), AuthorID: uuid.New(), Rating: 3, Text: "x"})
	require.Error(t, err)
	assert.Equal(t, ugcerr.KindDuplicateReview, ugcerr.Of(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

// dupErr carries only the message text of a unique violation, not a
// SQLSTATE, so it exercises classify's message-matching fallback.
type dupErr struct{}

func (d *dupErr) Error() string { return "pq: duplicate key value violates unique constraint" }

func TestGetReviewByID_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM reviews WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(reviewRow())

	_, err := s.GetReviewByID(context.Background(), id)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_HasNextPage(t *testing.T) {
	s, mock := newTestStore(t)
	offer := uuid.New()
	now := time.Now()

	rows := reviewRow()
	for i := 0; i < 3; i++ {
		rows.AddRow(uuid.New(), offer, uuid.New(), 4, "review text long enough", now, now, true, review.StatusApproved, nil, 0, 0, nil, nil)
	}
	mock.ExpectQuery(`SELECT .* FROM reviews WHERE`).WillReturnRows(rows)

	got, hasNext, err := s.List(context.Background(), Filter{OfferID: &offer, VisibleOnly: true}, nil, 2)
	require.NoError(t, err)
	assert.True(t, hasNext)
	assert.Len(t, got, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAggregatesByOfferIDs_AbsentOfferHasNoEntry(t *testing.T) {
	s, mock := newTestStore(t)
	offerWithRating := uuid.New()
	offerWithout := uuid.New()

	mock.ExpectQuery(`SELECT offer_id, average_rating`).
		WillReturnRows(sqlmock.NewRows([]string{"offer_id", "average_rating", "reviews_count", "rating_distribution", "updated_at"}).
			AddRow(offerWithRating, 4.50, 2, []byte(`{"4":1,"5":1}`), time.Now()))

	got, err := s.GetAggregatesByOfferIDs(context.Background(), []uuid.UUID{offerWithRating, offerWithout})
	require.NoError(t, err)
	assert.Contains(t, got, offerWithRating)
	assert.NotContains(t, got, offerWithout)
	assert.Equal(t, 4.50, got[offerWithRating].AverageRating)
	require.NoError(t, mock.ExpectationsWereMet())
}
