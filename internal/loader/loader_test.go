package loader

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ugc-subgraph/internal/requestctx"
	"github.com/syssam/ugc-subgraph/internal/review"
	"github.com/syssam/ugc-subgraph/internal/siblingclient"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeStore struct {
	reviewCalls int32
	aggCalls    int32
	reviews     map[uuid.UUID]*review.Review
	aggregates  map[uuid.UUID]*review.OfferRating
}

func (f *fakeStore) GetReviewsByIDs(ctx context.Context, ids []uuid.UUID) ([]*review.Review, error) {
	atomic.AddInt32(&f.reviewCalls, 1)
	out := make([]*review.Review, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.reviews[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAggregatesByOfferIDs(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*review.OfferRating, error) {
	atomic.AddInt32(&f.aggCalls, 1)
	return f.aggregates, nil
}

func TestReviewByID_BatchesIntoSingleStoreCall(t *testing.T) {
	r1 := &review.Review{ID: uuid.New(), Text: "a", IsModerated: true}
	r2 := &review.Review{ID: uuid.New(), Text: "b", IsModerated: true}
	st := &fakeStore{reviews: map[uuid.UUID]*review.Review{r1.ID: r1, r2.ID: r2}}

	loaders := New(st, siblingclient.Clients{
		Users:  siblingclient.NewClient(siblingclient.Config{Name: "users", Breaker: siblingclient.DefaultBreakerSettings("users")}, testLogger()),
		Offers: siblingclient.NewClient(siblingclient.Config{Name: "offers", Breaker: siblingclient.DefaultBreakerSettings("offers")}, testLogger()),
	})

	got, errs := loaders.ReviewByID.LoadMany(context.Background(), []uuid.UUID{r1.ID, r2.ID})()
	require.Len(t, errs, 2)
	for _, e := range errs {
		require.NoError(t, e)
	}
	assert.Equal(t, r1, got[0])
	assert.Equal(t, r2, got[1])
	assert.Equal(t, int32(1), atomic.LoadInt32(&st.reviewCalls), "2 distinct ids must resolve through exactly one store call")
}

func TestReviewByID_HidesUnmoderatedReviewFromNonPrivilegedCaller(t *testing.T) {
	pending := &review.Review{ID: uuid.New(), Text: "pending review", IsModerated: false}
	st := &fakeStore{reviews: map[uuid.UUID]*review.Review{pending.ID: pending}}
	loaders := New(st, siblingclient.Clients{
		Users:  siblingclient.NewClient(siblingclient.Config{Name: "users", Breaker: siblingclient.DefaultBreakerSettings("users")}, testLogger()),
		Offers: siblingclient.NewClient(siblingclient.Config{Name: "offers", Breaker: siblingclient.DefaultBreakerSettings("offers")}, testLogger()),
	})

	ctx := requestctx.With(context.Background(), &requestctx.Context{Principal: review.Principal{Anonymous: true}})
	_, err := loaders.ReviewByID.Load(ctx, pending.ID)()
	assert.Error(t, err, "an unmoderated review must be invisible to a non-privileged caller, indistinguishable from a missing id")
}

func TestReviewByID_PrivilegedCallerSeesUnmoderatedReview(t *testing.T) {
	pending := &review.Review{ID: uuid.New(), Text: "pending review", IsModerated: false}
	st := &fakeStore{reviews: map[uuid.UUID]*review.Review{pending.ID: pending}}
	loaders := New(st, siblingclient.Clients{
		Users:  siblingclient.NewClient(siblingclient.Config{Name: "users", Breaker: siblingclient.DefaultBreakerSettings("users")}, testLogger()),
		Offers: siblingclient.NewClient(siblingclient.Config{Name: "offers", Breaker: siblingclient.DefaultBreakerSettings("offers")}, testLogger()),
	})

	ctx := requestctx.With(context.Background(), &requestctx.Context{Principal: review.Principal{Privileged: true}})
	got, err := loaders.ReviewByID.Load(ctx, pending.ID)()
	require.NoError(t, err)
	assert.Same(t, pending, got)
}

func TestAggregateByOfferID_AbsentEntryIsZeroValueNotError(t *testing.T) {
	rated := uuid.New()
	unrated := uuid.New()
	st := &fakeStore{aggregates: map[uuid.UUID]*review.OfferRating{
		rated: {OfferID: rated, AverageRating: 4.5, ReviewsCount: 2},
	}}
	loaders := New(st, siblingclient.Clients{
		Users:  siblingclient.NewClient(siblingclient.Config{Name: "users", Breaker: siblingclient.DefaultBreakerSettings("users")}, testLogger()),
		Offers: siblingclient.NewClient(siblingclient.Config{Name: "offers", Breaker: siblingclient.DefaultBreakerSettings("offers")}, testLogger()),
	})

	got, errs := loaders.AggregateByOfferID.LoadMany(context.Background(), []uuid.UUID{rated, unrated})()
	for _, e := range errs {
		require.NoError(t, e)
	}
	assert.Equal(t, 4.5, got[0].AverageRating)
	assert.Nil(t, got[1])
}

func TestWithLoadersAndFor_RoundTrip(t *testing.T) {
	st := &fakeStore{reviews: map[uuid.UUID]*review.Review{}}
	loaders := New(st, siblingclient.Clients{
		Users:  siblingclient.NewClient(siblingclient.Config{Name: "users", Breaker: siblingclient.DefaultBreakerSettings("users")}, testLogger()),
		Offers: siblingclient.NewClient(siblingclient.Config{Name: "offers", Breaker: siblingclient.DefaultBreakerSettings("offers")}, testLogger()),
	})
	ctx := WithLoaders(context.Background(), loaders)
	assert.Same(t, loaders, For(ctx))
}
