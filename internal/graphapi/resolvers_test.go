package graphapi

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ugc-subgraph/internal/cursor"
	"github.com/syssam/ugc-subgraph/internal/entity"
	"github.com/syssam/ugc-subgraph/internal/loader"
	"github.com/syssam/ugc-subgraph/internal/requestctx"
	"github.com/syssam/ugc-subgraph/internal/review"
	"github.com/syssam/ugc-subgraph/internal/siblingclient"
	"github.com/syssam/ugc-subgraph/internal/store"
	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeService struct {
	createFn func(ctx context.Context, p review.Principal, in review.CreateInput) (*review.Review, error)
}

func (f *fakeService) Create(ctx context.Context, p review.Principal, in review.CreateInput) (*review.Review, error) {
	return f.createFn(ctx, p, in)
}
func (f *fakeService) Update(ctx context.Context, p review.Principal, id uuid.UUID, in review.UpdateInput) (*review.Review, error) {
	return nil, nil
}
func (f *fakeService) Delete(ctx context.Context, p review.Principal, id uuid.UUID) error { return nil }
func (f *fakeService) Moderate(ctx context.Context, p review.Principal, id uuid.UUID, newStatus review.Status) (*review.Review, error) {
	return nil, nil
}
func (f *fakeService) MarkHelpful(ctx context.Context, p review.Principal, id uuid.UUID) (*review.Review, error) {
	return nil, nil
}

type fakeListStore struct {
	reviews []*review.Review
	hasNext bool
}

func (f *fakeListStore) List(ctx context.Context, filter store.Filter, after *cursor.Cursor, limit int) ([]*review.Review, bool, error) {
	return f.reviews, f.hasNext, nil
}

type fakeLoaderStore struct {
	byID map[uuid.UUID]*review.Review
}

func (f *fakeLoaderStore) GetReviewsByIDs(ctx context.Context, ids []uuid.UUID) ([]*review.Review, error) {
	out := make([]*review.Review, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLoaderStore) GetAggregatesByOfferIDs(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*review.OfferRating, error) {
	return map[uuid.UUID]*review.OfferRating{}, nil
}

func testContext(rv *review.Review) context.Context {
	st := &fakeLoaderStore{byID: map[uuid.UUID]*review.Review{}}
	if rv != nil {
		st.byID[rv.ID] = rv
	}
	clients := siblingclient.Clients{
		Users:  siblingclient.NewClient(siblingclient.Config{Name: "users", Breaker: siblingclient.DefaultBreakerSettings("users")}, testLogger()),
		Offers: siblingclient.NewClient(siblingclient.Config{Name: "offers", Breaker: siblingclient.DefaultBreakerSettings("offers")}, testLogger()),
	}
	ctx := loader.WithLoaders(context.Background(), loader.New(st, clients))
	return requestctx.With(ctx, &requestctx.Context{Principal: review.Principal{UserID: uuid.New()}})
}

func TestReviewQuery_HappyPath(t *testing.T) {
	rv := &review.Review{ID: uuid.New(), OfferID: uuid.New(), AuthorID: uuid.New(), Rating: 5, Text: "great product overall", CreatedAt: time.Now(), UpdatedAt: time.Now(), ModerationStatus: review.StatusApproved, IsModerated: true}
	r := New(&fakeService{}, &fakeListStore{}, entity.New(func(ctx context.Context, id uuid.UUID) (*review.Review, error) { return nil, nil }))
	schema, err := BuildSchema(r)
	require.NoError(t, err)

	query := `query($id: ID!) { review(id: $id) { id rating text } }`
	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: map[string]interface{}{"id": rv.ID.String()},
		Context:        testContext(rv),
	})
	require.Empty(t, result.Errors)
	data := result.Data.(map[string]interface{})
	reviewData := data["review"].(map[string]interface{})
	assert.Equal(t, rv.ID.String(), reviewData["id"])
	assert.Equal(t, 5, reviewData["rating"])
}

func TestReviewQuery_HidesUnmoderatedReviewFromNonPrivilegedCaller(t *testing.T) {
	rv := &review.Review{ID: uuid.New(), OfferID: uuid.New(), AuthorID: uuid.New(), Rating: 3, Text: "awaiting moderation", CreatedAt: time.Now(), UpdatedAt: time.Now(), ModerationStatus: review.StatusPending, IsModerated: false}
	r := New(&fakeService{}, &fakeListStore{}, entity.New(func(ctx context.Context, id uuid.UUID) (*review.Review, error) { return nil, nil }))
	schema, err := BuildSchema(r)
	require.NoError(t, err)

	query := `query($id: ID!) { review(id: $id) { id } }`
	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: map[string]interface{}{"id": rv.ID.String()},
		Context:        testContext(rv),
	})
	require.NotEmpty(t, result.Errors, "an unmoderated review must be invisible to a non-privileged caller (I3)")
}

func TestCreateReviewMutation_ValidationFailureBecomesUserError(t *testing.T) {
	svc := &fakeService{createFn: func(ctx context.Context, p review.Principal, in review.CreateInput) (*review.Review, error) {
		return nil, ugcerr.NewField("review.Service.Create", "text", assert.AnError)
	}}
	r := New(svc, &fakeListStore{}, entity.New(func(ctx context.Context, id uuid.UUID) (*review.Review, error) { return nil, nil }))
	schema, err := BuildSchema(r)
	require.NoError(t, err)

	query := `mutation($input: CreateReviewInput!) { createReview(input: $input) { review { id } userErrors { message code } } }`
	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		VariableValues: map[string]interface{}{"input": map[string]interface{}{
			"offerId": uuid.New().String(), "rating": 5, "text": "too short",
		}},
		Context: testContext(nil),
	})
	require.Empty(t, result.Errors, "business-rule failures must not become transport-level errors")
	payload := result.Data.(map[string]interface{})["createReview"].(map[string]interface{})
	assert.Nil(t, payload["review"])
	userErrors := payload["userErrors"].([]interface{})
	require.Len(t, userErrors, 1)
}
