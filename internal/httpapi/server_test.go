package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ugc-subgraph/internal/cursor"
	"github.com/syssam/ugc-subgraph/internal/entity"
	"github.com/syssam/ugc-subgraph/internal/graphapi"
	"github.com/syssam/ugc-subgraph/internal/metrics"
	"github.com/syssam/ugc-subgraph/internal/review"
	"github.com/syssam/ugc-subgraph/internal/siblingclient"
	"github.com/syssam/ugc-subgraph/internal/store"
)

type noopService struct{}

func (noopService) Create(ctx context.Context, p review.Principal, in review.CreateInput) (*review.Review, error) {
	return nil, nil
}
func (noopService) Update(ctx context.Context, p review.Principal, id uuid.UUID, in review.UpdateInput) (*review.Review, error) {
	return nil, nil
}
func (noopService) Delete(ctx context.Context, p review.Principal, id uuid.UUID) error { return nil }
func (noopService) Moderate(ctx context.Context, p review.Principal, id uuid.UUID, s review.Status) (*review.Review, error) {
	return nil, nil
}
func (noopService) MarkHelpful(ctx context.Context, p review.Principal, id uuid.UUID) (*review.Review, error) {
	return nil, nil
}

type noopListStore struct{}

func (noopListStore) List(ctx context.Context, filter store.Filter, after *cursor.Cursor, limit int) ([]*review.Review, bool, error) {
	return nil, false, nil
}

type noopLoaderStore struct{}

func (noopLoaderStore) GetReviewsByIDs(ctx context.Context, ids []uuid.UUID) ([]*review.Review, error) {
	return nil, nil
}
func (noopLoaderStore) GetAggregatesByOfferIDs(ctx context.Context, offerIDs []uuid.UUID) (map[uuid.UUID]*review.OfferRating, error) {
	return map[uuid.UUID]*review.OfferRating{}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	clients := siblingclient.Clients{
		Users:  siblingclient.NewClient(siblingclient.Config{Name: "users", Breaker: siblingclient.DefaultBreakerSettings("users")}, testLogger()),
		Offers: siblingclient.NewClient(siblingclient.Config{Name: "offers", Breaker: siblingclient.DefaultBreakerSettings("offers")}, testLogger()),
	}
	r := graphapi.New(noopService{}, noopListStore{}, entity.New(func(ctx context.Context, id uuid.UUID) (*review.Review, error) { return nil, nil }))
	srv, err := graphapi.NewServer(r, graphapi.Gate{MaxDepth: 10, MaxComplexity: 1000})
	require.NoError(t, err)

	return NewRouter(srv, noopLoaderStore{}, clients, db, metrics.NewRegistry(nil), testLogger(), Config{MaxInflight: 100, JWTIssuer: "ugc-subgraph"})
}

func TestNewRouter_Healthz(t *testing.T) {
	r := newTestRouter(t, fakePinger{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_ReadyzReportsDBDown(t *testing.T) {
	r := newTestRouter(t, fakePinger{err: sql.ErrConnDone})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewRouter_GraphQLHappyPath(t *testing.T) {
	r := newTestRouter(t, fakePinger{})
	body, _ := json.Marshal(map[string]any{"query": `{ review(id: "` + uuid.New().String() + `") { id } }`})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
