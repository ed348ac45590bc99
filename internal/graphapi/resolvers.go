package graphapi

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/google/uuid"

	"github.com/syssam/ugc-subgraph/internal/cursor"
	"github.com/syssam/ugc-subgraph/internal/entity"
	"github.com/syssam/ugc-subgraph/internal/loader"
	"github.com/syssam/ugc-subgraph/internal/requestctx"
	"github.com/syssam/ugc-subgraph/internal/review"
	"github.com/syssam/ugc-subgraph/internal/store"
	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

const (
	defaultFirst = 20
	maxFirst     = 100
)

// Service is the subset of review.Service resolvers call into. Declared
// locally so resolver tests can substitute a fake without constructing a
// real Store.
type Service interface {
	Create(ctx context.Context, p review.Principal, in review.CreateInput) (*review.Review, error)
	Update(ctx context.Context, p review.Principal, id uuid.UUID, in review.UpdateInput) (*review.Review, error)
	Delete(ctx context.Context, p review.Principal, id uuid.UUID) error
	Moderate(ctx context.Context, p review.Principal, id uuid.UUID, newStatus review.Status) (*review.Review, error)
	MarkHelpful(ctx context.Context, p review.Principal, id uuid.UUID) (*review.Review, error)
}

// ListStore is the subset of internal/store used directly by query
// resolvers that are not yet batched through a C3 loader (list queries
// are request-shaped, not keyed, so they bypass the loader by design —
// §4.3 batches *keyed* lookups, not arbitrary filtered scans).
type ListStore interface {
	List(ctx context.Context, filter store.Filter, after *cursor.Cursor, limit int) ([]*review.Review, bool, error)
}

// Resolvers bundles every dependency C6 composes (§2 Flow: "C6 fetches
// through C3 or delegates writes to C5").
type Resolvers struct {
	svc    Service
	list   ListStore
	entity *entity.Resolver
}

func New(svc Service, list ListStore, ent *entity.Resolver) *Resolvers {
	return &Resolvers{svc: svc, list: list, entity: ent}
}

// clampFirst enforces §6's pagination boundary: first clamped to
// [1, 100], default 20 when omitted.
func clampFirst(v interface{}) (int, error) {
	if v == nil {
		return defaultFirst, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, ugcerr.NewField("graphapi.clampFirst", "first", errInvalidFirst)
	}
	if n < 1 || n > maxFirst {
		return 0, ugcerr.NewField("graphapi.clampFirst", "first", errInvalidFirst)
	}
	return n, nil
}

func parseAfter(v interface{}) (*cursor.Cursor, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, nil
	}
	c, err := cursor.Decode(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func buildConnection(reviews []*review.Review, hasNext bool) map[string]any {
	edges := make([]map[string]any, len(reviews))
	for i, r := range reviews {
		edges[i] = map[string]any{
			"node":   r,
			"cursor": cursor.Encode(cursor.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}),
		}
	}
	var endCursor any
	if len(reviews) > 0 {
		endCursor = edges[len(edges)-1]["cursor"]
	}
	return map[string]any{
		"edges": edges,
		"pageInfo": map[string]any{
			"hasNextPage": hasNext,
			"endCursor":   endCursor,
		},
	}
}

// resolveList is shared by reviews/reviewsForOffer/reviewsByAuthor: only
// a privileged caller's request sees non-approved reviews (I3).
func (r *Resolvers) resolveList(ctx context.Context, filter store.Filter, firstArg, afterArg interface{}) (any, error) {
	first, err := clampFirst(firstArg)
	if err != nil {
		return nil, toFieldError(err)
	}
	after, err := parseAfter(afterArg)
	if err != nil {
		return nil, toFieldError(err)
	}
	rc := requestctx.From(ctx)
	filter.VisibleOnly = !rc.Principal.Privileged

	reviews, hasNext, err := r.list.List(ctx, filter, after, first)
	if err != nil {
		return nil, toFieldError(err)
	}
	return buildConnection(reviews, hasNext), nil
}

func (r *Resolvers) reviewQuery(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseUUID(p.Args["id"])
	if !ok {
		return nil, toFieldError(ugcerr.NewField("graphapi.review", "id", errInvalidID))
	}
	rv, err := loader.For(p.Context).ReviewByID.Load(p.Context, id)()
	if err != nil {
		return nil, toFieldError(err)
	}
	return rv, nil
}

func (r *Resolvers) reviewsQuery(p graphql.ResolveParams) (interface{}, error) {
	filter := store.Filter{}
	if f, ok := p.Args["filter"].(map[string]interface{}); ok {
		if id, ok := parseUUID(f["offerId"]); ok {
			filter.OfferID = &id
		}
		if id, ok := parseUUID(f["authorId"]); ok {
			filter.AuthorID = &id
		}
		if rating, ok := f["rating"].(int); ok {
			filter.Rating = &rating
		}
		if ms, ok := f["moderationStatus"].(string); ok {
			status := review.Status(ms)
			filter.ModerationStatus = &status
		}
	}
	return r.resolveList(p.Context, filter, p.Args["first"], p.Args["after"])
}

func (r *Resolvers) reviewsForOfferQuery(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseUUID(p.Args["offerId"])
	if !ok {
		return nil, toFieldError(ugcerr.NewField("graphapi.reviewsForOffer", "offerId", errInvalidID))
	}
	return r.resolveList(p.Context, store.Filter{OfferID: &id}, p.Args["first"], p.Args["after"])
}

func (r *Resolvers) reviewsByAuthorQuery(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseUUID(p.Args["authorId"])
	if !ok {
		return nil, toFieldError(ugcerr.NewField("graphapi.reviewsByAuthor", "authorId", errInvalidID))
	}
	return r.resolveList(p.Context, store.Filter{AuthorID: &id}, p.Args["first"], p.Args["after"])
}

func (r *Resolvers) offerAggregateQuery(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseUUID(p.Args["offerId"])
	if !ok {
		return nil, toFieldError(ugcerr.NewField("graphapi.offerAggregate", "offerId", errInvalidID))
	}
	agg, err := loader.For(p.Context).AggregateByOfferID.Load(p.Context, id)()
	if err != nil {
		return nil, toFieldError(err)
	}
	if agg == nil {
		return nil, nil
	}
	return aggregateToMap(agg), nil
}

func aggregateToMap(agg *review.OfferRating) map[string]any {
	entries := make([]map[string]any, 0, len(agg.RatingDistribution))
	for rating, count := range agg.RatingDistribution {
		entries = append(entries, map[string]any{"rating": rating, "count": count})
	}
	return map[string]any{
		"offerId":       agg.OfferID.String(),
		"averageRating": agg.AverageRating,
		"reviewsCount":  agg.ReviewsCount,
		"ratingDistribution": map[string]any{
			"entries": entries,
		},
		"updatedAt": formatTime(agg.UpdatedAt),
	}
}

// Review field resolvers ----------------------------------------------

func reviewOfferResolver(p graphql.ResolveParams) (interface{}, error) {
	r, ok := p.Source.(*review.Review)
	if !ok {
		return nil, nil
	}
	// The representation carries only the id, which this subgraph already
	// has and owns authoritatively: no sibling round trip is needed to
	// answer a reference field (§4.4).
	return &entity.OfferStub{ID: r.OfferID}, nil
}

func reviewAuthorResolver(p graphql.ResolveParams) (interface{}, error) {
	r, ok := p.Source.(*review.Review)
	if !ok {
		return nil, nil
	}
	return &entity.UserStub{ID: r.AuthorID}, nil
}

func reviewModeratedByResolver(p graphql.ResolveParams) (interface{}, error) {
	r, ok := p.Source.(*review.Review)
	if !ok || r.ModeratedByID == nil {
		return nil, nil
	}
	return &entity.UserStub{ID: *r.ModeratedByID}, nil
}

// Borrowed-entity extension resolvers -----------------------------------

func userReviewsResolver(r *Resolvers) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		u, ok := p.Source.(*entity.UserStub)
		if !ok {
			return nil, nil
		}
		return r.resolveList(p.Context, store.Filter{AuthorID: &u.ID}, p.Args["first"], p.Args["after"])
	}
}

func offerReviewsResolver(r *Resolvers) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		o, ok := p.Source.(*entity.OfferStub)
		if !ok {
			return nil, nil
		}
		return r.resolveList(p.Context, store.Filter{OfferID: &o.ID}, p.Args["first"], p.Args["after"])
	}
}

func offerAggregateField(field string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		o, ok := p.Source.(*entity.OfferStub)
		if !ok {
			return nil, nil
		}
		agg, err := loader.For(p.Context).AggregateByOfferID.Load(p.Context, o.ID)()
		if err != nil {
			return nil, toFieldError(err)
		}
		if agg == nil {
			switch field {
			case "reviewsCount":
				return 0, nil
			case "ratingDistribution":
				return map[string]any{"entries": []map[string]any{}}, nil
			default:
				return nil, nil // averageRating: unrated offer has no meaningful average
			}
		}
		switch field {
		case "averageRating":
			return agg.AverageRating, nil
		case "reviewsCount":
			return agg.ReviewsCount, nil
		case "ratingDistribution":
			m := aggregateToMap(agg)
			return m["ratingDistribution"], nil
		}
		return nil, nil
	}
}

// Mutations --------------------------------------------------------------

func (r *Resolvers) createReviewMutation(p graphql.ResolveParams) (interface{}, error) {
	in, _ := p.Args["input"].(map[string]interface{})
	offerID, _ := parseUUID(in["offerId"])
	rating, _ := in["rating"].(int)
	text, _ := in["text"].(string)
	rc := requestctx.From(p.Context)

	rv, err := r.svc.Create(p.Context, rc.Principal, review.CreateInput{
		AuthorID: rc.Principal.UserID,
		OfferID:  offerID,
		Rating:   rating,
		Text:     text,
	})
	return mutationPayload(rv, err)
}

func (r *Resolvers) updateReviewMutation(p graphql.ResolveParams) (interface{}, error) {
	in, _ := p.Args["input"].(map[string]interface{})
	id, ok := parseUUID(in["id"])
	if !ok {
		return mutationPayload(nil, ugcerr.NewField("graphapi.updateReview", "id", errInvalidID))
	}
	rc := requestctx.From(p.Context)

	update := review.UpdateInput{}
	if rating, ok := in["rating"].(int); ok {
		update.Rating = &rating
	}
	if text, ok := in["text"].(string); ok {
		update.Text = &text
	}
	rv, err := r.svc.Update(p.Context, rc.Principal, id, update)
	return mutationPayload(rv, err)
}

func (r *Resolvers) deleteReviewMutation(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseUUID(p.Args["id"])
	if !ok {
		return mutationPayload(nil, ugcerr.NewField("graphapi.deleteReview", "id", errInvalidID))
	}
	rc := requestctx.From(p.Context)
	err := r.svc.Delete(p.Context, rc.Principal, id)
	return mutationPayload(nil, err)
}

func (r *Resolvers) moderateReviewMutation(p graphql.ResolveParams) (interface{}, error) {
	in, _ := p.Args["input"].(map[string]interface{})
	id, ok := parseUUID(in["id"])
	if !ok {
		return mutationPayload(nil, ugcerr.NewField("graphapi.moderateReview", "id", errInvalidID))
	}
	status, _ := in["status"].(string)
	rc := requestctx.From(p.Context)
	rv, err := r.svc.Moderate(p.Context, rc.Principal, id, review.Status(status))
	return mutationPayload(rv, err)
}

func (r *Resolvers) markReviewHelpfulMutation(p graphql.ResolveParams) (interface{}, error) {
	id, ok := parseUUID(p.Args["id"])
	if !ok {
		return mutationPayload(nil, ugcerr.NewField("graphapi.markReviewHelpful", "id", errInvalidID))
	}
	rc := requestctx.From(p.Context)
	rv, err := r.svc.MarkHelpful(p.Context, rc.Principal, id)
	return mutationPayload(rv, err)
}

// mutationPayload implements §6's ReviewPayload contract: business-rule
// failures become userErrors, not transport-level GraphQL errors (the
// resolver itself never returns a non-nil error for a ugcerr failure).
func mutationPayload(rv *review.Review, err error) (map[string]any, error) {
	if err != nil {
		ue := toUserError(err)
		return map[string]any{
			"review": nil,
			"userErrors": []map[string]any{
				{"message": ue.Message, "field": ue.Field, "code": ue.Code},
			},
		}, nil
	}
	return map[string]any{
		"review":     rv,
		"userErrors": []map[string]any{},
	}, nil
}
