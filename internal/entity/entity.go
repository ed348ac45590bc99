// Package entity implements C4: federation reference resolution for the
// `_entities` root field. Per §4.4, this resolver owns Review (it can
// fully materialize one from an `{__typename, id}` representation) and
// only stubs User and Offer — it must never call into the sibling that
// owns those types just to answer a reference query, since the only
// fields a reference query ever carries for a borrowed type are its key
// fields, already present in the representation itself.
package entity

import (
	"context"
	"errors"

	"github.com/graphql-go/graphql"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/ugc-subgraph/internal/review"
	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

// UserStub is the id-only projection of a User entity this subgraph
// extends with review-derived fields (the reviews connection).
type UserStub struct {
	ID uuid.UUID
}

// OfferStub is the id-only projection of an Offer entity this subgraph
// extends with rating-derived fields (averageRating, reviewsCount,
// ratingDistribution).
type OfferStub struct {
	ID uuid.UUID
}

// ReviewFetcher resolves a single Review by id, batched and deduplicated
// by C3 under the hood (the loader.Loaders.ReviewByID thunk).
type ReviewFetcher func(ctx context.Context, id uuid.UUID) (*review.Review, error)

// Resolver implements the federation.FederatedSchemaConfig hooks.
type Resolver struct {
	fetchReview ReviewFetcher
}

// New builds a Resolver. fetchReview should be backed by a request-scoped
// C3 loader, not a direct unbatched store call.
func New(fetchReview ReviewFetcher) *Resolver {
	return &Resolver{fetchReview: fetchReview}
}

// EntitiesFieldResolver answers `_entities(representations: [_Any!]!)`,
// preserving the 1:1 order correspondence between representations and
// results that the federation spec requires (a result of nil at index i
// tells the router representation i's own key was not found; an
// unrecognized or malformed representation is a request error, not a
// null, so it is reported through errs[i] instead).
func (r *Resolver) EntitiesFieldResolver(p graphql.ResolveParams) (interface{}, error) {
	raw, ok := p.Args["representations"].([]interface{})
	if !ok {
		return []interface{}{}, nil
	}

	results := make([]interface{}, len(raw))
	errs := make([]error, len(raw))

	// Review representations are fetched concurrently, one goroutine per
	// representation, each index writing only its own slot: firing every
	// ReviewByID.Load before any of them resolves lets C3's batch window
	// coalesce them into a single store round trip instead of len(raw)
	// sequential ones.
	g, ctx := errgroup.WithContext(p.Context)
	for i, rep := range raw {
		m, ok := rep.(map[string]interface{})
		if !ok {
			errs[i] = ugcerr.Newf(ugcerr.KindInvalid, "entity.EntitiesFieldResolver", "representation %d is not an object", i)
			continue
		}
		typename, _ := m["__typename"].(string)
		idStr, _ := m["id"].(string)
		id, err := uuid.Parse(idStr)
		if err != nil {
			errs[i] = ugcerr.New(ugcerr.KindInvalid, "entity.EntitiesFieldResolver", err)
			continue
		}

		switch typename {
		case "Review":
			i, id := i, id
			g.Go(func() error {
				rv, err := r.fetchReview(ctx, id)
				if err != nil {
					if ugcerr.Of(err) != ugcerr.KindNotFound {
						errs[i] = err
					}
					return nil
				}
				if rv == nil {
					return nil
				}
				results[i] = rv
				return nil
			})
		case "User":
			results[i] = &UserStub{ID: id}
		case "Offer":
			results[i] = &OfferStub{ID: id}
		default:
			errs[i] = ugcerr.Newf(ugcerr.KindInvalid, "entity.EntitiesFieldResolver", "unknown __typename %q", typename)
		}
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// EntityTypeResolver dispatches a resolved entity value to its
// graphql.Object, as federation.FederatedSchemaConfig requires.
func EntityTypeResolver(reviewType, userType, offerType *graphql.Object) graphql.ResolveTypeFn {
	return func(p graphql.ResolveTypeParams) *graphql.Object {
		switch p.Value.(type) {
		case *review.Review:
			return reviewType
		case *UserStub:
			return userType
		case *OfferStub:
			return offerType
		default:
			return nil
		}
	}
}
