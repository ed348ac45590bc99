// Package dataloader provides the generic ordering and context-wiring
// helpers C3's loaders are built on. It is designed to sit underneath
// any DataLoader implementation such as:
//   - github.com/graph-gophers/dataloader/v7
//   - github.com/vikstrous/dataloadgen
//
// # Basic Usage
//
// Define a batch function for your entity, keyed by uuid.UUID:
//
//	func reviewBatchFn(ctx context.Context, ids []uuid.UUID) ([]*review.Review, []error) {
//	    reviews, err := store.GetReviewsByIDs(ctx, ids)
//	    if err != nil {
//	        return nil, []error{err}
//	    }
//	    return dataloader.OrderByKeys(ids, reviews, func(r *review.Review) uuid.UUID { return r.ID })
//	}
//
// # With graph-gophers/dataloader
//
//	loader := dataloaderv7.NewBatchedLoader(adapt(reviewBatchFn))
//	review, err := loader.Load(ctx, reviewID)()
package dataloader

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
//
// This is essential for DataLoader because the result slice must:
//   - Have the same length as the input keys
//   - Have results in the same order as the input keys
//
// Example:
//
//	users, _ := client.User.Query().Where(user.IDIn(ids...)).All(ctx)
//	ordered, errs := OrderByKeys(ids, users, func(u *ent.User) int { return u.ID })
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}

	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// ctxKey is the context key for storing DataLoaders.
type ctxKey struct{}

// WithLoaders injects DataLoaders into the context.
//
// Example:
//
//	ctx := dataloader.WithLoaders(ctx, &Loaders{
//	    UserLoader: NewUserLoader(client),
//	    PostLoader: NewPostLoader(client),
//	})
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For extracts DataLoaders from context.
//
// Example:
//
//	loaders := dataloader.For[*Loaders](ctx)
//	user, err := loaders.UserLoader.Load(ctx, userID)()
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
