// Package requestctx carries the per-request state described in §5: the
// authenticated principal, a correlation id for logging, and (indirectly,
// via internal/loader) the request-scoped batch loaders. C7 constructs
// one of these per inbound HTTP request; C6 resolvers read it back out.
package requestctx

import (
	"context"

	"github.com/syssam/ugc-subgraph/internal/review"
)

type ctxKey struct{}

// Context is the request-scoped value stashed on context.Context.
type Context struct {
	Principal     review.Principal
	CorrelationID string
}

// With attaches rc to ctx.
func With(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From retrieves the Context previously attached with With. Callers on a
// context that never passed through C7's middleware get a zero-value
// anonymous Context rather than a nil pointer panic.
func From(ctx context.Context) *Context {
	rc, ok := ctx.Value(ctxKey{}).(*Context)
	if !ok {
		return &Context{Principal: review.Principal{Anonymous: true}}
	}
	return rc
}
