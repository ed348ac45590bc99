package graphapi

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/syssam/ugc-subgraph/internal/loader"
)

// Server binds a built schema and complexity gate into the single entry
// point C7's HTTP handler calls.
type Server struct {
	schema graphql.Schema
	gate   Gate
}

// NewServer builds the schema and wraps it with the configured gate.
func NewServer(r *Resolvers, gate Gate) (*Server, error) {
	schema, err := BuildSchema(r)
	if err != nil {
		return nil, err
	}
	return &Server{schema: schema, gate: gate}, nil
}

// Request is the GraphQL-over-HTTP envelope C7 decodes from the request
// body.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]interface{}
}

// Execute runs the complexity/depth gate, then the query, against a
// context that must already carry request-scoped loaders
// (loader.WithLoaders) and a requestctx.Context (requestctx.With).
func (s *Server) Execute(ctx context.Context, req Request) *graphql.Result {
	if err := s.gate.Check(req.Query); err != nil {
		fe := toFieldError(err)
		return &graphql.Result{Errors: []gqlerrors.FormattedError{gqlerrors.NewFormattedError(fe.Error())}}
	}
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx,
	})
}

// WithRequestLoaders is a thin convenience wrapper so C7 does not need to
// import internal/loader directly for the common case of "build fresh
// loaders and attach them to this request".
func WithRequestLoaders(ctx context.Context, l *loader.Loaders) context.Context {
	return loader.WithLoaders(ctx, l)
}
