package graphapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

func TestGate_RejectsOverComplexQuery(t *testing.T) {
	g := Gate{MaxDepth: 10, MaxComplexity: 50}
	query := `query { reviewsForOffer(offerId: "x", first: 100) { edges { node { id author { id } } } } }`
	err := g.Check(query)
	require.Error(t, err)
	assert.Equal(t, ugcerr.KindQueryTooComplex, ugcerr.Of(err))
}

func TestGate_RejectsOverDeepQuery(t *testing.T) {
	g := Gate{MaxDepth: 2, MaxComplexity: 10000}
	query := `query { review(id: "x") { author { id } } }`
	err := g.Check(query)
	require.Error(t, err)
	assert.Equal(t, ugcerr.KindQueryTooDeep, ugcerr.Of(err))
}

func TestGate_AllowsSimpleQuery(t *testing.T) {
	g := Gate{MaxDepth: 10, MaxComplexity: 1000}
	query := `query { review(id: "x") { id text } }`
	assert.NoError(t, g.Check(query))
}

func TestGate_CostScalesWithFirstArgument(t *testing.T) {
	g := Gate{MaxDepth: 10, MaxComplexity: 25}
	cheap := `query { reviewsForOffer(offerId: "x", first: 5) { edges { node { id } } } }`
	assert.NoError(t, g.Check(cheap))

	expensive := `query { reviewsForOffer(offerId: "x", first: 20) { edges { node { id } } } }`
	err := g.Check(expensive)
	require.Error(t, err)
	assert.Equal(t, ugcerr.KindQueryTooComplex, ugcerr.Of(err))
}
