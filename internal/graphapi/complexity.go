package graphapi

import (
	"strconv"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

// Gate enforces §6's query complexity/depth ceiling: a pre-execution AST
// walk computing an additive cost from requested `first` arguments times
// field weight, and an independent depth check. Both run before
// graphql.Do ever reaches C3/C5 (scenario 6 of §8: "QueryTooComplex
// returned before any store or sibling call is issued").
type Gate struct {
	MaxDepth      int
	MaxComplexity int
}

// Check parses query and rejects it if its estimated cost or depth
// exceeds the configured ceilings. A parse failure is not this gate's
// concern — it is left for graphql.Do to report as a normal syntax error.
func (g Gate) Check(query string) error {
	const op = "graphapi.Gate.Check"
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return nil // let the executor surface the syntax error
	}

	for _, def := range doc.Definitions {
		opDef, ok := def.(*ast.OperationDefinition)
		if !ok || opDef.SelectionSet == nil {
			continue
		}
		cost, depth, err := g.walk(opDef.SelectionSet, 1, 1)
		if err != nil {
			return err
		}
		if depth > g.MaxDepth {
			return ugcerr.New(ugcerr.KindQueryTooDeep, op, errQueryTooDeep)
		}
		if cost > g.MaxComplexity {
			return ugcerr.New(ugcerr.KindQueryTooComplex, op, errQueryTooComplex)
		}
	}
	return nil
}

func (g Gate) walk(ss *ast.SelectionSet, depth, multiplier int) (cost int, maxDepth int, err error) {
	const op = "graphapi.Gate.walk"
	if depth > g.MaxDepth {
		return 0, depth, ugcerr.New(ugcerr.KindQueryTooDeep, op, errQueryTooDeep)
	}
	maxDepth = depth
	for _, sel := range ss.Selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue // fragments are not expanded by this gate
		}
		weight := fieldWeight(field)
		cost += multiplier * weight
		if field.SelectionSet == nil {
			continue
		}
		childCost, childDepth, err := g.walk(field.SelectionSet, depth+1, multiplier*weight)
		if err != nil {
			return 0, 0, err
		}
		cost += childCost
		if childDepth > maxDepth {
			maxDepth = childDepth
		}
	}
	return cost, maxDepth, nil
}

// fieldWeight is 1 for a scalar/singular field; for a field carrying a
// `first` argument (every paginated connection field in this schema), the
// weight is the requested page size, since each edge fans out its own
// subtree cost.
func fieldWeight(field *ast.Field) int {
	for _, arg := range field.Arguments {
		if arg.Name == nil || arg.Name.Value != "first" {
			continue
		}
		iv, ok := arg.Value.(*ast.IntValue)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(iv.Value)
		if err != nil || n < 1 {
			continue
		}
		return n
	}
	return 1
}
