package graphapi

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/federation"

	"github.com/syssam/ugc-subgraph/internal/entity"
)

var paginationArgs = graphql.FieldConfigArgument{
	"first": &graphql.ArgumentConfig{Type: graphql.Int},
	"after": &graphql.ArgumentConfig{Type: graphql.String},
}

// BuildSchema assembles the federated GraphQL schema described in §6:
// Review is the one type this subgraph owns as an entity; User and Offer
// are borrowed entities it only extends (§4.4). Extension fields are
// attached after the base types exist so their resolvers can close over
// r, which depends on the fully constructed C3/C5 wiring.
func BuildSchema(r *Resolvers) (graphql.Schema, error) {
	reviewType.AddFieldConfig("offer", &graphql.Field{
		Type:    graphql.NewNonNull(offerType),
		Resolve: reviewOfferResolver,
	})
	reviewType.AddFieldConfig("author", &graphql.Field{
		Type:    graphql.NewNonNull(userType),
		Resolve: reviewAuthorResolver,
	})
	reviewType.AddFieldConfig("moderatedBy", &graphql.Field{
		Type:    userType,
		Resolve: reviewModeratedByResolver,
	})

	userType.AddFieldConfig("reviews", &graphql.Field{
		Type:    graphql.NewNonNull(reviewConnectionType),
		Args:    paginationArgs,
		Resolve: userReviewsResolver(r),
	})

	offerType.AddFieldConfig("reviews", &graphql.Field{
		Type:    graphql.NewNonNull(reviewConnectionType),
		Args:    paginationArgs,
		Resolve: offerReviewsResolver(r),
	})
	offerType.AddFieldConfig("averageRating", &graphql.Field{
		Type:    graphql.Float,
		Resolve: offerAggregateField("averageRating"),
	})
	offerType.AddFieldConfig("reviewsCount", &graphql.Field{
		Type:    graphql.NewNonNull(graphql.Int),
		Resolve: offerAggregateField("reviewsCount"),
	})
	offerType.AddFieldConfig("ratingDistribution", &graphql.Field{
		Type:    ratingDistributionType,
		Resolve: offerAggregateField("ratingDistribution"),
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"review": &graphql.Field{
				Type:    reviewType,
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.reviewQuery,
			},
			"reviews": &graphql.Field{
				Type: graphql.NewNonNull(reviewConnectionType),
				Args: graphql.FieldConfigArgument{
					"filter": &graphql.ArgumentConfig{Type: reviewFilterInput},
					"first":  &graphql.ArgumentConfig{Type: graphql.Int},
					"after":  &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.reviewsQuery,
			},
			"reviewsForOffer": &graphql.Field{
				Type: graphql.NewNonNull(reviewConnectionType),
				Args: graphql.FieldConfigArgument{
					"offerId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"first":   &graphql.ArgumentConfig{Type: graphql.Int},
					"after":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.reviewsForOfferQuery,
			},
			"reviewsByAuthor": &graphql.Field{
				Type: graphql.NewNonNull(reviewConnectionType),
				Args: graphql.FieldConfigArgument{
					"authorId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"first":    &graphql.ArgumentConfig{Type: graphql.Int},
					"after":    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.reviewsByAuthorQuery,
			},
			"offerAggregate": &graphql.Field{
				Type:    offerRatingType,
				Args:    graphql.FieldConfigArgument{"offerId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.offerAggregateQuery,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createReview": &graphql.Field{
				Type:    graphql.NewNonNull(reviewPayloadType),
				Args:    graphql.FieldConfigArgument{"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createReviewInput)}},
				Resolve: r.createReviewMutation,
			},
			"updateReview": &graphql.Field{
				Type:    graphql.NewNonNull(reviewPayloadType),
				Args:    graphql.FieldConfigArgument{"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(updateReviewInput)}},
				Resolve: r.updateReviewMutation,
			},
			"deleteReview": &graphql.Field{
				Type:    graphql.NewNonNull(reviewPayloadType),
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.deleteReviewMutation,
			},
			"moderateReview": &graphql.Field{
				Type:    graphql.NewNonNull(reviewPayloadType),
				Args:    graphql.FieldConfigArgument{"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(moderateReviewInput)}},
				Resolve: r.moderateReviewMutation,
			},
			"markReviewHelpful": &graphql.Field{
				Type:    graphql.NewNonNull(reviewPayloadType),
				Args:    graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: r.markReviewHelpfulMutation,
			},
		},
	})

	return federation.NewFederatedSchema(federation.FederatedSchemaConfig{
		EntitiesFieldResolver: r.entity.EntitiesFieldResolver,
		EntityTypeResolver:    entity.EntityTypeResolver(reviewType, userType, offerType),
		SchemaConfig: graphql.SchemaConfig{
			Query:    queryType,
			Mutation: mutationType,
			Types:    []graphql.Type{reviewType, userType, offerType},
		},
	})
}
