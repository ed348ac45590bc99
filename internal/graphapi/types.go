package graphapi

import (
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/federation"
	"github.com/google/uuid"
)

// formatTime renders a timestamp as RFC3339Nano for the GraphQL wire. The
// cursor codec does not use this format; it encodes created_at as unix
// nanoseconds.
func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

// moderationStatusEnum is the GraphQL-visible ModerationStatus enum (§3).
var moderationStatusEnum = graphql.NewEnum(graphql.EnumConfig{
	Name:        "ModerationStatus",
	Description: "The moderation lifecycle state of a Review.",
	Values: graphql.EnumValueConfigMap{
		"PENDING":  &graphql.EnumValueConfig{Value: "pending"},
		"APPROVED": &graphql.EnumValueConfig{Value: "approved"},
		"REJECTED": &graphql.EnumValueConfig{Value: "rejected"},
		"FLAGGED":  &graphql.EnumValueConfig{Value: "flagged"},
	},
})

// ratingCountType is one nonzero entry of a RatingDistribution (§9: only
// nonzero rating keys are ever present).
var ratingCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RatingCount",
	Fields: graphql.Fields{
		"rating": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"count":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var ratingDistributionType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "RatingDistribution",
	Description: "Nonzero-only mapping from rating value to review count.",
	Fields: graphql.Fields{
		"entries": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(ratingCountType)))},
	},
})

var pageInfoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PageInfo",
	Fields: graphql.Fields{
		"hasNextPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"endCursor":   &graphql.Field{Type: graphql.String},
	},
})

var userErrorType = graphql.NewObject(graphql.ObjectConfig{
	Name: "UserError",
	Fields: graphql.Fields{
		"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"field":   &graphql.Field{Type: graphql.String},
		"code":    &graphql.Field{Type: graphql.String},
	},
})

// userType and offerType are the borrowed entity extensions (§4.4): only
// the id key field plus the fields this subgraph contributes.
var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
	},
	AppliedDirectives: []*graphql.AppliedDirective{
		federation.KeyAppliedDirective("id", false),
	},
})

var offerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Offer",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
	},
	AppliedDirectives: []*graphql.AppliedDirective{
		federation.KeyAppliedDirective("id", false),
	},
})

var reviewType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Review",
	Fields: graphql.Fields{
		"id":               &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"rating":           &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"text":             &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"createdAt":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"updatedAt":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"isModerated":      &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"moderationStatus": &graphql.Field{Type: graphql.NewNonNull(moderationStatusEnum)},
		"helpfulCount":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"reportCount":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"moderatedAt":      &graphql.Field{Type: graphql.String},
	},
	AppliedDirectives: []*graphql.AppliedDirective{
		federation.KeyAppliedDirective("id", true),
	},
})

var reviewEdgeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ReviewEdge",
	Fields: graphql.Fields{
		"node":   &graphql.Field{Type: graphql.NewNonNull(reviewType)},
		"cursor": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var reviewConnectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ReviewConnection",
	Fields: graphql.Fields{
		"edges":    &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(reviewEdgeType)))},
		"pageInfo": &graphql.Field{Type: graphql.NewNonNull(pageInfoType)},
	},
})

var reviewPayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ReviewPayload",
	Fields: graphql.Fields{
		"review":     &graphql.Field{Type: reviewType},
		"userErrors": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userErrorType)))},
	},
})

var offerRatingType = graphql.NewObject(graphql.ObjectConfig{
	Name: "OfferRating",
	Fields: graphql.Fields{
		"offerId":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"averageRating":      &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"reviewsCount":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"ratingDistribution": &graphql.Field{Type: graphql.NewNonNull(ratingDistributionType)},
		"updatedAt":          &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var createReviewInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "CreateReviewInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"offerId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"rating":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		"text":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	},
})

var updateReviewInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UpdateReviewInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"rating": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"text":   &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var moderateReviewInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ModerateReviewInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"status": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(moderationStatusEnum)},
	},
})

var reviewFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ReviewFilter",
	Fields: graphql.InputObjectConfigFieldMap{
		"offerId":          &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"authorId":         &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"rating":           &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"moderationStatus": &graphql.InputObjectFieldConfig{Type: moderationStatusEnum},
	},
})

// parseUUID is a small local helper kept here (rather than in
// internal/cursor or internal/review) since it is purely a GraphQL-arg
// concern: GraphQL IDs arrive as strings and every resolver in this
// package needs the same conversion.
func parseUUID(v interface{}) (uuid.UUID, bool) {
	s, ok := v.(string)
	if !ok {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}
