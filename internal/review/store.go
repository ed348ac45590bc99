package review

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence contract C5 depends on (C1 of the design spec).
// internal/store provides the Postgres-backed implementation; tests may
// substitute an in-memory fake.
type Store interface {
	InsertReview(ctx context.Context, r *Review) (*Review, error)
	GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error)
	UpdateReview(ctx context.Context, id uuid.UUID, patch Patch) (*Review, error)
	SoftDeleteReview(ctx context.Context, id uuid.UUID) error
	ExistsAuthorOffer(ctx context.Context, authorID, offerID uuid.UUID) (bool, error)
}

// Patch describes a partial update to a Review. Nil fields are left
// unchanged. It is the update vocabulary shared by Update and Moderate.
type Patch struct {
	Rating           *int
	Text             *string
	IsModerated      *bool
	ModerationStatus *Status
	ModeratedByID    *uuid.UUID
	HelpfulCountDiff int
	ReportCountDiff  int
}
