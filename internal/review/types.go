// Package review owns the Review and OfferRating data model and the
// business rules that govern mutating them (C5 of the design spec).
package review

import (
	"time"

	"github.com/google/uuid"
)

// Status is the moderation status of a Review.
type Status string

// The four moderation statuses a Review can be in (§3).
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged:
		return true
	default:
		return false
	}
}

// Review is the owned entity row (§3).
type Review struct {
	ID               uuid.UUID
	OfferID          uuid.UUID
	AuthorID         uuid.UUID
	Rating           int
	Text             string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	IsModerated      bool
	ModerationStatus Status
	DeletedAt        *time.Time

	// Supplemented fields (SPEC_FULL §3.1), additive to the owned model.
	HelpfulCount   int
	ReportCount    int
	ModeratedByID  *uuid.UUID
	ModeratedAt    *time.Time
}

// Visible implements I3: a review is visible iff it is moderated-approved
// and not soft-deleted.
func (r *Review) Visible() bool {
	return r != nil && r.IsModerated && r.DeletedAt == nil
}

// OfferRating is the derived per-offer aggregate (§3).
type OfferRating struct {
	OfferID            uuid.UUID
	AverageRating      float64
	ReviewsCount        int
	RatingDistribution map[int]int
	UpdatedAt          time.Time
}

// Principal is the authenticated caller, as forwarded by the router (§1:
// AuthN/AuthZ token validation itself is out of scope; this subgraph only
// consumes the already-authenticated identity).
type Principal struct {
	UserID      uuid.UUID
	Privileged  bool
	Anonymous   bool
}

// CanActAsAuthor reports whether p may write to rows authored by authorID.
func (p Principal) CanActAsAuthor(authorID uuid.UUID) bool {
	if p.Anonymous {
		return false
	}
	return p.Privileged || p.UserID == authorID
}
