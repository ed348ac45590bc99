package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

const (
	minTextRunes = 10
	maxTextRunes = 1000
	minRating    = 1
	maxRating    = 5
)

var (
	textTag   = fmt.Sprintf("required,min=%d,max=%d,novalidnull,utf8", minTextRunes, maxTextRunes)
	ratingTag = fmt.Sprintf("min=%d,max=%d", minRating, maxRating)
)

// validate is a single long-lived validator.Validate, as the library's
// own docs recommend, with the two domain-specific checks registered
// that struct tags alone can't express.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("novalidnull", func(fl validator.FieldLevel) bool {
		return !strings.ContainsRune(fl.Field().String(), 0)
	})
	_ = v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	})
	return v
}

// Service implements C5: business rules for review mutations. It owns no
// storage of its own — every write is delegated to Store, which performs
// aggregate maintenance in the same transaction as the review write (I5).
type Service struct {
	store  Store
	clock  func() time.Time
	logger *slog.Logger
}

// NewService constructs a Service. clock defaults to time.Now; tests may
// override it for deterministic timestamps.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, clock: time.Now, logger: logger}
}

// WithClock overrides the service's time source, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// CreateInput is the input to Create.
type CreateInput struct {
	AuthorID uuid.UUID
	OfferID  uuid.UUID
	Rating   int
	Text     string
}

// Create implements the "Create review" operation of §4.5.
func (s *Service) Create(ctx context.Context, p Principal, in CreateInput) (*Review, error) {
	const op = "review.Service.Create"

	if !p.CanActAsAuthor(in.AuthorID) {
		return nil, ugcerr.New(ugcerr.KindUnauthorized, op, errUnauthorizedAuthor)
	}
	text, err := validateText(op, in.Text)
	if err != nil {
		return nil, err
	}
	if err := validateRating(op, in.Rating); err != nil {
		return nil, err
	}

	dup, err := s.store.ExistsAuthorOffer(ctx, in.AuthorID, in.OfferID)
	if err != nil {
		return nil, ugcerr.New(ugcerr.KindTransient, op, err)
	}
	if dup {
		return nil, ugcerr.New(ugcerr.KindDuplicateReview, op, errDuplicateReview)
	}

	now := s.clock()
	r := &Review{
		ID:               uuid.New(),
		OfferID:          in.OfferID,
		AuthorID:         in.AuthorID,
		Rating:           in.Rating,
		Text:             text,
		CreatedAt:        now,
		UpdatedAt:        now,
		IsModerated:      false,
		ModerationStatus: StatusPending,
	}
	created, err := s.store.InsertReview(ctx, r)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review_created", slog.String("review_id", created.ID.String()), slog.String("offer_id", created.OfferID.String()))
	return created, nil
}

// UpdateInput is the input to Update. Nil fields are left unchanged.
type UpdateInput struct {
	Rating *int
	Text   *string
}

// Update implements the "Update review" operation of §4.5: only the
// author (or a privileged caller) may edit rating/text.
func (s *Service) Update(ctx context.Context, p Principal, id uuid.UUID, in UpdateInput) (*Review, error) {
	const op = "review.Service.Update"

	existing, err := s.store.GetReviewByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanActAsAuthor(existing.AuthorID) {
		return nil, ugcerr.New(ugcerr.KindUnauthorized, op, errUnauthorizedAuthor)
	}

	patch := Patch{}
	if in.Text != nil {
		text, err := validateText(op, *in.Text)
		if err != nil {
			return nil, err
		}
		patch.Text = &text
	}
	if in.Rating != nil {
		if err := validateRating(op, *in.Rating); err != nil {
			return nil, err
		}
		patch.Rating = in.Rating
	}
	return s.store.UpdateReview(ctx, id, patch)
}

// Delete implements the "Delete review" operation of §4.5: soft-delete,
// idempotent per L2.
func (s *Service) Delete(ctx context.Context, p Principal, id uuid.UUID) error {
	const op = "review.Service.Delete"

	existing, err := s.store.GetReviewByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.CanActAsAuthor(existing.AuthorID) {
		return ugcerr.New(ugcerr.KindUnauthorized, op, errUnauthorizedAuthor)
	}
	return s.store.SoftDeleteReview(ctx, id)
}

// Moderate implements the "Moderate review" operation of §4.5.
// Privileged callers only; illegal transitions report Conflict (L3: a
// repeated identical moderation call is a no-op, not an error, since
// moderate(approved)->approved is not in the transition table but is
// handled explicitly below as an idempotent success).
func (s *Service) Moderate(ctx context.Context, p Principal, id uuid.UUID, newStatus Status) (*Review, error) {
	const op = "review.Service.Moderate"

	if !p.Privileged {
		return nil, ugcerr.New(ugcerr.KindUnauthorized, op, errUnauthorizedPrivilege)
	}
	if !newStatus.Valid() {
		return nil, ugcerr.NewField(op, "newStatus", errInvalidStatus)
	}

	existing, err := s.store.GetReviewByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.ModerationStatus == newStatus {
		// L3: moderate(r, approved); moderate(r, approved) is a no-op.
		return existing, nil
	}
	if !legalTransition(existing.ModerationStatus, newStatus) {
		return nil, ugcerr.New(ugcerr.KindConflict, op, errIllegalTransition)
	}

	moderated := isModeratedStatus(newStatus)
	patch := Patch{
		IsModerated:      &moderated,
		ModerationStatus: &newStatus,
		ModeratedByID:    &p.UserID,
	}
	updated, err := s.store.UpdateReview(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review_moderated",
		slog.String("review_id", id.String()),
		slog.String("from", string(existing.ModerationStatus)),
		slog.String("to", string(newStatus)),
	)
	return updated, nil
}

// MarkHelpful increments a review's helpful-vote counter (SPEC_FULL §3.1
// supplement). Any authenticated, non-anonymous caller may vote once per
// call; de-duplication of repeat votes by the same user is a transport
// concern left to an outer rate limiter, matching the Idempotency note in
// §4.5 that request-level deduplication lives above the core.
func (s *Service) MarkHelpful(ctx context.Context, p Principal, id uuid.UUID) (*Review, error) {
	const op = "review.Service.MarkHelpful"
	if p.Anonymous {
		return nil, ugcerr.New(ugcerr.KindUnauthorized, op, errUnauthorizedAuthor)
	}
	return s.store.UpdateReview(ctx, id, Patch{HelpfulCountDiff: 1})
}

func validateText(op, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if err := validate.Var(trimmed, textTag); err != nil {
		return "", ugcerr.NewField(op, "text", fieldError(err))
	}
	return trimmed, nil
}

func validateRating(op string, rating int) error {
	if err := validate.Var(rating, ratingTag); err != nil {
		return ugcerr.NewField(op, "rating", errRatingRange)
	}
	return nil
}

// fieldError maps the first validator.FieldError on the text field back
// to the specific sentinel SPEC_FULL §4.5 edge cases name, so callers
// still see errTextLength/errNullByte/errInvalidUTF8 rather than a
// library-shaped message.
func fieldError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return errTextLength
	}
	switch ve[0].Tag() {
	case "novalidnull":
		return errNullByte
	case "utf8":
		return errInvalidUTF8
	default:
		return errTextLength
	}
}
