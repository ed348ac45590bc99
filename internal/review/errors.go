package review

import "errors"

var (
	errUnauthorizedAuthor    = errors.New("review: caller is not the author and lacks privileged role")
	errUnauthorizedPrivilege = errors.New("review: operation requires a privileged role")
	errDuplicateReview       = errors.New("review: author has already reviewed this offer")
	errTextLength            = errors.New("review: text must be between 10 and 1000 UTF-8 code points after trimming")
	errNullByte              = errors.New("review: text contains a null byte")
	errInvalidUTF8           = errors.New("review: text is not valid UTF-8")
	errRatingRange           = errors.New("review: rating must be between 1 and 5")
	errInvalidStatus         = errors.New("review: unknown moderation status")
	errIllegalTransition     = errors.New("review: illegal moderation transition")
)
