package graphapi

import (
	"errors"

	"github.com/syssam/ugc-subgraph/internal/ugcerr"
)

var (
	errInvalidFirst    = errors.New("first must be between 1 and 100")
	errInvalidID       = errors.New("malformed id")
	errQueryTooDeep    = errors.New("query exceeds the configured depth ceiling")
	errQueryTooComplex = errors.New("query exceeds the configured complexity ceiling")
)

// fieldError adapts a *ugcerr.Error into a GraphQL field error carrying
// extensions.code, per §7's "stable code attribute drawn from the
// enumeration" requirement. graphql-go surfaces any error returned from
// a resolver as a field error automatically; this type additionally
// implements the de-facto Extensions() convention so the code survives
// serialization.
type fieldError struct {
	msg  string
	code string
}

func (e *fieldError) Error() string                   { return e.msg }
func (e *fieldError) Extensions() map[string]any       { return map[string]any{"code": e.code} }

// toFieldError normalizes any error from C3/C5/C2 into a fieldError. An
// Internal-kind error's message is replaced with an opaque string so
// implementation detail never reaches a client, per §7.
func toFieldError(err error) error {
	if err == nil {
		return nil
	}
	var e *ugcerr.Error
	if !errors.As(err, &e) {
		return &fieldError{msg: "internal error", code: ugcerr.KindInternal.String()}
	}
	msg := e.Error()
	if e.Kind == ugcerr.KindInternal {
		msg = "internal error"
	}
	return &fieldError{msg: msg, code: e.Kind.String()}
}

// userError renders a ugcerr.Error as a ReviewPayload.userErrors entry
// rather than a transport-level GraphQL error, used by mutations per
// §6's "userErrors carries business-rule failures distinct from
// GraphQL-protocol errors" contract.
type userError struct {
	Message string
	Field   string
	Code    string
}

func toUserError(err error) *userError {
	if err == nil {
		return nil
	}
	var e *ugcerr.Error
	if !errors.As(err, &e) {
		return &userError{Message: "internal error", Code: ugcerr.KindInternal.String()}
	}
	msg := e.Error()
	if e.Kind == ugcerr.KindInternal {
		msg = "internal error"
	}
	return &userError{Message: msg, Field: e.Field, Code: e.Kind.String()}
}
