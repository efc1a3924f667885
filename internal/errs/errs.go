package errs

import "errors"

// Failure kinds shared by every package. Specific errors wrap one of these
// with fmt.Errorf("%w: ...") so callers can match either the precise error or
// its kind.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication failed")
	ErrConflict   = errors.New("conflict")
)

// Kind names a failure category.
type Kind string

const (
	KindNone       Kind = ""
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// KindOf classifies err. Nil maps to KindNone and anything outside the
// taxonomy to KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
