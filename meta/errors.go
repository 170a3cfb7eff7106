package meta

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrInvalidFieldReference is returned when a name does not exist or a
	// path continues past a leaf.
	ErrInvalidFieldReference = errors.New("invalid field reference")

	// ErrInvalidArrayReference is returned when an index or wildcard is used
	// outside an array, or a name is used where an array element is expected.
	ErrInvalidArrayReference = errors.New("invalid array reference")

	// ErrInvalidRedirection is returned when an exhausted path is asked to
	// resolve further.
	ErrInvalidRedirection = errors.New("invalid redirection")

	ErrDuplicateField        = errors.New("duplicate field")
	ErrInvalidDefaultVersion = errors.New("invalid default version")
	ErrInvalidVersion        = errors.New("invalid version")
	ErrInvalidVersionNumber  = errors.New("invalid version number")

	// ErrIllFormedMetadata wraps unexpected lower-level failures.
	ErrIllFormedMetadata = errors.New("ill-formed metadata")

	ErrUnknownType         = errors.New("unknown type")
	ErrUnknownEntity       = errors.New("unknown entity")
	ErrInvalidProjection   = errors.New("invalid projection")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrConstraintViolation = errors.New("constraint violation")
)

// Error is a metadata error carrying the breadcrumb of path segments and
// entity names that were being processed when it happened.
type Error struct {
	Kind    error
	Msg     string
	Context []string

	cause error
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	if len(e.Context) > 0 {
		b.WriteString(strings.Join(e.Context, "/"))
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// withContext prepends ctx to the breadcrumb of err. Errors that are not
// metadata errors become ErrIllFormedMetadata so the breadcrumb survives.
func withContext(err error, ctx string) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		me.Context = append([]string{ctx}, me.Context...)
		return err
	}
	return &Error{Kind: ErrIllFormedMetadata, Msg: err.Error(), Context: []string{ctx}, cause: err}
}

// suggest returns the candidate closest to name, if any is close enough to
// be a plausible typo.
func suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := len(name) / 3
	if limit < 1 {
		limit = 1
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
