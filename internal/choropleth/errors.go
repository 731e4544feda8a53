package choropleth

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Kind classifies pipeline failures.
type Kind int

const (
	KindInvalidArgument  Kind = iota + 1 // bad level, bucket count, table id or column
	KindFetch                            // data fetch service failed
	KindSelectionAborted                 // chooser cancelled or returned an out-of-range index
	KindRender                           // renderer failed
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindFetch:
		return "fetch error"
	case KindSelectionAborted:
		return "selection aborted"
	case KindRender:
		return "render error"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every pipeline stage.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrFetch            = &Error{Kind: KindFetch}
	ErrSelectionAborted = &Error{Kind: KindSelectionAborted}
	ErrRender           = &Error{Kind: KindRender}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalidArgument(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Err: eris.Errorf(format, args...)}
}

func selectionAborted(op string, err error) *Error {
	return &Error{Kind: KindSelectionAborted, Op: op, Err: err}
}

// NewFetchError wraps err as a fetch failure. Fetch service implementations use it
// so callers can tell transport problems apart from argument errors.
func NewFetchError(op string, err error) *Error {
	return &Error{Kind: KindFetch, Op: op, Err: err}
}

// NewInvalidArgumentError wraps err as an argument failure detected outside the
// core, such as a malformed table id rejected by a fetch service.
func NewInvalidArgumentError(op string, err error) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Err: err}
}
