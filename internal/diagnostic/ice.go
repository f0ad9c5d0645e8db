package diagnostic

import (
	"fmt"

	"github.com/pkg/errors"
)

// InternalError is raised when a compiler stage hands another stage a
// shape it cannot handle. It signals a bug, not a problem with the user's
// shader, and is never recovered inside the pipeline.
type InternalError struct {
	err error
}

// Error returns the message prefixed with INTERNAL COMPILER ERROR.
func (e *InternalError) Error() string {
	return "INTERNAL COMPILER ERROR: " + e.err.Error()
}

// Cause returns the underlying error, which carries the stack trace of
// the point where the error was raised.
func (e *InternalError) Cause() error { return e.err }

// Unwrap supports errors.Is and errors.As from the standard library.
func (e *InternalError) Unwrap() error { return e.err }

// Format prints the stack trace with %+v.
func (e *InternalError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "INTERNAL COMPILER ERROR: %+v", e.err)
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// ICE panics with an *InternalError built from the format string.
func ICE(format string, args ...any) {
	panic(&InternalError{err: errors.Errorf(format, args...)})
}

// AsInternalError converts a recovered panic value into an
// *InternalError. Values that are not internal errors are returned with
// ok set to false so the caller can re-panic.
func AsInternalError(r any) (*InternalError, bool) {
	ice, ok := r.(*InternalError)
	return ice, ok
}
