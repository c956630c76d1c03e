// Package errs separates internal compiler errors (bugs) from user errors
// (bad input, unsatisfiable constraints). Both abort the current compilation;
// only the wording and the HTTP status differ.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInternal marks an inconsistency that can only be caused by a bug.
	ErrInternal = errors.New("internal compiler error")

	// ErrUser marks a problem with the program or platform being compiled.
	ErrUser = errors.New("user error")
)

// Internalf returns an error wrapping ErrInternal.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// Userf returns an error wrapping ErrUser.
func Userf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUser, fmt.Sprintf(format, args...))
}

// ICE panics with an internal error. Use it for conditions that the rest of
// the code guarantees cannot happen.
func ICE(format string, args ...any) {
	panic(Internalf(format, args...))
}

// Assert panics with an internal error if cond is false.
func Assert(cond bool, what string) {
	if !cond {
		ICE("assertion failed: %s", what)
	}
}

// IsInternal reports whether err wraps ErrInternal.
func IsInternal(err error) bool { return errors.Is(err, ErrInternal) }

// IsUser reports whether err wraps ErrUser.
func IsUser(err error) bool { return errors.Is(err, ErrUser) }

// Recover converts a panic raised through ICE into an error stored in *errp,
// adding the given context. Other panics are re-raised. Must be deferred.
func Recover(errp *error, context string) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok || !errors.Is(err, ErrInternal) {
		panic(r)
	}
	if context != "" {
		err = fmt.Errorf("%s: %w", context, err)
	}
	*errp = err
}
