package script

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecursionLimit is returned when evaluation nests deeper than maxDepth.
var ErrRecursionLimit = errors.New("script: recursion depth exceeded")

// Error is a script-level error: a parse failure, a runtime fault or an
// explicit (error ...) call.
type Error struct {
	Message   string
	Irritants []Value
}

func (e *Error) Error() string {
	if len(e.Irritants) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Irritants)+1)
	parts = append(parts, e.Message)
	for _, v := range e.Irritants {
		parts = append(parts, Repr(v))
	}
	return strings.Join(parts, " ")
}

// Errorf creates a script error with a formatted message.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

func arityError(name string, minArgs, maxArgs, got int) *Error {
	switch {
	case maxArgs < 0:
		return Errorf("%s: expected at least %d arguments, got %d", name, minArgs, got)
	case minArgs == maxArgs:
		return Errorf("%s: expected %d arguments, got %d", name, minArgs, got)
	default:
		return Errorf("%s: expected %d to %d arguments, got %d", name, minArgs, maxArgs, got)
	}
}

func typeError(name string, want string, got Value) *Error {
	return Errorf("%s: expected %s, got %s %s", name, want, typeName(got), Repr(got))
}
