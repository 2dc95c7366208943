package classify

import "fmt"

// Error is a pipeline error tagged with its failure category. Errors crossing
// the pipeline boundary are always of this type so callers never have to
// interpret raw provider failures themselves.
type Error struct {
	Category Category
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s (provider %s): %s", e.Category, e.Provider, msg)
	}
	return fmt.Sprintf("%s: %s", e.Category, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a fixed message.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a category, preserving the cause for
// errors.As/errors.Is inspection.
func Wrap(category Category, err error) *Error {
	return &Error{Category: category, Err: err}
}
