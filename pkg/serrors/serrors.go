package serrors

import "fmt"

// Error is a stable, coded error. Code is machine-facing and never changes;
// Message is a human-facing default; Doc optionally points at operator docs.
type Error struct {
	Code    string
	Message string
	Doc     string
}

func NewError(code, message, doc string) *Error {
	return &Error{Code: code, Message: message, Doc: doc}
}

func (e *Error) Error() string {
	if e.Doc != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Doc)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}
