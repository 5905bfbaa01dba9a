package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder accumulates a message, a user facing hint and reportable
// details before marking the error with one of the sentinel kinds.
type ErrorBuilder struct {
	err     error
	msg     string
	hint    string
	details map[string]any
}

// NewError starts a builder for a fresh error with the given message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, msg)}
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	return &ErrorBuilder{err: err}
}

func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.msg = msg
	return b
}

func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	if b.details == nil {
		b.details = make(map[string]any, len(details))
	}
	for k, v := range details {
		b.details[k] = v
	}
	return b
}

// Mark finalizes the error and tags it with the given kind.
func (b *ErrorBuilder) Mark(kind error) error {
	err := b.err
	if b.msg != "" {
		err = errors.WrapWithDepth(1, err, b.msg)
	}
	if b.hint != "" {
		err = errors.WithHint(err, b.hint)
	}
	if len(b.details) > 0 {
		err = &detailedError{cause: err, details: b.details}
	}
	return errors.Mark(err, kind)
}

type detailedError struct {
	cause   error
	details map[string]any
}

func (e *detailedError) Error() string { return e.cause.Error() }
func (e *detailedError) Unwrap() error { return e.cause }

// GetHint returns the outermost hint attached to err, if any.
func GetHint(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}

// GetReportableDetails merges every detail map found along the chain. Outer
// details win over inner ones.
func GetReportableDetails(err error) map[string]any {
	var out map[string]any
	for err != nil {
		if d, ok := err.(*detailedError); ok {
			if out == nil {
				out = make(map[string]any)
			}
			for k, v := range d.details {
				if _, exists := out[k]; !exists {
					out[k] = v
				}
			}
		}
		err = errors.UnwrapOnce(err)
	}
	return out
}
