package accounting

// Result is the outcome of a handler call: either a value or a normalized error message.
//
// Construct it with Success or Failure only; the zero value is a failure with
// the fallback message.
type Result[T any] struct {
	value T
	err   string
	ok    bool
}

// Success wraps a value.
func Success[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Failure wraps any failure value, normalized by FormatError.
func Failure[T any](failure any) Result[T] {
	return Result[T]{err: FormatError(failure)}
}

// Value returns the wrapped value and whether the call succeeded.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// IsError reports whether the call failed.
func (r Result[T]) IsError() bool {
	return !r.ok
}

// Err returns the normalized error message, or "" on success.
func (r Result[T]) Err() string {
	if r.ok {
		return ""
	}
	if r.err == "" {
		return fallbackErrorMessage
	}
	return r.err
}
