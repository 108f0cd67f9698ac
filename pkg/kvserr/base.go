// Package kvserr defines the store's error taxonomy: a closed set of three
// kinds — Io, Corrupt, and KeyNotFound — that callers can match on with
// errors.As instead of parsing messages.
//
// The construction style (a shared baseError carrying a cause, a code, and
// a lazily-allocated details map, with domain-specific wrappers embedding
// it and using the unexported withDetail helper to attach extra context
// at construction time) is trimmed down from a broader
// validation/storage/index error surface to exactly the three kinds this
// store's contract calls for.
package kvserr

// Code categorizes an error programmatically without requiring callers to
// parse its message.
type Code string

const (
	CodeIO          Code = "IO_ERROR"
	CodeCorrupt     Code = "CORRUPT"
	CodeKeyNotFound Code = "KEY_NOT_FOUND"
)

// baseError carries the fields every error kind in this package shares.
type baseError struct {
	cause   error
	message string
	code    Code
	details map[string]any
}

func newBaseError(cause error, code Code, message string) *baseError {
	return &baseError{cause: cause, code: code, message: message}
}

func (b *baseError) Error() string {
	if b.cause != nil {
		return b.message + ": " + b.cause.Error()
	}
	return b.message
}

// Unwrap exposes the underlying cause to errors.Is/errors.As chains.
func (b *baseError) Unwrap() error {
	return b.cause
}

// Code returns the error's category.
func (b *baseError) Code() Code {
	return b.code
}

// Details returns additional structured context attached to the error.
func (b *baseError) Details() map[string]any {
	return b.details
}

func (b *baseError) withDetail(key string, value any) {
	if b.details == nil {
		b.details = make(map[string]any)
	}
	b.details[key] = value
}
