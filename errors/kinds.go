package errors

import "errors"

// Kind mirrors the transport's collapsed result surface. Every error
// produced by the transport or the rmw layer maps onto exactly one kind;
// nil maps to KindOK.
type Kind int

const (
	// KindOK indicates success
	KindOK Kind = iota
	// KindInvalidArgument indicates malformed input, an identifier
	// mismatch, or a filter parse error
	KindInvalidArgument
	// KindNotFound indicates no matching sample or entity
	KindNotFound
	// KindOperationFailed indicates a transport-side failure
	KindOperationFailed
	// KindOutOfMemory indicates allocation failure, or on take/serialize
	// paths "buffer too small, grow to N" (see ShortBufferError)
	KindOutOfMemory
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindOperationFailed:
		return "operation_failed"
	case KindOutOfMemory:
		return "out_of_memory"
	default:
		return "unknown"
	}
}

// KindError attaches a Kind to an error without disturbing the chain.
type KindError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface
func (ke *KindError) Error() string {
	return ke.Err.Error()
}

// Unwrap returns the underlying error
func (ke *KindError) Unwrap() error {
	return ke.Err
}

// WithKind tags err with the given kind
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// KindOf maps an error to its return kind. Untagged errors map by
// sentinel, then default to KindOperationFailed.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}

	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}

	var sbe *ShortBufferError
	if errors.As(err, &sbe) {
		return KindOutOfMemory
	}

	switch {
	case errors.Is(err, ErrNoSample), errors.Is(err, ErrNodeNameNonExistent):
		return KindNotFound
	case errors.Is(err, ErrFilterParse),
		errors.Is(err, ErrFilterUnsupported),
		errors.Is(err, ErrShortPayload),
		errors.Is(err, ErrIncorrectImplementation):
		return KindInvalidArgument
	case errors.Is(err, ErrResourceExhausted):
		return KindOutOfMemory
	default:
		return KindOperationFailed
	}
}

// ShortBufferError reports that a caller-supplied buffer was too small
// and carries the size a retry needs. Take and serialize paths grow
// their buffers and retry when they see it.
type ShortBufferError struct {
	Required int
}

// Error implements the error interface
func (e *ShortBufferError) Error() string {
	return "buffer too small"
}

// RequiredSize extracts the grow-to size from an error chain, returning
// 0 when err does not carry one.
func RequiredSize(err error) int {
	var sbe *ShortBufferError
	if errors.As(err, &sbe) {
		return sbe.Required
	}
	return 0
}
