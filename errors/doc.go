// Package errors provides standardized error handling patterns for DDSBridge.
//
// # Overview
//
// The package layers two views onto one error value:
//
//   - A classification (Transient, Invalid, Fatal) that drives retry and
//     shutdown decisions, checked with IsTransient/IsInvalid/IsFatal.
//   - A return kind mirroring the transport's collapsed result surface
//     (OK, InvalidArgument, NotFound, OperationFailed, OutOfMemory),
//     checked with KindOf.
//
// Both survive Go's standard wrapping chains: errors.Is, errors.As and
// Unwrap all behave as expected.
//
// # Error Wrapping Pattern
//
// All wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// applied by the Wrap family:
//
//	errors.Wrap(err, "Publisher", "Publish", "encode message")
//	errors.WrapTransient(err, "Client", "SendRequest", "write request")
//	errors.WrapInvalid(err, "Filter", "Parse", "parse expression")
//
// # Standard Error Variables
//
// Pre-defined variables cover the conditions upper layers branch on:
// entity lifecycle (ErrAlreadyDestroyed, ErrContextShutdown), handle
// identity (ErrIncorrectImplementation), graph queries
// (ErrNodeNameNonExistent, ErrGraphChanged), and data-path absence
// (ErrNoSample). Data-path absence is deliberately NOT an error to
// callers of Take (the rmw layer maps it to taken=false, nil), but
// the sentinel exists so transports can report it unambiguously.
//
// # Design Philosophy
//
//   - Classification over string matching
//   - Wrapping over replacement: preserve causes, add context
//   - Errors are values; there is no thread-local last-error slot
package errors
