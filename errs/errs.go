// Package errs defines the sentinel errors and error-kind taxonomy shared
// across the bsread-go packages (spec §7).
//
// Errors are constructed with New(kind, message) or wrapped with
// Wrap(kind, err, message), and inspected with errors.Is against the Kind
// sentinels or with As against *Error for the underlying Kind. Kind itself
// is never a type name check — it is the taxonomy spec.md §7 names, not a
// concrete Go error type.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is one of the error categories spec.md §7 recognizes.
type Kind uint8

const (
	// InvalidInput: caller supplied inconsistent arguments.
	InvalidInput Kind = iota + 1
	// InvalidData: malformed frame.
	InvalidData
	// Unsupported: attempted encode/decode of a type with no codec.
	Unsupported
	// ConnectionRefused: transport bind/connect/send/receive failure.
	ConnectionRefused
	// TimedOut: a wait exceeded its deadline.
	TimedOut
	// AlreadyExists: start called twice on the same receiver/sender.
	AlreadyExists
	// Interrupted: loop terminated by cancellation.
	Interrupted
	// Other: broker HTTP or unclassified.
	Other
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case InvalidData:
		return "InvalidData"
	case Unsupported:
		return "Unsupported"
	case ConnectionRefused:
		return "ConnectionRefused"
	case TimedOut:
		return "TimedOut"
	case AlreadyExists:
		return "AlreadyExists"
	case Interrupted:
		return "Interrupted"
	case Other:
		return "Other"
	default:
		return "Unknown"
	}
}

// Error is a Kind-tagged error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, InvalidData) etc. work by comparing Kind against
// a Kind sentinel value boxed in a bare *Error (see the Err* vars below).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Kind == other.Kind && other.Message == ""
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping a lower-level cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, otherwise returns Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Other
}

// Sentinels usable with errors.Is, one per Kind, for callers that only
// care about the category and not a specific message.
var (
	ErrInvalidInput      = &Error{Kind: InvalidInput}
	ErrInvalidData       = &Error{Kind: InvalidData}
	ErrUnsupported       = &Error{Kind: Unsupported}
	ErrConnectionRefused = &Error{Kind: ConnectionRefused}
	ErrTimedOut          = &Error{Kind: TimedOut}
	ErrAlreadyExists     = &Error{Kind: AlreadyExists}
	ErrInterrupted       = &Error{Kind: Interrupted}
	ErrOther             = &Error{Kind: Other}

	// ErrHashCollision is returned by internal/collision when the same md5
	// wire hash is tracked with two different xxhash pre-hash values, i.e.
	// two distinct data-header blobs share one md5 key.
	ErrHashCollision = &Error{Kind: InvalidData, Message: "hash collision"}
)

// EncodeCrossBoundary renders err as "kind|message" so it can cross a
// goroutine boundary through a plain string channel, per spec §4.7/§7
// ("Worker thread errors are preserved across the join boundary by
// encoding kind|message and decoding on the consumer side").
func EncodeCrossBoundary(err error) string {
	if err == nil {
		return ""
	}

	kind := KindOf(err)

	return fmt.Sprintf("%s|%s", kind, err.Error())
}

// DecodeCrossBoundary rebuilds a Kind-tagged error from the string
// EncodeCrossBoundary produced.
func DecodeCrossBoundary(s string) error {
	if s == "" {
		return nil
	}

	parts := strings.SplitN(s, "|", 2)
	message := s
	kind := Other
	if len(parts) == 2 {
		message = parts[1]
		kind = parseKind(parts[0])
	}

	return &Error{Kind: kind, Message: message}
}

func parseKind(s string) Kind {
	switch s {
	case "InvalidInput":
		return InvalidInput
	case "InvalidData":
		return InvalidData
	case "Unsupported":
		return Unsupported
	case "ConnectionRefused":
		return ConnectionRefused
	case "TimedOut":
		return TimedOut
	case "AlreadyExists":
		return AlreadyExists
	case "Interrupted":
		return Interrupted
	default:
		return Other
	}
}
