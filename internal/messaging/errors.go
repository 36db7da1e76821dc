package messaging

import (
	"errors"
	"fmt"
)

// Kind is the closed failure taxonomy for dispatch operations.
// Classification happens at the lowest layer with enough information;
// callers above only wrap with context, never re-classify.
type Kind string

const (
	// KindConnectionFault: the transport never became ready, or faulted.
	KindConnectionFault Kind = "connection_fault"
	// KindNotFound: the identifier or display name resolved to nothing.
	KindNotFound Kind = "not_found"
	// KindLookupUnavailable: display-name search needs the privileged
	// member-listing grant and the bot does not have it. Distinct from
	// KindNotFound so callers can suggest identifier-based addressing.
	KindLookupUnavailable Kind = "lookup_unavailable"
	// KindUnreachable: the target exists but cannot receive a direct message.
	KindUnreachable Kind = "unreachable"
	// KindRateLimited: backend throttling; the caller may retry later.
	KindRateLimited Kind = "rate_limited"
	// KindInvalidTarget: a channel reference that is not text-capable.
	KindInvalidTarget Kind = "invalid_target"
	// KindTransport: catch-all for unclassified backend failures.
	KindTransport Kind = "transport_error"
)

// Error is a classified dispatch failure. Detail is human-readable and safe
// to surface verbatim; Err (optional) keeps the underlying cause in the chain.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors report KindTransport.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransport
}

// Detail returns the human-readable detail text for a classified error,
// falling back to the raw error string.
func Detail(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
