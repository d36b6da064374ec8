package resolver

import "fmt"

// Kind classifies resolution failures into the closed set callers use to
// render differentiated guidance ("wait for propagation" vs "server down").
type Kind string

const (
	// KindRecordNotFound means the answer section was empty or the name
	// does not exist. The usual cause is DNS propagation still in flight.
	KindRecordNotFound Kind = "RECORD_NOT_FOUND"
	// KindTimeout means the upstream did not answer within the configured
	// timeout.
	KindTimeout Kind = "TIMEOUT"
	// KindServerUnavailable covers refused and otherwise unclassified
	// server-side failures.
	KindServerUnavailable Kind = "DNS_SERVER_UNAVAILABLE"
	// KindNetworkError means the upstream could not be reached at all.
	KindNetworkError Kind = "NETWORK_ERROR"
	// KindInvalidDomain means the queried name is malformed; no query was
	// sent.
	KindInvalidDomain Kind = "INVALID_DOMAIN"
)

// Error is the tagged failure result of a lookup. Ordinary resolution
// failures are always returned as an *Error, never panicked.
type Error struct {
	Kind       Kind
	Domain     string
	RecordType string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("dns %s lookup for %s failed: %s (%s)", e.RecordType, e.Domain, e.Message, e.Kind)
}

// AsError returns the structured resolver error when err carries one.
func AsError(err error) (*Error, bool) {
	resErr, ok := err.(*Error)
	return resErr, ok
}

func newError(kind Kind, domain, recordType, message string) *Error {
	return &Error{
		Kind:       kind,
		Domain:     domain,
		RecordType: recordType,
		Message:    message,
	}
}
