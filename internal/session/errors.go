package session

import "errors"

// Rejection is implemented by errors that carry the auth service's own
// structured failure reason.
type Rejection interface {
	error
	// ServiceMessage is the service's "message" field.
	ServiceMessage() string
	// ServiceError is the service's alternate "error" field.
	ServiceError() string
}

// FailureMessage picks the user-facing text for a failed auth call: the
// service's message, then its alternate error field, then the text of a
// non-service (transport) error, then fallback.
func FailureMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var rej Rejection
	if errors.As(err, &rej) {
		if msg := rej.ServiceMessage(); msg != "" {
			return msg
		}
		if msg := rej.ServiceError(); msg != "" {
			return msg
		}
		return fallback
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
