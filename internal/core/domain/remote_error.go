package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteErrorKind classifies a failure reported by the remote calendar API.
// The set is closed: every remote failure maps to exactly one kind.
type RemoteErrorKind int

// Remote error kinds.
const (
	// KindTransmission is the generic failure for statuses with no explicit mapping.
	KindTransmission RemoteErrorKind = iota
	// KindUserPrivileges is a 401: the token is invalid or lacks privileges.
	KindUserPrivileges
	// KindQuotaExceeded is a 403 with a daily limit reason.
	KindQuotaExceeded
	// KindRateLimitExceeded is a 403 rate limit reason or a 429.
	KindRateLimitExceeded
	// KindResourceNotFound is a 404: the calendar or event does not exist.
	KindResourceNotFound
	// KindIncrementalQueryUnavailable is a 410: updatedMin is too far in the past.
	KindIncrementalQueryUnavailable
	// KindServiceUnavailable is a 5xx backend failure.
	KindServiceUnavailable
	// KindNetwork is a transport failure with no HTTP response (reset, EOF, timeout).
	KindNetwork
)

// Sentinels matched by errors.Is against a *RemoteError of the same kind.
var (
	ErrTransmission                = errors.New("transmission error")
	ErrUserPrivileges              = errors.New("user privileges error")
	ErrQuotaExceeded               = errors.New("quota exceeded")
	ErrRateLimitExceeded           = errors.New("rate limit exceeded")
	ErrResourceNotFound            = errors.New("resource not found")
	ErrIncrementalQueryUnavailable = errors.New("incremental query unavailable, full sync required")
	ErrServiceUnavailable          = errors.New("service unavailable")
	ErrNetwork                     = errors.New("network error")

	// ErrMaxRetriesExceeded aborts a calendar's sync once transient failures
	// exhaust the retry budget. It is not a transmission error.
	ErrMaxRetriesExceeded = errors.New("maximum number of retries exceeded")
)

var kindInfo = map[RemoteErrorKind]struct {
	name      string
	sentinel  error
	retryable bool
	client    bool
}{
	KindTransmission:                {"TransmissionError", ErrTransmission, false, false},
	KindUserPrivileges:              {"UserPrivilegesError", ErrUserPrivileges, false, true},
	KindQuotaExceeded:               {"QuotaExceededError", ErrQuotaExceeded, false, true},
	KindRateLimitExceeded:           {"RateLimitExceededError", ErrRateLimitExceeded, true, true},
	KindResourceNotFound:            {"ResourceNotFoundError", ErrResourceNotFound, false, true},
	KindIncrementalQueryUnavailable: {"IncrementalQueryUnavailableError", ErrIncrementalQueryUnavailable, false, true},
	KindServiceUnavailable:          {"ServiceUnavailableException", ErrServiceUnavailable, true, false},
	KindNetwork:                     {"NetworkError", ErrNetwork, true, false},
}

// String returns the kind's name.
func (k RemoteErrorKind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("RemoteErrorKind(%d)", int(k))
}

// Retryable reports whether failures of this kind are worth retrying.
func (k RemoteErrorKind) Retryable() bool {
	return kindInfo[k].retryable
}

// ClientError reports whether this kind is caused by the request (4xx).
func (k RemoteErrorKind) ClientError() bool {
	return kindInfo[k].client
}

// statusKinds is the status -> kind table. 403 is absent: it resolves to
// quota or rate limit from the error reason.
var statusKinds = map[int]RemoteErrorKind{
	http.StatusUnauthorized:        KindUserPrivileges,
	http.StatusNotFound:            KindResourceNotFound,
	http.StatusGone:                KindIncrementalQueryUnavailable,
	http.StatusTooManyRequests:     KindRateLimitExceeded,
	http.StatusInternalServerError: KindServiceUnavailable,
	http.StatusBadGateway:          KindServiceUnavailable,
	http.StatusServiceUnavailable:  KindServiceUnavailable,
	http.StatusGatewayTimeout:      KindServiceUnavailable,
}

// KindForStatus returns the kind for an HTTP status, defaulting to
// KindTransmission for statuses with no explicit mapping.
func KindForStatus(status int) RemoteErrorKind {
	if kind, ok := statusKinds[status]; ok {
		return kind
	}
	return KindTransmission
}

// RemoteError is a failure returned by the remote calendar API.
type RemoteError struct {
	Kind    RemoteErrorKind
	Status  int
	Reason  string
	Message string
	// Body is the raw response body, kept for diagnostics.
	Body string
	// RetryAfter is the server-suggested delay in seconds, if any.
	RetryAfter int
	// Err is the underlying transport error for KindNetwork.
	Err error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (%d)", e.Kind, e.Message, e.Status)
	case e.Status != 0:
		return fmt.Sprintf("%s (%d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Is matches the sentinel for the error's kind.
func (e *RemoteError) Is(target error) bool {
	return kindInfo[e.Kind].sentinel == target
}

// Unwrap returns the underlying transport error, if any.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *RemoteError) Retryable() bool {
	return e.Kind.Retryable()
}

// AsRemoteError extracts a *RemoteError from an error chain.
func AsRemoteError(err error) (*RemoteError, bool) {
	var rerr *RemoteError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}

// ClientError reports whether the request caused the failure: a 4xx
// status, or a kind that only results from one.
func (e *RemoteError) ClientError() bool {
	if e.Status >= 400 && e.Status < 500 {
		return true
	}
	return e.Kind.ClientError()
}

// IsClientError reports whether err carries a 4xx remote failure.
func IsClientError(err error) bool {
	rerr, ok := AsRemoteError(err)
	return ok && rerr.ClientError()
}

// ReasonPushNotSupported is the error reason of a 400 returned when a
// calendar cannot be watched.
const ReasonPushNotSupported = "pushNotSupportedForRequestedResource"

// IsPushNotSupported reports whether err says the calendar cannot be watched.
func IsPushNotSupported(err error) bool {
	rerr, ok := AsRemoteError(err)
	return ok && rerr.Status == http.StatusBadRequest && rerr.Reason == ReasonPushNotSupported
}
