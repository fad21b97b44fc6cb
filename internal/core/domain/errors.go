package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArgument indicates a required argument was blank.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingCalendarID indicates an events query was issued without a calendar ID.
	ErrMissingCalendarID = invalidArgument("missing calendar id")

	// ErrMissingChannelID indicates a channel stop request had no channel ID.
	ErrMissingChannelID = invalidArgument("missing channel id")

	// ErrMissingResourceID indicates a channel stop request had no resource ID.
	ErrMissingResourceID = invalidArgument("missing resource id")

	// ErrNotSyncable indicates the calendar has no remote calendar linked.
	ErrNotSyncable = errors.New("calendar is not linked to a remote calendar")

	// ErrUnexpectedPagination is reported (not returned) when the remote
	// service announces more pages than a single events query was sized for.
	ErrUnexpectedPagination = errors.New("unhandled nextPageToken")

	// ErrMissingServerTimestamp is reported when a fetch response carries no
	// usable Date header, so the cursor cannot be advanced.
	ErrMissingServerTimestamp = errors.New("remote response has no Date header")

	// Webhook Errors.

	// ErrRecordNotFound indicates no notification channel matches the webhook.
	ErrRecordNotFound = errors.New("calendar or resource not found")

	// ErrChannelInactive indicates the matched channel is no longer active.
	ErrChannelInactive = errors.New("inactive channel, calendar syncing ignored")

	// ErrProcessing is returned to webhook callers when the triggered sync fails.
	// The underlying cause is never attached.
	ErrProcessing = errors.New("calendar syncing failed")
)

// argError is a sentinel that also matches ErrInvalidArgument.
type argError struct {
	parent error
	msg    string
}

func (e *argError) Error() string { return e.msg }

func (e *argError) Unwrap() error { return e.parent }

func invalidArgument(msg string) error {
	return &argError{parent: ErrInvalidArgument, msg: msg}
}
