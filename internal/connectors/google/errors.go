package google

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// Error reasons reported in googleapi.Error.Errors.
const (
	reasonDailyLimitExceeded    = "dailyLimitExceeded"
	reasonQuotaExceeded         = "quotaExceeded"
	reasonRateLimitExceeded     = "rateLimitExceeded"
	reasonUserRateLimitExceeded = "userRateLimitExceeded"
	reasonPushNotSupported      = domain.ReasonPushNotSupported
)

// forbiddenKinds resolves a 403 by error reason.
var forbiddenKinds = map[string]domain.RemoteErrorKind{
	reasonDailyLimitExceeded:    domain.KindQuotaExceeded,
	reasonQuotaExceeded:         domain.KindQuotaExceeded,
	reasonRateLimitExceeded:     domain.KindRateLimitExceeded,
	reasonUserRateLimitExceeded: domain.KindRateLimitExceeded,
}

// forbiddenMessages resolves a 403 by message when no reason is present.
var forbiddenMessages = map[string]domain.RemoteErrorKind{
	"daily limit exceeded": domain.KindQuotaExceeded,
	"rate limit exceeded":  domain.KindRateLimitExceeded,
}

// WrapError converts a Google API or transport error into a *domain.RemoteError.
// Context cancellation and errors that are already remote errors pass through.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsRemoteError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fromAPIError(gerr)
	}

	if isNetworkError(err) {
		return &domain.RemoteError{Kind: domain.KindNetwork, Err: err}
	}
	return err
}

// fromAPIError maps a googleapi.Error through the status table.
func fromAPIError(gerr *googleapi.Error) *domain.RemoteError {
	reason := primaryReason(gerr)
	kind := domain.KindForStatus(gerr.Code)
	if gerr.Code == http.StatusForbidden {
		kind = forbiddenKind(reason, gerr.Message)
	}

	return &domain.RemoteError{
		Kind:       kind,
		Status:     gerr.Code,
		Reason:     reason,
		Message:    gerr.Message,
		Body:       gerr.Body,
		RetryAfter: retryAfterSeconds(gerr.Header),
	}
}

func forbiddenKind(reason, message string) domain.RemoteErrorKind {
	if kind, ok := forbiddenKinds[reason]; ok {
		return kind
	}
	if kind, ok := forbiddenMessages[strings.ToLower(strings.TrimSpace(message))]; ok {
		return kind
	}
	return domain.KindTransmission
}

func primaryReason(gerr *googleapi.Error) string {
	for _, item := range gerr.Errors {
		if item.Reason != "" {
			return item.Reason
		}
	}
	return ""
}

func retryAfterSeconds(h http.Header) int {
	if h == nil {
		return 0
	}
	if v := h.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func isNetworkError(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// IsPushNotSupported returns true if the error says the resource cannot be watched.
func IsPushNotSupported(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusBadRequest && primaryReason(gerr) == reasonPushNotSupported
	}
	return domain.IsPushNotSupported(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsGone returns true if the error indicates a deleted resource (410).
func IsGone(err error) bool {
	return hasStatus(err, http.StatusGone)
}

func hasStatus(err error, status int) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == status
	}
	if rerr, ok := domain.AsRemoteError(err); ok {
		return rerr.Status == status
	}
	return false
}
