package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrConfigurationMissing indicates a required credential or setting is absent
	ErrConfigurationMissing = errors.New("required configuration missing")

	// ErrSessionExpired indicates the panel session is no longer authenticated
	ErrSessionExpired = errors.New("session expired")

	// ErrTokenNotFound indicates no anti-forgery token was found on a fetched page
	ErrTokenNotFound = errors.New("CSRF token not found")

	// ErrControlNotFound indicates the browser driver could not locate an expected control
	ErrControlNotFound = errors.New("control not found")

	// ErrVerificationInconclusive indicates the probe response matched no known signal
	ErrVerificationInconclusive = errors.New("could not verify authentication")

	// ErrTimeout indicates a bounded wait elapsed
	ErrTimeout = errors.New("timeout")

	// ErrBrowserNotFound indicates Chrome/Chromium was not found on the host
	ErrBrowserNotFound = errors.New("browser not found")

	// ErrRateLimited indicates rate limiting was encountered
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates a store lookup matched nothing
	ErrNotFound = errors.New("not found")
)

// AuthError represents a failed session establishment with a human-readable cause.
type AuthError struct {
	Strategy string
	Cause    string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %s: %v", e.Strategy, e.Cause, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s): %s", e.Strategy, e.Cause)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError
func NewAuthError(strategy, cause string, err error) *AuthError {
	return &AuthError{Strategy: strategy, Cause: cause, Err: err}
}

// RemoteRejectedError carries the error banner text the panel rendered verbatim.
type RemoteRejectedError struct {
	Op     string
	Banner string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("%s rejected by panel: %s", e.Op, e.Banner)
}

// NewRemoteRejectedError creates a new RemoteRejectedError
func NewRemoteRejectedError(op, banner string) *RemoteRejectedError {
	return &RemoteRejectedError{Op: op, Banner: banner}
}

// IsRemoteRejected reports whether err carries a panel error banner and returns its text.
func IsRemoteRejected(err error) (string, bool) {
	var rejected *RemoteRejectedError
	if errors.As(err, &rejected) {
		return rejected.Banner, true
	}
	return "", false
}

// UnexpectedResponseError indicates none of the known success/failure signals matched.
// It carries whatever response detail was available for diagnosis.
type UnexpectedResponseError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *UnexpectedResponseError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: unexpected response (HTTP %d): %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Detail)
}

// NewUnexpectedResponseError creates a new UnexpectedResponseError
func NewUnexpectedResponseError(op string, statusCode int, detail string) *UnexpectedResponseError {
	return &UnexpectedResponseError{Op: op, StatusCode: statusCode, Detail: detail}
}

// FetchError represents a transport-level error during fetching
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{URL: url, StatusCode: statusCode, Err: err}
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 429, 502, 503, 504:
			return true
		}
		// Cloudflare errors
		if fetchErr.StatusCode >= 520 && fetchErr.StatusCode <= 530 {
			return true
		}
	}

	return errors.Is(err, ErrRateLimited)
}
