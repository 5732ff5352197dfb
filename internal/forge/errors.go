package forge

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError represents a non-2xx response from a forge REST API.
type APIError struct {
	Host       Host
	StatusCode int
	Message    string
	// RetryAfter is set when the forge said how long to back off.
	RetryAfter time.Duration
	rateLimit  bool
}

func (err *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", err.Host, err.StatusCode, err.Message)
}

// IsNotFound reports whether err is a 404 from the forge.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a rate limit response. GitHub answers
// 403 for an exhausted primary limit and 429 for secondary limits.
func IsRateLimited(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == http.StatusTooManyRequests || apiError.rateLimit
}

// IsUnauthorized reports whether the forge rejected the credentials: an
// expired or revoked token, or one lacking a needed scope.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) || IsRateLimited(err) {
		return false
	}
	return apiError.StatusCode == http.StatusUnauthorized || apiError.StatusCode == http.StatusForbidden
}

// IsServerError reports a 5xx response, which is worth one retry.
func IsServerError(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode >= 500
}

func newAPIError(host Host, resp *http.Response, message string) *APIError {
	apiErr := &APIError{
		Host:       host,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusForbidden {
		lower := strings.ToLower(message)
		apiErr.rateLimit = resp.Header.Get("X-RateLimit-Remaining") == "0" ||
			strings.Contains(lower, "rate limit") ||
			strings.Contains(lower, "abuse detection")
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}
