package mais

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sul-dlss/mais-person-client/ratelimit"
)

// Sentinel errors matched by *ResponseError.
var (
	ErrUnauthorized       = errors.New("mais: unauthorized")
	ErrServer             = errors.New("mais: server error")
	ErrUnexpectedResponse = errors.New("mais: unexpected response")
	ErrInvalidTags        = errors.New("mais: invalid tags")
)

// ResponseError is returned for any non-2xx response other than 404.
type ResponseError struct {
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func newResponseError(status int, body string, header http.Header) *ResponseError {
	return &ResponseError{
		StatusCode: status,
		Body:       body,
		retryAfter: parseRetryAfter(header.Get("Retry-After")),
	}
}

func (e *ResponseError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "There was a problem with authentication: " + e.Body
	case http.StatusInternalServerError:
		return "Mais server error: " + e.Body
	default:
		return fmt.Sprintf("Unexpected response: %d %s", e.StatusCode, e.Body)
	}
}

// Is matches the sentinel for the status class. A 429 also matches
// ratelimit.ErrRateLimited so the limiter retries it.
func (e *ResponseError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrServer:
		return e.StatusCode == http.StatusInternalServerError
	case ErrUnexpectedResponse:
		return e.StatusCode != http.StatusUnauthorized && e.StatusCode != http.StatusInternalServerError
	case ratelimit.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// RetryAfter returns the wait requested by the server, or 0.
func (e *ResponseError) RetryAfter() time.Duration {
	return e.retryAfter
}

// parseRetryAfter reads a Retry-After value in either delta-seconds or
// HTTP-date form.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// InvalidTagsError lists the tag values outside the allow-list.
type InvalidTagsError struct {
	Invalid []string
}

func (e *InvalidTagsError) Error() string {
	return "Invalid tag(s): " + strings.Join(e.Invalid, ", ")
}

func (e *InvalidTagsError) Is(target error) bool {
	return target == ErrInvalidTags
}

// StatusCode extracts the HTTP status from err, or 0 if err carries none.
func StatusCode(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
