package ai

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is matched by every generation call that exceeded its bound.
	ErrTimeout = errors.New("generation timed out")
	// ErrMalformedResponse means the upstream answered 2xx without the expected text field.
	ErrMalformedResponse = errors.New("malformed generation response")
)

// UpstreamError is a failed or unusable response from the generation provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s upstream error", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when no response arrived within the configured bound.
type TimeoutError struct {
	Provider string
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no response within %s", e.Provider, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsUpstreamFailure reports whether err came from the provider, timeouts included.
func IsUpstreamFailure(err error) bool {
	var upstream *UpstreamError
	var timeout *TimeoutError
	return errors.As(err, &upstream) || errors.As(err, &timeout)
}

const maxErrorBody = 512

func truncateBody(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	return string(body[:maxErrorBody]) + "..."
}
