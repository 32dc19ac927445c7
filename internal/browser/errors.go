package browser

import (
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout is wrapped by drivers when a bounded wait expires.
var ErrWaitTimeout = errors.New("wait timed out")

// TimeoutError reports that an element did not become visible in time.
type TimeoutError struct {
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("element %q not visible after %s", e.Selector, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ElementNotFoundError reports that a selector matched nothing when an
// interaction was attempted.
type ElementNotFoundError struct {
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %q not found", e.Selector)
}
