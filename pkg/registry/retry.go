package registry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// maxDelay caps the backoff between attempts, including server-requested
// Retry-After waits.
const maxDelay = 30 * time.Second

// RetryableError marks a transient failure: a dropped connection, a 5xx
// response, or a 429 from a rate-limited registry.
type RetryableError struct {
	Err error

	// After is the wait the server asked for; zero means use the backoff.
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, fails permanently, or attempts run out.
// Only [RetryableError] failures are retried. The wait starts at delay and
// doubles per attempt up to maxDelay; a RetryableError.After overrides it
// for that attempt.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(); err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if re.After > 0 {
			wait = re.After
		}
		timer := time.NewTimer(min(wait, maxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxDelay)
	}
	return err
}

// retryAfter parses a Retry-After header given in seconds. HTTP-date values
// are ignored in favor of the regular backoff.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
