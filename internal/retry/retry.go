// Package retry implements exponential backoff for transient upstream
// failures (rate limits, flaky networks). Fatal provider errors — bad
// credentials, payloads the API rejects — are surfaced immediately without
// burning the backoff budget.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// Do runs fn up to attempts times, sleeping baseDelay, 2*baseDelay,
// 4*baseDelay... between tries. Only transient errors are retried; the last
// error is returned unmodified so callers can inspect the provider's failure.
// Context cancellation aborts the wait and returns ctx.Err().
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !Transient(err) || i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// Transient reports whether err is worth another attempt. Google API errors
// are retried only on rate limiting and server-side failures; a 4xx (bad
// credentials, malformed payload) will fail identically every time. Errors
// without an API status are assumed to be transport hiccups.
func Transient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return true
}
