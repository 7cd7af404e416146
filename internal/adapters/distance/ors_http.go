package distance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Failure classes for ORS calls. A *StatusError unwraps to one of them, so
// callers and fallback reasons can tell throttling from an outage.
var (
	ErrRateLimited = errors.New("ORS rate limit exceeded")
	ErrUnavailable = errors.New("ORS unavailable")
	ErrRejected    = errors.New("ORS rejected request")
)

const (
	maxAttempts   = 4
	maxRetryWait  = 5 * time.Second
	maxErrorBytes = 512
)

// StatusError is a non-2xx ORS response.
type StatusError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status %d): %s", e.Unwrap(), e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}

func (o *ORSDistanceProvider) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do sends one request and turns error statuses into *StatusError.
func (o *ORSDistanceProvider) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	return nil, &StatusError{
		Status:     resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// Retry-After in seconds; HTTP-date values are ignored.
func parseRetryAfter(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryWait doubles backoff per attempt, stretched to the server's
// Retry-After when it asks for longer, and capped at maxRetryWait.
func retryWait(backoff time.Duration, attempt int, err error) time.Duration {
	wait := backoff << (attempt - 1)
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > wait {
		wait = se.RetryAfter
	}
	return min(wait, maxRetryWait)
}

// doWithRetry retries rate-limit, outage and network failures up to
// maxAttempts times while respecting context cancellation. Rejected
// requests fail on the first attempt.
func (o *ORSDistanceProvider) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := o.retryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(retryWait(backoff, attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", attempt, lastErr)
}
