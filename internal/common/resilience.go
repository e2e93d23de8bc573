package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	ErrRateLimited  = errors.New("rate limited")
	ErrServerError  = errors.New("server error")
	ErrUnexpected   = errors.New("unexpected status code")
	ErrCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// NewBreaker returns the circuit breaker shared by one outbound client. Only
// transport errors, 429 and 5xx count against it; a 4xx caused by the caller's
// own input leaves it closed.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: upstreamHealthy,
	})
}

func upstreamHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, ErrUnexpected) ||
		errors.Is(err, context.Canceled)
}

// DoOnce sends the request exactly once through the circuit breaker. Non-2xx
// responses are closed and reported as errors carrying the status and a short
// body preview.
func DoOnce(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		return nil, statusError(resp)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func statusError(resp *http.Response) error {
	preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: body=%s", ErrRateLimited, preview)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %d body=%s", ErrServerError, resp.StatusCode, preview)
	default:
		return fmt.Errorf("%w: %d body=%s", ErrUnexpected, resp.StatusCode, preview)
	}
}
