package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retry policy for LLM calls: three attempts with exponential backoff,
// starting at 2s and capped at 60s. Rate-limit errors honor the provider's
// retry hint when one is present.
const (
	retryMaxAttempts     = 3
	retryInitialInterval = 2 * time.Second
	retryMaxInterval     = 60 * time.Second
)

var retryHintRe = regexp.MustCompile(`retry in (\d+(?:\.\d+)?)s`)

// CompleteWithRetry runs Complete with the package retry policy. Only
// rate-limit errors are retried; other failures surface immediately.
func CompleteWithRetry(ctx context.Context, c Client, req Request) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.MaxInterval = retryMaxInterval
	policy.RandomizationFactor = 0.2

	operation := func() (string, error) {
		text, err := c.Complete(ctx, req)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				if hint, ok := parseRetryHint(err.Error()); ok {
					return "", backoff.RetryAfter(int(hint.Seconds()) + 1)
				}
				return "", err // retryable
			}
			return "", backoff.Permanent(err)
		}
		return text, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy), backoff.WithMaxTries(retryMaxAttempts))
	if err != nil {
		return "", err
	}
	return result, nil
}

// parseRetryHint pulls a "retry in Ns" delay out of a provider message.
func parseRetryHint(msg string) (time.Duration, bool) {
	m := retryHintRe.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// CompleteJSONWithRetry is CompleteJSON wrapped in the retry policy.
func CompleteJSONWithRetry(ctx context.Context, c Client, req Request, out any) error {
	retrying := &retryingClient{inner: c}
	return CompleteJSON(ctx, retrying, req, out)
}

// retryingClient adapts CompleteWithRetry to the Client interface.
type retryingClient struct {
	inner Client
}

func (r *retryingClient) Provider() string { return r.inner.Provider() }

func (r *retryingClient) Complete(ctx context.Context, req Request) (string, error) {
	return CompleteWithRetry(ctx, r.inner, req)
}
