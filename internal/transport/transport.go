// Package transport builds the retrying HTTP clients used for upstream calls.
package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sethgrid/pester"
)

// Doer is satisfied by *http.Client and *pester.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// New returns a pester client that retries network errors, 5xx and 429
// responses with capped exponential backoff.
func New(cfg Config, logger *slog.Logger) *pester.Client {
	client := pester.New()
	client.Timeout = cfg.Timeout
	client.MaxRetries = max(cfg.MaxAttempts, 1)
	client.RetryOnHTTP429 = true
	client.Backoff = Backoff(cfg.InitialBackoff, cfg.MaxBackoff)
	client.LogHook = func(e pester.ErrEntry) {
		logger.Warn("request failed",
			"url", e.URL,
			"attempt", e.Attempt,
			"error", e.Err,
		)
	}
	return client
}

// Backoff doubles initial per retry, capped at maxBackoff.
func Backoff(initial, maxBackoff time.Duration) pester.BackoffStrategy {
	return func(retry int) time.Duration {
		backoff := initial
		for i := 1; i < retry; i++ {
			backoff *= 2
			if backoff >= maxBackoff {
				return maxBackoff
			}
		}
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		return backoff
	}
}
