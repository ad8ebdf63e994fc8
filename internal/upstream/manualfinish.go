// Package upstream fetches supplementary metrics from sibling services.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ManualFinishMetrics is the payload of the pick-binding manual-finish
// endpoint.
type ManualFinishMetrics struct {
	Geek      int    `json:"geek"`
	FMA       int    `json:"fma"`
	Total     int    `json:"total"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ManualFinishClient wraps the upstream endpoint with a TTL cache,
// retries, a circuit breaker and a client-side rate limit, so a flapping
// upstream never takes the dashboard read path down with it.
type ManualFinishClient struct {
	url    string
	ttl    time.Duration
	http   *http.Client
	logger *zap.Logger

	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	mu      sync.Mutex
	cached  *ManualFinishMetrics
	expires time.Time

	nowFn func() time.Time
}

func NewManualFinishClient(url string, ttl, timeout time.Duration, logger *zap.Logger) *ManualFinishClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "manual-finish",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &ManualFinishClient{
		url:     url,
		ttl:     ttl,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("upstream"),
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		nowFn:   time.Now,
	}
}

// Metrics returns cached data when fresh, otherwise refreshes from
// upstream. On refresh failure a stale cache entry is served instead of
// the error; the error surfaces only with nothing cached at all.
func (c *ManualFinishClient) Metrics(ctx context.Context) (ManualFinishMetrics, error) {
	c.mu.Lock()
	if c.cached != nil && c.nowFn().Before(c.expires) {
		m := *c.cached
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	fresh, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.cached != nil {
			c.logger.Warn("manual-finish refresh failed, serving cached data", zap.Error(err))
			return *c.cached, nil
		}
		return ManualFinishMetrics{}, fmt.Errorf("manual-finish request failed: %w", err)
	}

	c.mu.Lock()
	c.cached = &fresh
	c.expires = c.nowFn().Add(c.ttl)
	c.mu.Unlock()

	c.logger.Info("manual-finish metrics refreshed",
		zap.Int("geek", fresh.Geek),
		zap.Int("fma", fresh.FMA),
		zap.Int("total", fresh.Total))
	return fresh, nil
}

func (c *ManualFinishClient) fetch(ctx context.Context) (ManualFinishMetrics, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ManualFinishMetrics{}, fmt.Errorf("rate limit: %w", err)
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		var metrics ManualFinishMetrics

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)
		retryErr := r.Do(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
			if err != nil {
				return err
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&metrics)
		})
		return metrics, retryErr
	})
	if err != nil {
		return ManualFinishMetrics{}, err
	}
	return result.(ManualFinishMetrics), nil
}
