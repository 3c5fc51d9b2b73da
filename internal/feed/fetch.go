package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/iliyamo/conference-companion/internal/logging"
	"github.com/iliyamo/conference-companion/internal/metrics"
)

const breakerName = "conference-feed"

// ErrFeedUnavailable is returned while the circuit breaker is open.
var ErrFeedUnavailable = errors.New("conference feed unavailable")

// FetchConfig tunes downloads from the upstream feed.
type FetchConfig struct {
	Timeout      time.Duration // per request
	MaxBytes     int64         // body size cap
	MinRequests  uint32        // requests in a window before the breaker may open
	FailureRatio float64       // failure share that opens the breaker
	OpenTimeout  time.Duration // how long the breaker stays open
}

func (c FetchConfig) withDefaults() FetchConfig {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 8 << 20
	}
	if c.MinRequests == 0 {
		c.MinRequests = 5
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.6
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = time.Minute
	}
	return c
}

// Fetcher downloads conference documents through a circuit breaker so a
// dead upstream does not tie up admin requests.
type Fetcher struct {
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[[]byte]
	maxBytes int64
}

// NewFetcher builds a Fetcher.  client may be nil.
func NewFetcher(cfg FetchConfig, client *http.Client) *Fetcher {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return &Fetcher{client: client, cb: cb, maxBytes: cfg.MaxBytes}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// Fetch downloads and decodes the document at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	body, err := f.cb.Execute(func() ([]byte, error) { return f.get(ctx, url) })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.FeedFetchErrors.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
		}
		return nil, err
	}
	return Decode(bytes.NewReader(body))
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.FeedFetchErrors.WithLabelValues("http").Inc()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.FeedFetchErrors.WithLabelValues("status").Inc()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		metrics.FeedFetchErrors.WithLabelValues("http").Inc()
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBytes {
		metrics.FeedFetchErrors.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, f.maxBytes)
	}
	return body, nil
}
