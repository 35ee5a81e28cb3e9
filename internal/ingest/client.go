// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package ingest pulls raw source data into the bronze tier: interaction
// events from a local CSV export and the product catalog from a REST API.
//
// The HTTP source applies, in order: a client-side rate limit, a per-source
// circuit breaker, bounded exponential-backoff retries on transient status
// classes, and a hard per-request timeout. Exhaustion is fatal for that
// source only; the sibling source still runs.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/recomart/recomart/internal/lake"
	"github.com/recomart/recomart/internal/logging"
	"github.com/recomart/recomart/internal/metrics"
	"github.com/recomart/recomart/internal/models"
)

// Options configures the ingestion client's resilience policy.
type Options struct {
	// Timeout is the hard per-request timeout.
	Timeout time.Duration

	// MaxRetries bounds retry attempts after the initial request.
	MaxRetries int

	// RetryInitialInterval seeds the exponential backoff.
	RetryInitialInterval time.Duration

	// RateLimit caps outbound requests per second.
	RateLimit float64

	// BreakerFailureThreshold opens the breaker after this many
	// consecutive failed fetches.
	BreakerFailureThreshold uint32

	// BreakerTimeout is how long an open breaker waits before half-open.
	BreakerTimeout time.Duration
}

// DefaultOptions mirrors the upstream retry strategy: 3 retries, 1s backoff
// factor, retry on 429/5xx.
func DefaultOptions() Options {
	return Options{
		Timeout:                 10 * time.Second,
		MaxRetries:              3,
		RetryInitialInterval:    1 * time.Second,
		RateLimit:               5,
		BreakerFailureThreshold: 5,
		BreakerTimeout:          30 * time.Second,
	}
}

// Client ingests source data with bounded retries.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]models.Product]
}

// NewClient creates an ingestion client. Zero-value option fields fall back
// to DefaultOptions, except MaxRetries: zero is a meaningful setting (a
// single attempt, no retries), so only a negative value falls back.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = def.RetryInitialInterval
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = def.RateLimit
	}
	if opts.BreakerFailureThreshold == 0 {
		opts.BreakerFailureThreshold = def.BreakerFailureThreshold
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = def.BreakerTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[[]models.Product](gobreaker.Settings{
		Name:    "product_catalog",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	})

	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		breaker: breaker,
	}
}

// transientStatus reports whether an HTTP status is worth retrying.
// Matches the upstream status_forcelist: 429, 500, 502, 503, 504.
func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// FetchProducts retrieves the product catalog, retrying transient failures
// with exponential backoff up to MaxRetries before giving up.
func (c *Client) FetchProducts(ctx context.Context, url string) ([]models.Product, error) {
	return c.breaker.Execute(func() ([]models.Product, error) {
		var products []models.Product

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = c.opts.RetryInitialInterval
		policy := backoff.WithContext(
			backoff.WithMaxRetries(bo, uint64(c.opts.MaxRetries)), ctx)

		attempt := 0
		err := backoff.Retry(func() error {
			if attempt > 0 {
				metrics.IngestRetries.WithLabelValues(lake.DatasetProducts).Inc()
			}
			attempt++

			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}

			fetched, err := c.fetchOnce(ctx, url)
			if err != nil {
				return err
			}
			products = fetched
			return nil
		}, policy)
		if err != nil {
			return nil, fmt.Errorf("product catalog fetch exhausted after %d attempts: %w", attempt, err)
		}
		return products, nil
	})
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err // transport errors are retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("product API returned status %d", resp.StatusCode)
		if transientStatus(resp.StatusCode) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode product payload: %w", err))
	}
	return products, nil
}

// ReadInteractions loads the local interactions CSV export.
func ReadInteractions(path string) ([]models.Interaction, error) {
	interactions, err := lake.ReadInteractions(path)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("interactions source %s is empty", path)
		}
		return nil, fmt.Errorf("interactions source: %w", err)
	}
	return interactions, nil
}
