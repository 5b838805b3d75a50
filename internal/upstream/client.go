// Package upstream fetches raw report payloads from the REST backend.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/opsdash/internal/platform/cache"
	"github.com/odyssey-erp/opsdash/internal/reports"
	"github.com/odyssey-erp/opsdash/internal/reports/categorytree"
	"github.com/odyssey-erp/opsdash/internal/shared"
)

var (
	// ErrTransient covers network failures, 5xx responses and undecodable
	// bodies. Callers may retry on explicit user action.
	ErrTransient = errors.New("upstream: transient failure")
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("upstream: unauthorized")
	// ErrNoCredentials is returned when no bearer token is available.
	ErrNoCredentials = errors.New("upstream: no credentials")
	// ErrRejected is returned for other 4xx responses.
	ErrRejected = errors.New("upstream: request rejected")
)

const maxBodyBytes = 32 << 20

// DefaultPaths are the backend endpoints per report kind.
var DefaultPaths = map[reports.Kind]string{
	reports.KindLoad:             "/api/v1/reports/loads",
	reports.KindDeliveryOrder:    "/api/v1/reports/delivery-orders",
	reports.KindCall:             "/api/v1/reports/calls",
	reports.KindTargetCompletion: "/api/v1/reports/target-completion",
	reports.KindFollowUp:         "/api/v1/reports/follow-ups",
	reports.KindCustomerAdded:    "/api/v1/reports/customers",
}

// DefaultBalanceSheetPath is the balance-sheet endpoint.
const DefaultBalanceSheetPath = "/api/v1/finance/balance-sheet"

// Recorder observes upstream calls.
type Recorder interface {
	RecordUpstream(endpoint string, elapsed time.Duration, err error)
}

// Config configures a Client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	Paths            map[reports.Kind]string
	BalanceSheetPath string
}

var _ reports.Fetcher = (*Client)(nil)

// Client fetches raw report payloads.
type Client struct {
	base        *url.URL
	http        *http.Client
	timeout     time.Duration
	creds       CredentialProvider
	cache       *cache.Payloads
	paths       map[reports.Kind]string
	balancePath string
	logger      *slog.Logger
	recorder    Recorder
	group       singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCache enables the raw payload cache.
func WithCache(p *cache.Payloads) Option {
	return func(c *Client) { c.cache = p }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config, creds CredentialProvider, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base url %q", cfg.BaseURL)
	}
	if creds == nil {
		return nil, ErrNoCredentials
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	paths := make(map[reports.Kind]string, len(DefaultPaths))
	for kind, path := range DefaultPaths {
		paths[kind] = path
	}
	for kind, path := range cfg.Paths {
		if path != "" {
			paths[kind] = path
		}
	}
	balancePath := cfg.BalanceSheetPath
	if balancePath == "" {
		balancePath = DefaultBalanceSheetPath
	}
	c := &Client{
		base:        base,
		http:        &http.Client{Timeout: timeout},
		timeout:     timeout,
		creds:       creds,
		paths:       paths,
		balancePath: balancePath,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchRecords returns the raw records of kind inside rng.
func (c *Client) FetchRecords(ctx context.Context, kind reports.Kind, rng shared.DateRange) ([]map[string]any, error) {
	path, ok := c.paths[kind]
	if !ok {
		return nil, reports.ErrUnknownKind
	}
	query := url.Values{}
	if from := rng.FromString(); from != "" {
		query.Set("startDate", from)
	}
	if to := rng.ToString(); to != "" {
		query.Set("endDate", to)
	}
	body, err := c.get(ctx, kind.Slug(), path, query)
	if err != nil {
		return nil, err
	}
	return UnwrapRecords(body)
}

// FetchBalanceSheet returns the category tree as of asOf. A zero asOf asks
// the backend for its current position.
func (c *Client) FetchBalanceSheet(ctx context.Context, asOf time.Time) (*categorytree.Node, error) {
	query := url.Values{}
	if !asOf.IsZero() {
		query.Set("asOfDate", asOf.Format(shared.DateLayout))
	}
	body, err := c.get(ctx, "balance-sheet", c.balancePath, query)
	if err != nil {
		return nil, err
	}
	return UnwrapTree(body)
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}
	target := *c.base
	target.Path = strings.TrimRight(c.base.Path, "/") + path
	target.RawQuery = query.Encode()

	// The credential fingerprint keeps cached bodies scoped to their caller.
	owner := uuid.NewSHA1(uuid.NameSpaceURL, []byte(token)).String()
	key, err := c.cache.BuildKey(ctx, endpoint, owner, target.RawQuery)
	if err != nil {
		c.logger.Warn("payload cache key", slog.Any("error", err))
		return c.do(ctx, endpoint, target.String(), token)
	}

	// The shared load outlives any single caller; each caller still stops
	// waiting when its own ctx ends.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.cache.Fetch(loadCtx, key, func(ctx context.Context) ([]byte, error) {
			return c.do(ctx, endpoint, target.String(), token)
		})
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) do(ctx context.Context, endpoint, target, token string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if c.recorder != nil {
			c.recorder.RecordUpstream(endpoint, time.Since(start), err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	correlationID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Correlation-ID", correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed", slog.String("endpoint", endpoint), slog.String("correlation_id", correlationID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		c.logger.Warn("upstream server error", slog.String("endpoint", endpoint), slog.Int("status", resp.StatusCode), slog.String("correlation_id", correlationID))
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	c.logger.Debug("upstream fetch", slog.String("endpoint", endpoint), slog.Int("bytes", len(body)), slog.Duration("elapsed", time.Since(start)))
	return body, nil
}
