package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKey = "opsdash:payload:version"

// Recorder observes cache hits and misses.
type Recorder interface {
	RecordCache(hit bool)
}

// Payloads caches raw upstream response bodies under versioned keys. Only the
// bytes received from upstream are stored, never derived results.
type Payloads struct {
	client   *redis.Client
	ttl      time.Duration
	recorder Recorder
	logger   *slog.Logger
}

// NewPayloads returns a payload cache. A nil client or non-positive ttl
// disables caching and every Fetch goes to the loader.
func NewPayloads(client *redis.Client, ttl time.Duration, recorder Recorder) *Payloads {
	return &Payloads{client: client, ttl: ttl, recorder: recorder, logger: slog.Default()}
}

// WithLogger sets the logger used for degraded cache reads and writes.
func (p *Payloads) WithLogger(logger *slog.Logger) *Payloads {
	if p != nil && logger != nil {
		p.logger = logger
	}
	return p
}

func (p *Payloads) enabled() bool {
	return p != nil && p.client != nil && p.ttl > 0
}

// Version returns the current key version, initialising it when missing.
func (p *Payloads) Version(ctx context.Context) (int64, error) {
	if !p.enabled() {
		return 0, nil
	}
	ver, err := p.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := p.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (p *Payloads) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := "opsdash:payload:" + strings.Join(parts, ":")
	if !p.enabled() {
		return joined, nil
	}
	ver, err := p.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Fetch returns the cached body for key or loads and stores it. Redis
// failures only cost the cache: the loader still runs and its body is
// returned even when the write back fails.
func (p *Payloads) Fetch(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if loader == nil {
		return nil, errors.New("cache: loader required")
	}
	if !p.enabled() {
		return loader(ctx)
	}
	body, err := p.client.Get(ctx, key).Bytes()
	if err == nil {
		p.record(true)
		return body, nil
	}
	if !errors.Is(err, redis.Nil) {
		p.logger.Warn("payload cache read", slog.String("key", key), slog.Any("error", err))
	}
	p.record(false)
	body, err = loader(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.client.Set(ctx, key, body, p.ttl).Err(); err != nil {
		p.logger.Warn("payload cache write", slog.String("key", key), slog.Any("error", err))
	}
	return body, nil
}

// Bump invalidates every cached payload by moving to a new key version.
func (p *Payloads) Bump(ctx context.Context) error {
	if !p.enabled() {
		return nil
	}
	return p.client.Incr(ctx, versionKey).Err()
}

func (p *Payloads) record(hit bool) {
	if p.recorder != nil {
		p.recorder.RecordCache(hit)
	}
}
