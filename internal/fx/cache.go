package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

type quoteCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider serves quotes from Redis until they expire. When the
// upstream fails it may fall back to the last known quote for the pair,
// provided it is younger than staleFallback. A zero staleFallback blocks instead.
type CachedProvider struct {
	next          RateProvider
	cache         quoteCache
	prefix        string
	staleFallback time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewCachedProvider(next RateProvider, cache quoteCache, staleFallback time.Duration, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		next:          next,
		cache:         cache,
		prefix:        "transferpro:fx",
		staleFallback: staleFallback,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (p *CachedProvider) GetQuote(ctx context.Context, from, to domain.Currency) (*Quote, error) {
	if err := checkPair(from, to); err != nil {
		return nil, fmt.Errorf("GetQuote: %w", err)
	}

	now := p.now()
	if q, ok := p.read(ctx, p.key("quote", from, to)); ok && !q.Expired(now) {
		return q, nil
	}

	q, err := p.next.GetQuote(ctx, from, to)
	if err != nil {
		if !errors.Is(err, domain.ErrRateUnavailable) || p.staleFallback <= 0 {
			return nil, fmt.Errorf("GetQuote: %w", err)
		}
		last, ok := p.read(ctx, p.key("last", from, to))
		if !ok || now.Sub(last.Timestamp) > p.staleFallback {
			return nil, fmt.Errorf("GetQuote: %w", err)
		}
		p.logger.Warn("serving last known rate", "from", from, "to", to, "quoted_at", last.Timestamp, "error", err)
		return last, nil
	}

	if ttl := q.ExpiresAt.Sub(now); ttl > 0 {
		p.write(ctx, p.key("quote", from, to), q, ttl)
	}
	if p.staleFallback > 0 {
		p.write(ctx, p.key("last", from, to), q, p.staleFallback)
	}
	return q, nil
}

func (p *CachedProvider) key(kind string, from, to domain.Currency) string {
	return fmt.Sprintf("%s:%s:%s:%s", p.prefix, kind, from, to)
}

func (p *CachedProvider) read(ctx context.Context, key string) (*Quote, bool) {
	raw, err := p.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn("quote cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		p.logger.Warn("quote cache entry malformed", "key", key, "error", err)
		return nil, false
	}
	return &q, true
}

func (p *CachedProvider) write(ctx context.Context, key string, q *Quote, ttl time.Duration) {
	raw, err := json.Marshal(q)
	if err != nil {
		p.logger.Warn("quote cache encode failed", "key", key, "error", err)
		return
	}
	if err := p.cache.Set(ctx, key, raw, ttl).Err(); err != nil {
		p.logger.Warn("quote cache write failed", "key", key, "error", err)
	}
}
