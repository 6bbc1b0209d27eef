package persistence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

const apiKeyCachePrefix = "rcalendar:apikey:"

// CachedAPIKeyRepository layers a Redis cache over key → app
// resolution. Cache traffic runs behind a circuit breaker; misses,
// cache failures and an open breaker all fall through to the wrapped
// repository, so a flapping Redis degrades latency only, never
// correctness. Revocation invalidates the cached entry and the TTL
// bounds staleness when invalidation itself fails.
type CachedAPIKeyRepository struct {
	inner   domain.APIKeyRepository
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[string]
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedAPIKeyRepository wraps inner with a Redis cache.
func NewCachedAPIKeyRepository(inner domain.APIKeyRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedAPIKeyRepository {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "apikey-cache",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CachedAPIKeyRepository{
		inner:   inner,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		ttl:     ttl,
		logger:  logger,
	}
}

// Create stores a new key. Fresh keys are not pre-warmed; the first
// lookup populates the cache.
func (r *CachedAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	return r.inner.Create(ctx, key)
}

// FindApp resolves an active key to its app label, consulting the cache
// first.
func (r *CachedAPIKeyRepository) FindApp(ctx context.Context, key uuid.UUID) (string, error) {
	cacheKey := apiKeyCachePrefix + key.String()

	app, err := r.breaker.Execute(func() (string, error) {
		val, err := r.client.Get(ctx, cacheKey).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return val, err
	})
	if err == nil && app != "" {
		return app, nil
	}
	if err != nil && !errors.Is(err, gobreaker.ErrOpenState) {
		r.logger.Warn("api key cache read failed", "error", err)
	}

	app, err = r.inner.FindApp(ctx, key)
	if err != nil || app == "" {
		return app, err
	}

	if _, cacheErr := r.breaker.Execute(func() (string, error) {
		return "", r.client.Set(ctx, cacheKey, app, r.ttl).Err()
	}); cacheErr != nil && !errors.Is(cacheErr, gobreaker.ErrOpenState) {
		r.logger.Warn("api key cache write failed", "error", cacheErr)
	}
	return app, nil
}

// List returns every key, oldest first.
func (r *CachedAPIKeyRepository) List(ctx context.Context) ([]*domain.APIKey, error) {
	return r.inner.List(ctx)
}

// Deactivate revokes the key and drops its cached entry.
func (r *CachedAPIKeyRepository) Deactivate(ctx context.Context, key uuid.UUID) error {
	if err := r.inner.Deactivate(ctx, key); err != nil {
		return err
	}

	if _, cacheErr := r.breaker.Execute(func() (string, error) {
		return "", r.client.Del(ctx, apiKeyCachePrefix+key.String()).Err()
	}); cacheErr != nil && !errors.Is(cacheErr, gobreaker.ErrOpenState) {
		r.logger.Warn("api key cache invalidation failed", "error", cacheErr)
	}
	return nil
}
