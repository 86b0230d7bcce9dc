package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// InterpretationCache memoizes interpretation results in Redis, keyed by user
// and folded question text. Entries carry the lexicon version they were built
// against so a vocabulary change invalidates them implicitly.
type InterpretationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates an interpretation cache from a Redis URL.
func New(redisURL string, ttl time.Duration) (*InterpretationCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &InterpretationCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

// NewWithClient wraps an existing Redis client; used when the rate limiter
// already holds a connection.
func NewWithClient(client *redis.Client, ttl time.Duration) *InterpretationCache {
	return &InterpretationCache{client: client, ttl: ttl}
}

type cacheEntry struct {
	LexiconVersion uint64                 `json:"lexicon_version"`
	Interpretation *models.Interpretation `json:"interpretation"`
}

func cacheKey(userID uuid.UUID, question string) string {
	sum := sha256.Sum256([]byte(lexicon.Fold(question)))
	return fmt.Sprintf("oraculo:interp:%s:%s", userID, hex.EncodeToString(sum[:16]))
}

// Get returns the cached interpretation, or nil on a miss or a stale lexicon
// version. Cache errors are returned so the caller can log and interpret anyway.
func (c *InterpretationCache) Get(ctx context.Context, userID uuid.UUID, question string, lexiconVersion uint64) (*models.Interpretation, error) {
	payload, err := c.client.Get(ctx, cacheKey(userID, question)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read interpretation cache: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached interpretation: %w", err)
	}
	if entry.LexiconVersion != lexiconVersion {
		return nil, nil
	}
	return entry.Interpretation, nil
}

// Set stores an interpretation for the user's question.
func (c *InterpretationCache) Set(ctx context.Context, userID uuid.UUID, question string, lexiconVersion uint64, interp *models.Interpretation) error {
	payload, err := json.Marshal(cacheEntry{
		LexiconVersion: lexiconVersion,
		Interpretation: interp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode interpretation: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(userID, question), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write interpretation cache: %w", err)
	}
	return nil
}

// Invalidate drops all cached interpretations for one user.
func (c *InterpretationCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	pattern := fmt.Sprintf("oraculo:interp:%s:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache entries: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *InterpretationCache) Close() error {
	return c.client.Close()
}

// HealthCheck verifies the Redis connection is healthy.
func (c *InterpretationCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
