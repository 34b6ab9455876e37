package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	latestKeyPrefix = "ver:latest:"    // latest version number: ver:latest:{document_id}
	latestTTL       = 24 * time.Hour   // re-derived from the ledger on miss
)

// LatestVersionCache keeps the latest version number per document in Redis
// so conflict checks don't hit the ledger on every keystroke-driven poll.
type LatestVersionCache struct {
	client *redis.Client
}

// NewLatestVersionCache creates a new LatestVersionCache
func NewLatestVersionCache(client *redis.Client) *LatestVersionCache {
	return &LatestVersionCache{client: client}
}

// Get returns the cached latest version number. The second result is false
// on a cache miss.
func (c *LatestVersionCache) Get(ctx context.Context, documentID int64) (int, bool, error) {
	val, err := c.client.Get(ctx, c.key(documentID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get latest version number: %w", err)
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		// Unreadable entry: treat as a miss rather than poisoning callers.
		return 0, false, nil
	}
	return n, true, nil
}

// Set records the latest version number for a document.
func (c *LatestVersionCache) Set(ctx context.Context, documentID int64, versionNumber int) error {
	err := c.client.Set(ctx, c.key(documentID), strconv.Itoa(versionNumber), latestTTL).Err()
	if err != nil {
		return fmt.Errorf("set latest version number: %w", err)
	}
	return nil
}

// Invalidate drops the cached number, forcing the next read to the ledger.
func (c *LatestVersionCache) Invalidate(ctx context.Context, documentID int64) error {
	if err := c.client.Del(ctx, c.key(documentID)).Err(); err != nil {
		return fmt.Errorf("invalidate latest version number: %w", err)
	}
	return nil
}

func (c *LatestVersionCache) key(documentID int64) string {
	return fmt.Sprintf("%s%d", latestKeyPrefix, documentID)
}
