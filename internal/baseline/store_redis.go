package baseline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"perfrunner/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "perf:baseline:"

// RedisStore keeps baselines in Redis as JSON values. Suited for CI fleets
// where multiple agents compare against the same baselines.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis from a URL and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.WithField("redis_url", redisURL).Info("Connected to Redis baseline store")

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client, mainly for tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(endpointKey string) string {
	// Endpoint keys contain URLs; hash them into a fixed-width key.
	sum := sha1.Sum([]byte(endpointKey))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}

// Load fetches the baseline for an endpoint. Missing keys are not errors.
func (s *RedisStore) Load(ctx context.Context, endpointKey string) (*Baseline, error) {
	raw, err := s.client.Get(ctx, redisKey(endpointKey)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline for %q: %w", endpointKey, err)
	}

	var base Baseline
	if err := json.Unmarshal([]byte(raw), &base); err != nil {
		return nil, fmt.Errorf("corrupt baseline for %q: %w", endpointKey, err)
	}
	return &base, nil
}

// Save replaces the endpoint's baseline with one lifted from the snapshot.
func (s *RedisStore) Save(ctx context.Context, endpointKey string, snap metrics.Snapshot) (*Baseline, error) {
	prev, err := s.Load(ctx, endpointKey)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", endpointKey).
			Warn("Could not read previous baseline, starting at version 1")
		prev = nil
	}

	base := FromSnapshot(endpointKey, snap, prev)
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("failed to encode baseline: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(endpointKey), raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to save baseline for %q: %w", endpointKey, err)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": endpointKey,
		"version":  base.Version,
	}).Info("Baseline saved")

	return &base, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
