// Package cache provides content-addressed storage for layout plans.
//
// A plan is fully determined by the score content and the engraving
// coefficients, so cache keys are hashes of both. Implementations are safe
// for reuse across runs; the file cache is the default for CLI usage and
// the null cache disables caching entirely.
package cache

import (
	"context"
	"time"
)

// Default TTLs. Plans are content-addressed, so entries never go stale;
// the TTL only bounds disk growth.
const (
	PlanTTL = 30 * 24 * time.Hour
)

// Cache stores serialized artifacts by key.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// PlanKeyOpts carries everything besides the score that affects a plan.
type PlanKeyOpts struct {
	ConfigHash string // hash of the serialized engraving config
	Version    string // layout engine version; bump to invalidate across releases
}

// Keyer generates cache keys. Implementations must be deterministic: the
// same inputs always produce the same key.
type Keyer interface {
	// ScoreKey identifies a score by its serialized content.
	ScoreKey(content []byte) string

	// PlanKey identifies a layout plan by score hash and plan options.
	PlanKey(scoreHash string, opts PlanKeyOpts) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ScoreKey hashes the serialized score content.
func (k *DefaultKeyer) ScoreKey(content []byte) string {
	return "score:" + Hash(content)
}

// PlanKey combines the score hash with the plan options.
func (k *DefaultKeyer) PlanKey(scoreHash string, opts PlanKeyOpts) string {
	return hashKey("plan", scoreHash, opts.ConfigHash, opts.Version)
}
