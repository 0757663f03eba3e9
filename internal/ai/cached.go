package ai

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-ranker/internal/jobs"
	"github.com/spigell/job-ranker/internal/logger"
)

const cacheKeyPrefix = "job-ranker:score:"

// Cache stores score results with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) (*ScoreResult, bool, error)
	Set(ctx context.Context, key string, result *ScoreResult, ttl time.Duration) error
}

// CachedScorer memoizes another Scorer. Cache failures never fail scoring.
type CachedScorer struct {
	next   Scorer
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedScorer(next Scorer, cache Cache, ttl time.Duration, l *zap.Logger) *CachedScorer {
	return &CachedScorer{next: next, cache: cache, ttl: ttl, logger: logger.WithFields(l)}
}

func (c *CachedScorer) Score(ctx context.Context, job jobs.Job, filters jobs.Filters) (*ScoreResult, error) {
	log := logger.WithFields(c.logger, logger.JobFields(job)...)

	key, err := CacheKey(job, filters)
	if err != nil {
		log.Debug("building cache key failed", zap.Error(err))
		return c.next.Score(ctx, job, filters)
	}

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn("reading score cache failed", zap.Error(err))
	}
	if ok && cached != nil {
		log.Debug("score cache hit", zap.Int("score", cached.Score))
		return cached, nil
	}

	result, err := c.next.Score(ctx, job, filters)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		log.Warn("writing score cache failed", zap.Error(err))
	}

	return result, nil
}

// CacheKey derives a stable key from the job and the normalized filters.
func CacheKey(job jobs.Job, filters jobs.Filters) (string, error) {
	payload, err := json.Marshal(struct {
		Job     jobs.Job     `json:"job"`
		Filters jobs.Filters `json:"filters"`
	}{job, filters.Normalize()})
	if err != nil {
		return "", fmt.Errorf("marshal cache key payload: %w", err)
	}

	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s%x", cacheKeyPrefix, sum[:]), nil
}
