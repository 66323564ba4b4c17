// Package cache provides the optional Redis-backed cache of latest
// assessment results. A nil client disables caching entirely; the
// decision pipeline never depends on a cache hit.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// AssessmentCache caches the latest assessment per medical record.
type AssessmentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewAssessmentCache creates an assessment cache. Pass a nil client to
// run without Redis; all operations then become no-ops.
func NewAssessmentCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *AssessmentCache {
	return &AssessmentCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled reports whether a Redis client is configured.
func (c *AssessmentCache) Enabled() bool {
	return c != nil && c.client != nil
}

func cacheKey(recordID int64) string {
	return fmt.Sprintf("assessment:latest:%d", recordID)
}

// GetLatest returns the cached latest assessment for the record, if any.
// Cache errors degrade to a miss.
func (c *AssessmentCache) GetLatest(ctx context.Context, recordID int64) (*domain.Assessment, bool) {
	if !c.Enabled() {
		return nil, false
	}

	payload, err := c.client.Get(ctx, cacheKey(recordID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("record_id", recordID).Warn("Assessment cache read failed")
		}
		return nil, false
	}

	var assessment domain.Assessment
	if err := json.Unmarshal(payload, &assessment); err != nil {
		c.logger.WithError(err).WithField("record_id", recordID).Warn("Assessment cache entry corrupt, dropping")
		c.Invalidate(ctx, recordID)
		return nil, false
	}
	return &assessment, true
}

// SetLatest stores the assessment as the record's latest one.
func (c *AssessmentCache) SetLatest(ctx context.Context, assessment *domain.Assessment) {
	if !c.Enabled() || assessment == nil {
		return
	}

	payload, err := json.Marshal(assessment)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal assessment for cache")
		return
	}
	if err := c.client.Set(ctx, cacheKey(assessment.MedicalRecordID), payload, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("record_id", assessment.MedicalRecordID).Warn("Assessment cache write failed")
	}
}

// Invalidate removes the record's cached assessment.
func (c *AssessmentCache) Invalidate(ctx context.Context, recordID int64) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, cacheKey(recordID)).Err(); err != nil {
		c.logger.WithError(err).WithField("record_id", recordID).Warn("Assessment cache invalidation failed")
	}
}
