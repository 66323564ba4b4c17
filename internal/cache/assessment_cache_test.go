package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/dental-cdss-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestAssessmentCache_DisabledWithoutClient(t *testing.T) {
	c := NewAssessmentCache(nil, time.Minute, testLogger())
	ctx := context.Background()

	assert.False(t, c.Enabled())

	// All operations are safe no-ops without a client.
	c.SetLatest(ctx, &domain.Assessment{MedicalRecordID: 1})
	_, ok := c.GetLatest(ctx, 1)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "assessment:latest:42", cacheKey(42))
}
