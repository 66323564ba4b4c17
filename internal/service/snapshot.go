package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
)

// SnapshotProvider hands out immutable rule snapshots with a bounded
// staleness. The engine never loads rules itself: every evaluation
// receives an explicit snapshot, and administrative rule edits call
// Invalidate so the next evaluation sees the new rule set.
type SnapshotProvider struct {
	store  domain.RuleStore
	ttl    time.Duration
	logger *logrus.Logger

	mu      sync.RWMutex
	current *domain.RuleSnapshot
}

// NewSnapshotProvider creates a snapshot provider refreshing at most every ttl.
func NewSnapshotProvider(store domain.RuleStore, ttl time.Duration, logger *logrus.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached snapshot, reloading it from the store when the
// TTL has elapsed or the cache was invalidated.
func (p *SnapshotProvider) Get(ctx context.Context) (*domain.RuleSnapshot, error) {
	p.mu.RLock()
	snapshot := p.current
	p.mu.RUnlock()

	if snapshot != nil && time.Since(snapshot.LoadedAt) < p.ttl {
		return snapshot, nil
	}
	return p.refresh(ctx)
}

// Invalidate drops the cached snapshot so the next Get reloads.
func (p *SnapshotProvider) Invalidate() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.logger.Debug("Rule snapshot invalidated")
}

func (p *SnapshotProvider) refresh(ctx context.Context) (*domain.RuleSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if p.current != nil && time.Since(p.current.LoadedAt) < p.ttl {
		return p.current, nil
	}

	snapshot, err := p.store.ActiveSnapshot(ctx)
	if err != nil {
		// Serve the stale snapshot rather than failing the evaluation when
		// one exists; rules change rarely.
		if p.current != nil {
			p.logger.WithError(err).Warn("Rule snapshot refresh failed, serving stale snapshot")
			return p.current, nil
		}
		return nil, err
	}

	p.current = snapshot
	p.logger.WithFields(logrus.Fields{
		"rules":      len(snapshot.Rules),
		"categories": len(snapshot.Categories),
	}).Info("Rule snapshot refreshed")

	return snapshot, nil
}
