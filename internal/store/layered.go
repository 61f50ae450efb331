package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"grocery-autocart/pkg/models"
)

// Layered is the read-through/write-through composition of cache and store:
// reads go cache -> durable store -> cache warm; writes go to the durable
// store first and to the cache best-effort. Cache failures never fail an
// operation, they only cost latency on the next read.
type Layered struct {
	cache  SessionCache
	store  SessionStore
	logger *zap.Logger
}

// NewLayered wires the cache in front of the durable store.
func NewLayered(cache SessionCache, durable SessionStore, logger *zap.Logger) *Layered {
	return &Layered{
		cache:  cache,
		store:  durable,
		logger: logger.Named("store"),
	}
}

// Save upserts the durable record and refreshes the cache.
func (l *Layered) Save(ctx context.Context, session *models.SessionData) error {
	if err := l.store.Save(ctx, session); err != nil {
		return err
	}
	if err := l.cache.Set(ctx, session); err != nil {
		l.logger.Warn("failed to refresh session cache",
			zap.String("session_id", session.ID), zap.Error(err))
	}
	return nil
}

// Get loads the session cache-first, warming the cache on a durable hit.
// Returns ErrNotFound when neither layer holds the record.
func (l *Layered) Get(ctx context.Context, id string) (*models.SessionData, error) {
	session, err := l.cache.Get(ctx, id)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrNotFound) {
		l.logger.Warn("session cache read failed, falling back to durable store",
			zap.String("session_id", id), zap.Error(err))
	}

	session, err = l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, session); err != nil {
		l.logger.Warn("failed to warm session cache",
			zap.String("session_id", id), zap.Error(err))
	}
	return session, nil
}

// Delete evicts both layers. The durable error wins; cache errors are logged.
func (l *Layered) Delete(ctx context.Context, id string) error {
	if err := l.cache.Delete(ctx, id); err != nil {
		l.logger.Warn("failed to evict session cache",
			zap.String("session_id", id), zap.Error(err))
	}
	return l.store.Delete(ctx, id)
}

// PingStore checks the durable store for the health endpoint.
func (l *Layered) PingStore(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// PingCache checks the cache for the health endpoint.
func (l *Layered) PingCache(ctx context.Context) error {
	return l.cache.Ping(ctx)
}
