// Package cache provides a short-TTL redis cache in front of the rule and
// calendar stores. The TTL is bounded by the monitoring interval so a sweep
// never evaluates against configuration older than one cycle. Redis being
// down is never an error; reads fall through to the store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-monitor/internal/domain"
	"github.com/spec-kit/sla-monitor/internal/repository"
)

const (
	rulesKey       = "sla:rules:active"
	hoursKeyFormat = "sla:hours:%d"
)

// SLACache serves active rules and business hours, caching store reads.
type SLACache struct {
	client   *redis.Client
	rules    repository.RuleStore
	calendar repository.CalendarStore
	ttl      time.Duration
	logger   *zap.Logger
}

// NewSLACache creates the cache. A nil client disables caching entirely.
func NewSLACache(client *redis.Client, rules repository.RuleStore, calendar repository.CalendarStore, ttl time.Duration, logger *zap.Logger) *SLACache {
	return &SLACache{
		client:   client,
		rules:    rules,
		calendar: calendar,
		ttl:      ttl,
		logger:   logger,
	}
}

// ActiveRules returns the active rule set, cached.
func (c *SLACache) ActiveRules(ctx context.Context) ([]domain.SlaRule, error) {
	var cached []domain.SlaRule
	if c.lookup(ctx, rulesKey, &cached) {
		return cached, nil
	}

	rules, err := c.rules.FindActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, rulesKey, rules)
	return rules, nil
}

// ActiveHours returns the entity's active windows, cached per entity.
func (c *SLACache) ActiveHours(ctx context.Context, entityID int64) ([]domain.BusinessHours, error) {
	key := fmt.Sprintf(hoursKeyFormat, entityID)

	var cached []domain.BusinessHours
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	hours, err := c.calendar.FindActiveHours(ctx, entityID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, hours)
	return hours, nil
}

// Invalidate drops all cached SLA configuration, used after rule edits.
func (c *SLACache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, "sla:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Debug("cache invalidation failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
}

func (c *SLACache) lookup(ctx context.Context, key string, dest any) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Debug("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *SLACache) store(ctx context.Context, key string, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
