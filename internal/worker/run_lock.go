package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RunLock guards the sweep so only one pass runs at a time, across all
// instances when backed by redis.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

const runLockKey = "sla:monitor:lock"

// redisRunLock is a SETNX lock with a TTL. The TTL covers a crashed holder;
// a healthy holder releases explicitly at the end of the pass.
type redisRunLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	token string
}

// NewRedisRunLock creates a distributed run lock.
func NewRedisRunLock(client *redis.Client, ttl time.Duration, logger *zap.Logger) RunLock {
	return &redisRunLock{client: client, ttl: ttl, logger: logger}
}

func (l *redisRunLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, runLockKey, token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return ok, nil
}

func (l *redisRunLock) Release(ctx context.Context) {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return
	}

	// Delete only our own token so an expired lock reclaimed by another
	// instance is left alone.
	const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
	if err := l.client.Eval(ctx, script, []string{runLockKey}, token).Err(); err != nil {
		l.logger.Warn("run lock release failed", zap.Error(err))
	}
}

// localRunLock is the in-process fallback used when redis is unavailable.
// It still prevents overlapping passes within one instance.
type localRunLock struct {
	mu sync.Mutex
}

// NewLocalRunLock creates a single-instance run lock.
func NewLocalRunLock() RunLock {
	return &localRunLock{}
}

func (l *localRunLock) Acquire(ctx context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *localRunLock) Release(ctx context.Context) {
	l.mu.Unlock()
}
