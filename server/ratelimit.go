package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	RetryAfter int // seconds until the window resets, rounded up; 0 when allowed
}

// Limiter is a fixed-window counter keyed by client. The first hit opens a
// window; at most Max hits fit inside it.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	// Prune deletes windows that have already reset
	Prune(ctx context.Context) (int, error)
}

// LimitPolicy is the window shape shared by both implementations
type LimitPolicy struct {
	Window time.Duration `yaml:"window"`
	Max    int           `yaml:"max"`
}

func (p LimitPolicy) validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", p.Window)
	}
	if p.Max < 1 {
		return fmt.Errorf("rate limit max must be at least 1, got %d", p.Max)
	}
	return nil
}

func retrySeconds(remaining time.Duration) int {
	return int(math.Ceil(remaining.Seconds()))
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps windows in process memory. Counts reset when the
// process restarts and are not shared between instances, so it only suits
// a single-instance deployment.
type MemoryLimiter struct {
	policy LimitPolicy
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(p LimitPolicy) *MemoryLimiter {
	return &MemoryLimiter{policy: p, now: time.Now, windows: make(map[string]*window)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.policy.Window)}
		return Decision{Allowed: true}, nil
	}
	if w.count >= l.policy.Max {
		return Decision{RetryAfter: retrySeconds(w.resetAt.Sub(now))}, nil
	}
	w.count++
	return Decision{Allowed: true}, nil
}

func (l *MemoryLimiter) Prune(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
			n++
		}
	}
	return n, nil
}

// SQLiteLimiter stores windows in the rate_limits table so they survive
// restarts and are shared by every process using the same database file.
// Keys are namespaced so several limiters can share the table.
type SQLiteLimiter struct {
	db     *DB
	policy LimitPolicy
	prefix string
	now    func() time.Time
}

// NewSQLiteLimiter creates a database-backed limiter
func NewSQLiteLimiter(db *DB, prefix string, p LimitPolicy) *SQLiteLimiter {
	return &SQLiteLimiter{db: db, policy: p, prefix: prefix + ":", now: time.Now}
}

// windowUpsert opens a fresh window when the stored one has expired and
// counts the hit otherwise, as a single statement. SET expressions see the
// pre-update row.
const windowUpsert = `
INSERT INTO rate_limits (key, count, reset_at) VALUES (?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
	count = CASE WHEN rate_limits.reset_at <= ? THEN 1 ELSE rate_limits.count + 1 END,
	reset_at = CASE WHEN rate_limits.reset_at <= ? THEN excluded.reset_at ELSE rate_limits.reset_at END
RETURNING count, reset_at`

func (l *SQLiteLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	nowMs := now.UnixMilli()
	reset := now.Add(l.policy.Window).UnixMilli()

	var count int
	var resetMs int64
	err := l.db.conn.QueryRowContext(ctx, windowUpsert, l.prefix+key, reset, nowMs, nowMs).Scan(&count, &resetMs)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit hit: %w", err)
	}
	if count > l.policy.Max {
		return Decision{RetryAfter: retrySeconds(time.UnixMilli(resetMs).Sub(now))}, nil
	}
	return Decision{Allowed: true}, nil
}

func (l *SQLiteLimiter) Prune(ctx context.Context) (int, error) {
	res, err := l.db.conn.ExecContext(ctx,
		"DELETE FROM rate_limits WHERE key LIKE ? AND reset_at <= ?", l.prefix+"%", l.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("rate limit prune: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// NewLimiter picks the implementation named by store ("memory" or "sqlite")
func NewLimiter(store string, db *DB, prefix string, p LimitPolicy) (Limiter, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	switch store {
	case "memory", "":
		return NewMemoryLimiter(p), nil
	case "sqlite":
		if db == nil {
			return nil, errors.New("sqlite rate limit store needs a database")
		}
		return NewSQLiteLimiter(db, prefix, p), nil
	}
	return nil, fmt.Errorf("unknown rate limit store %q", store)
}

// RunJanitor prunes expired windows every interval until ctx ends
func RunJanitor(ctx context.Context, interval time.Duration, log *zap.Logger, limiters ...Limiter) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, l := range limiters {
				n, err := l.Prune(ctx)
				if err != nil {
					log.Warn("rate limit prune failed", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Debug("pruned rate limit windows", zap.Int("count", n))
				}
			}
		}
	}
}
