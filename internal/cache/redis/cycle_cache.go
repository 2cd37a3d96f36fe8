package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jbetancourt7/surebet/internal/domain"
)

const (
	lastCycleKey = "cycle:last"
	cycleStream  = "cycle:history"

	// cycleHistoryMaxLen bounds the history stream via XADD MAXLEN ~.
	cycleHistoryMaxLen int64 = 1000
)

// CycleCache implements domain.CycleStatusCache. The latest summary lives
// under a plain key for the status endpoint; every summary is also appended
// to a capped Redis stream so recent cycles can be listed.
type CycleCache struct {
	rdb *redis.Client
}

// NewCycleCache creates a CycleCache backed by the given Client.
func NewCycleCache(c *Client) *CycleCache {
	return &CycleCache{rdb: c.Underlying()}
}

// SetLast stores stats as the most recent cycle and appends it to the
// history stream.
func (cc *CycleCache) SetLast(ctx context.Context, stats domain.CycleStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("redis: marshal cycle stats: %w", err)
	}

	if err := cc.rdb.Set(ctx, lastCycleKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set last cycle: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: cycleStream,
		MaxLen: cycleHistoryMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": data},
	}
	if err := cc.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: append cycle history: %w", err)
	}
	return nil
}

// GetLast returns the most recent cycle summary, or domain.ErrNotFound when
// no cycle has completed yet.
func (cc *CycleCache) GetLast(ctx context.Context) (domain.CycleStats, error) {
	data, err := cc.rdb.Get(ctx, lastCycleKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CycleStats{}, domain.ErrNotFound
		}
		return domain.CycleStats{}, fmt.Errorf("redis: get last cycle: %w", err)
	}

	var stats domain.CycleStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.CycleStats{}, fmt.Errorf("redis: unmarshal cycle stats: %w", err)
	}
	return stats, nil
}

// Recent returns up to count cycle summaries, newest first.
func (cc *CycleCache) Recent(ctx context.Context, count int) ([]domain.CycleStats, error) {
	if count <= 0 {
		count = 20
	}

	messages, err := cc.rdb.XRevRangeN(ctx, cycleStream, "+", "-", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read cycle history: %w", err)
	}

	var out []domain.CycleStats
	for _, msg := range messages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			continue
		}
		var stats domain.CycleStats
		if err := json.Unmarshal([]byte(payload), &stats); err != nil {
			continue
		}
		out = append(out, stats)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.CycleStatusCache = (*CycleCache)(nil)
