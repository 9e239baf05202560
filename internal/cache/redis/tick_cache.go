package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// tickTTL bounds how long a cached quote is served. Quotes older than this
// have expired; callers fall back to the terminal.
const tickTTL = 30 * time.Second

// TickCache implements domain.TickCache using Redis hashes. Each symbol's
// latest quote is stored at key "tick:{symbol}" with fields "bid", "ask",
// "last", "volume" and "ts" (Unix nanosecond timestamp).
type TickCache struct {
	rdb *redis.Client
}

// NewTickCache creates a TickCache backed by the given Client.
func NewTickCache(c *Client) *TickCache {
	return &TickCache{rdb: c.Underlying()}
}

func tickKey(symbol string) string {
	return "tick:" + symbol
}

// SetTick stores the latest quote for a symbol.
func (tc *TickCache) SetTick(ctx context.Context, symbol string, tick domain.Tick) error {
	key := tickKey(symbol)
	fields := map[string]interface{}{
		"bid":    strconv.FormatFloat(tick.Bid, 'f', -1, 64),
		"ask":    strconv.FormatFloat(tick.Ask, 'f', -1, 64),
		"last":   strconv.FormatFloat(tick.Last, 'f', -1, 64),
		"volume": strconv.FormatFloat(tick.Volume, 'f', -1, 64),
		"ts":     strconv.FormatInt(tick.Time.UnixNano(), 10),
	}

	pipe := tc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, tickTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set tick %s: %w", symbol, err)
	}
	return nil
}

// GetTick retrieves the latest cached quote for a symbol. It returns
// domain.ErrNotFound when no quote has been cached or the entry expired.
func (tc *TickCache) GetTick(ctx context.Context, symbol string) (domain.Tick, error) {
	key := tickKey(symbol)
	vals, err := tc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Tick{}, fmt.Errorf("redis: get tick %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return domain.Tick{}, domain.ErrNotFound
	}

	tick := domain.Tick{Symbol: symbol}
	tick.Bid, err = strconv.ParseFloat(vals["bid"], 64)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("redis: parse tick %s bid: %w", symbol, err)
	}
	tick.Ask, err = strconv.ParseFloat(vals["ask"], 64)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("redis: parse tick %s ask: %w", symbol, err)
	}
	if v, ok := vals["last"]; ok {
		tick.Last, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals["volume"]; ok {
		tick.Volume, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals["ts"]; ok {
		if ns, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			tick.Time = time.Unix(0, ns)
		}
	}

	return tick, nil
}

// Compile-time interface check.
var _ domain.TickCache = (*TickCache)(nil)
