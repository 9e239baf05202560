package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Channel and stream names re-exported from the bus contract for callers
// already importing this package.
const (
	ChannelSignals = domain.ChannelSignals
	ChannelOrders  = domain.ChannelOrders
	ChannelAccount = domain.ChannelAccount
	StreamSignals  = domain.StreamSignals
	StreamOrders   = domain.StreamOrders
)

// streamMaxLen bounds each stream via XADD MAXLEN ~. With first-ID-keyed
// journal objects this also bounds duplicate re-uploads after a restart.
const streamMaxLen int64 = 10000

// SignalBus implements domain.SignalBus on Redis: Pub/Sub for live fan-out,
// streams for the bounded durable history.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish fans a payload out to a Pub/Sub channel. Delivery is best-effort;
// durable consumers read the streams instead.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a Pub/Sub subscription and pumps payloads into the
// returned channel until ctx is cancelled, at which point the channel is
// closed. Channel names with glob wildcards use PSUBSCRIBE.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var sub *redis.PubSub
	if strings.ContainsAny(channel, "*?[") {
		sub = sb.rdb.PSubscribe(ctx, channel)
	} else {
		sub = sb.rdb.Subscribe(ctx, channel)
	}

	// Wait for the subscription confirmation so a bad channel fails here
	// rather than silently on the pump goroutine.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go sb.pump(ctx, sub, out)
	return out, nil
}

func (sb *SignalBus) pump(ctx context.Context, sub *redis.PubSub, out chan<- []byte) {
	defer close(out)
	defer sub.Close()

	in := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// StreamAppend XADDs a payload under the "payload" field, trimming the
// stream to roughly streamMaxLen entries.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count entries after lastID, oldest first. A
// lastID of "0-0" reads from the start. It never blocks: no pending entries
// means an empty result, not an error.
func (sb *SignalBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	res, err := sb.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   int64(count),
		Block:   -1, // non-blocking; zero means BLOCK 0 (forever)
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var out []domain.StreamMessage
	for _, s := range res {
		for _, msg := range s.Messages {
			raw, ok := msg.Values["payload"]
			if !ok {
				continue
			}
			switch v := raw.(type) {
			case string:
				out = append(out, domain.StreamMessage{ID: msg.ID, Payload: []byte(v)})
			case []byte:
				out = append(out, domain.StreamMessage{ID: msg.ID, Payload: v})
			}
		}
	}
	return out, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
