package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisBroker fans events out through Redis pub/sub. Each table maps to
// the channel "<prefix>:<table>".
type RedisBroker struct {
	client *redis.Client
	prefix string
	buffer int
}

// NewRedisBroker connects to the Redis server at url (redis://...) and
// returns a broker publishing under prefix.
func NewRedisBroker(url, prefix string, buffer int) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisBrokerWithClient(redis.NewClient(opts), prefix, buffer), nil
}

// NewRedisBrokerWithClient wraps an existing client.
func NewRedisBrokerWithClient(client *redis.Client, prefix string, buffer int) *RedisBroker {
	if buffer < 1 {
		buffer = 1
	}
	return &RedisBroker{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		buffer: buffer,
	}
}

// Channel returns the Redis channel used for table.
func (b *RedisBroker) Channel(table string) string {
	return b.prefix + ":" + table
}

// Ping checks connectivity.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish encodes ev as JSON and publishes it on the table channel.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.Channel(ev.Table), payload).Err(); err != nil {
		return err
	}
	eventsPublished.WithLabelValues(ev.Table, string(ev.Type)).Inc()
	return nil
}

// Subscribe opens a Redis subscription for table. It waits for the server
// to confirm the subscription so that connection errors surface here.
func (b *RedisBroker) Subscribe(ctx context.Context, table string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.Channel(table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, b.buffer)
	ctx, cancel := context.WithCancel(ctx)
	subscribers.WithLabelValues(table).Inc()

	go func() {
		defer func() {
			_ = ps.Close()
			close(out)
			subscribers.WithLabelValues(table).Dec()
		}()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("feed: undecodable message")
					continue
				}
				select {
				case out <- ev:
				default:
					eventsDropped.WithLabelValues(table).Inc()
				}
			}
		}
	}()

	return &Subscription{C: out, table: table, cancel: cancel}, nil
}

// Close closes the underlying client. Open subscriptions end with it.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
