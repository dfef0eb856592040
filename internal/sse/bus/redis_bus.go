package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/sse"
)

// All simulation run events travel on one pub/sub channel; the per-user
// routing happens in the hub, keyed by SSEMessage.Channel.
const defaultRunChannel = "simulation.runs"

const redisDialTimeout = 5 * time.Second

func runChannelFromEnv() string {
	if ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL")); ch != "" {
		return ch
	}
	return defaultRunChannel
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisBus(log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: redisDialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	channel := runChannelFromEnv()
	return &redisBus{
		log:     log.With("service", "RedisSSEBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis SSE bus not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func decodeRunEvent(payload string) (sse.SSEMessage, error) {
	var msg sse.SSEMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return sse.SSEMessage{}, err
	}
	if msg.Channel == "" {
		return sse.SSEMessage{}, fmt.Errorf("run event missing target channel")
	}
	return msg, nil
}

// StartForwarder subscribes to the run channel and feeds every decoded event
// to onMsg (the local hub) until ctx is cancelled.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis SSE bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		events := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-events:
				if !ok || m == nil {
					return
				}
				msg, err := decodeRunEvent(m.Payload)
				if err != nil {
					b.log.Warn("Dropping undecodable run event", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
