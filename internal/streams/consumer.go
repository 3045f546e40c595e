package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Consumer reads calendar webhook notifications as a member of the
// calendar workers group
type Consumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
}

// NewConsumer joins the consumer group, creating the stream and group when
// they do not exist yet
func NewConsumer(redisURL, consumerName string) (*Consumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	err = client.XGroupCreateMkStream(context.Background(), StreamCalendarEvents, GroupCalendarWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		rdb:          client,
		groupName:    GroupCalendarWorkers,
		consumerName: consumerName,
	}, nil
}

// Consume runs a blocking loop handing each notification to handler until
// ctx is done. Entries are acknowledged only after handler succeeds.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, WebhookEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamCalendarEvents, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads time out when the stream is idle
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Error("Failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				ev, err := decode(msg.Values)
				if err != nil {
					slog.Error("Dropping malformed stream entry", "message_id", msg.ID, "error", err)
					c.ack(ctx, msg.ID)
					continue
				}

				if err := handler(ctx, ev); err != nil {
					slog.Error("Handler failed", "error", err, "message_id", msg.ID, "type", ev.Type)
					// Left pending for redelivery
					continue
				}
				c.ack(ctx, msg.ID)
			}
		}
	}
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, StreamCalendarEvents, c.groupName, id).Err(); err != nil {
		slog.Error("Failed to ACK message", "error", err, "message_id", id)
	}
}

func decode(values map[string]interface{}) (WebhookEvent, error) {
	var ev WebhookEvent
	payload, ok := values["payload"].(string)
	if !ok {
		return ev, fmt.Errorf("entry has no payload")
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return ev, nil
}

// Close closes the Redis client connection
func (c *Consumer) Close() error {
	return c.rdb.Close()
}

// Start runs a consumer in a background goroutine and returns its stop
// function
func Start(redisURL, consumerName string, handler func(context.Context, WebhookEvent) error) (stop func(), err error) {
	consumer, err := NewConsumer(redisURL, consumerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := consumer.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Stream consumer stopped with error", "error", err)
		}
	}()

	slog.Info("Calendar event consumer started", "stream", StreamCalendarEvents, "consumer", consumerName)

	return func() {
		cancel()
		<-done
		consumer.Close()
	}, nil
}
