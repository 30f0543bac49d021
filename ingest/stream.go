// Package ingest moves experiences between producers and the agent over a
// Redis stream.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nstehr/eocatr-core/model"
)

const (
	DefaultStream = "eocatr_experiences"
	DefaultGroup  = "eocatr_agents"

	payloadField = "payload"
	idField      = "experience_id"
	blockFor     = 2 * time.Second
)

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Publisher appends experiences to a stream.
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{client: client, stream: stream}
}

// Publish adds exp to the stream and returns the entry id.
func (p *Publisher) Publish(ctx context.Context, exp *model.Experience) (string, error) {
	values, err := encode(exp)
	if err != nil {
		return "", err
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: p.stream, Values: values}).Result()
	if err != nil {
		return "", fmt.Errorf("publish experience: %w", err)
	}
	return id, nil
}

// Handler processes one decoded experience. A returned error leaves the
// entry unacknowledged so it stays in the group's pending list.
type Handler func(ctx context.Context, exp *model.Experience) error

// StreamConsumer reads a stream as one member of a consumer group.
type StreamConsumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

func NewConsumer(client *redis.Client, stream, group, consumer string) *StreamConsumer {
	if stream == "" {
		stream = DefaultStream
	}
	if group == "" {
		group = DefaultGroup
	}
	return &StreamConsumer{client: client, stream: stream, group: group, consumer: consumer}
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}

// Run reads entries until ctx is cancelled. Entries that fail to decode are
// acknowledged and dropped; the count of handled entries is returned.
func (c *StreamConsumer) Run(ctx context.Context, handle Handler) (int, error) {
	if err := c.EnsureGroup(ctx); err != nil {
		return 0, err
	}
	handled := 0
	for {
		if ctx.Err() != nil {
			return handled, nil
		}
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    16,
			Block:    blockFor,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			return handled, nil
		case err != nil:
			return handled, fmt.Errorf("read experiences: %w", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				exp, err := decode(msg.Values)
				if err != nil {
					slog.Warn("dropping stream entry", "id", msg.ID, "error", err)
					c.ack(ctx, msg.ID)
					continue
				}
				if err := handle(ctx, exp); err != nil {
					slog.Error("experience handler failed", "id", msg.ID, "experience", exp.ID, "error", err)
					continue
				}
				c.ack(ctx, msg.ID)
				handled++
			}
		}
	}
}

func (c *StreamConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		slog.Warn("ack failed", "id", id, "error", err)
	}
}

func encode(exp *model.Experience) (map[string]any, error) {
	if exp == nil {
		return nil, errors.New("nil experience")
	}
	data, err := json.Marshal(exp)
	if err != nil {
		return nil, fmt.Errorf("encode experience: %w", err)
	}
	return map[string]any{
		idField:      exp.ID,
		payloadField: string(data),
	}, nil
}

func decode(values map[string]any) (*model.Experience, error) {
	payload := getString(values, payloadField)
	if payload == "" {
		return nil, errors.New("missing payload")
	}
	var exp model.Experience
	if err := json.Unmarshal([]byte(payload), &exp); err != nil {
		return nil, fmt.Errorf("decode experience: %w", err)
	}
	exp.Normalize()
	return &exp, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
