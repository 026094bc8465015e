// Package closing consumes closing line messages from a Redis stream
// and applies them to open tracked bets.
package closing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LineRecorder applies one closing line to a tracked bet.
type LineRecorder interface {
	RecordClosingLine(ctx context.Context, betID string, closingLine float64) (float64, error)
}

// Consumer reads closing line messages off a Redis stream with a
// consumer group, so multiple daemon replicas share the work and a
// crashed replica's pending messages get redelivered.
type Consumer struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	recorder LineRecorder
	log      zerolog.Logger
}

// New creates a consumer. The consumer name distinguishes replicas
// within the group.
func New(rdb *redis.Client, stream, group, consumer string, recorder LineRecorder, log zerolog.Logger) *Consumer {
	return &Consumer{
		rdb:      rdb,
		stream:   stream,
		group:    group,
		consumer: consumer,
		recorder: recorder,
		log:      log.With().Str("component", "closing-consumer").Logger(),
	}
}

// Run consumes until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	c.log.Info().Str("stream", c.stream).Str("group", c.group).Msg("consumer group ready")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.consumeBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("consume batch")
			time.Sleep(5 * time.Second)
		}
	}
}

func (c *Consumer) consumeBatch(ctx context.Context) error {
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("xreadgroup: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if err := c.handle(ctx, msg); err != nil {
				// A bad message is acked anyway so it does not wedge
				// the group; the error is logged for followup.
				c.log.Error().Err(err).Str("msg_id", msg.ID).Msg("handle closing line")
			}
			c.rdb.XAck(ctx, c.stream, c.group, msg.ID)
		}
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) error {
	betID, line, err := ParseMessage(msg.Values)
	if err != nil {
		return err
	}

	clv, err := c.recorder.RecordClosingLine(ctx, betID, line)
	if err != nil {
		return fmt.Errorf("record closing line for %s: %w", betID, err)
	}
	c.log.Info().Str("bet_id", betID).Float64("closing_line", line).Float64("clv", clv).Msg("closing line recorded")
	return nil
}

// ParseMessage extracts the bet id and closing line from a stream
// message. Producers write string fields, so the line arrives as text.
func ParseMessage(values map[string]interface{}) (betID string, line float64, err error) {
	betID, ok := values["bet_id"].(string)
	if !ok || betID == "" {
		return "", 0, fmt.Errorf("missing bet_id in message")
	}
	raw, ok := values["closing_line"].(string)
	if !ok {
		return "", 0, fmt.Errorf("missing closing_line in message")
	}
	line, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parsing closing_line %q: %w", raw, err)
	}
	return betID, line, nil
}
