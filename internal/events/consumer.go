package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"walletledger/internal/models"

	"github.com/redis/go-redis/v9"
)

// Handler processes one delivered event. Returning an error leaves the
// message pending so it is redelivered until MaxAttempts is reached.
type Handler func(ctx context.Context, event models.TransactionCompletedEvent) error

// ConsumerOptions tune the stream worker.
type ConsumerOptions struct {
	Stream      string        // default: TransactionStream
	Group       string        // default: "settlement_cg"
	Consumer    string        // default: "consumer-1"
	Block       time.Duration // default: 5s
	Batch       int64         // default: 100
	MinIdle     time.Duration // default: 30s, for reclaiming stalled messages
	MaxAttempts int64         // default: 5, then the message is dead-lettered
}

// Consumer reads transaction-completed events from the stream through a
// consumer group. Messages whose handler keeps failing are moved to the
// dead-letter stream and acknowledged so they stop blocking the group.
type Consumer struct {
	client  redis.UniversalClient
	handler Handler
	opt     ConsumerOptions
}

func NewConsumer(client redis.UniversalClient, handler Handler, opt *ConsumerOptions) *Consumer {
	o := ConsumerOptions{
		Stream:      TransactionStream,
		Group:       "settlement_cg",
		Consumer:    "consumer-1",
		Block:       5 * time.Second,
		Batch:       100,
		MinIdle:     30 * time.Second,
		MaxAttempts: 5,
	}
	if opt != nil {
		if opt.Stream != "" {
			o.Stream = opt.Stream
		}
		if opt.Group != "" {
			o.Group = opt.Group
		}
		if opt.Consumer != "" {
			o.Consumer = opt.Consumer
		}
		if opt.Block != 0 {
			o.Block = opt.Block
		}
		if opt.Batch != 0 {
			o.Batch = opt.Batch
		}
		if opt.MinIdle != 0 {
			o.MinIdle = opt.MinIdle
		}
		if opt.MaxAttempts != 0 {
			o.MaxAttempts = opt.MaxAttempts
		}
	}
	return &Consumer{client: client, handler: handler, opt: o}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.ensureGroup(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.reclaimPending(ctx)

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.opt.Group,
			Consumer: c.opt.Consumer,
			Streams:  []string{c.opt.Stream, ">"},
			Count:    c.opt.Batch,
			Block:    c.opt.Block,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("event consumer: read error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.handleMessage(ctx, msg, 1)
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) {
	err := c.client.XGroupCreateMkStream(ctx, c.opt.Stream, c.opt.Group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		log.Printf("event consumer: failed to create group %q: %v", c.opt.Group, err)
	}
}

// reclaimPending takes over messages another consumer read but never acked,
// carrying their delivery count forward so the attempt budget still applies.
func (c *Consumer) reclaimPending(ctx context.Context) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.opt.Stream,
		Group:  c.opt.Group,
		Idle:   c.opt.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  c.opt.Batch,
	}).Result()
	if err != nil || len(pending) == 0 {
		return
	}

	attempts := make(map[string]int64, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		attempts[p.ID] = p.RetryCount
		ids = append(ids, p.ID)
	}

	msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.opt.Stream,
		Group:    c.opt.Group,
		Consumer: c.opt.Consumer,
		MinIdle:  c.opt.MinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("event consumer: claim error: %v", err)
		}
		return
	}
	for _, msg := range msgs {
		c.handleMessage(ctx, msg, attempts[msg.ID])
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg redis.XMessage, attempt int64) {
	event, err := decodeEvent(msg)
	if err != nil {
		log.Printf("event consumer: dropping malformed message %s: %v", msg.ID, err)
		c.deadLetter(ctx, msg, err.Error())
		return
	}

	if err := c.handler(ctx, event); err != nil {
		if attempt >= c.opt.MaxAttempts {
			log.Printf("event consumer: giving up on %s after %d attempts: %v",
				event.TransactionID, attempt, err)
			c.deadLetter(ctx, msg, err.Error())
			return
		}
		// Leave unacked; redelivered via the pending reclaim path.
		log.Printf("event consumer: handler failed for %s (attempt %d): %v",
			event.TransactionID, attempt, err)
		return
	}

	if err := c.client.XAck(ctx, c.opt.Stream, c.opt.Group, msg.ID).Err(); err != nil {
		log.Printf("event consumer: ack failed for %s: %v", msg.ID, err)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	values := map[string]interface{}{"reason": reason}
	for k, v := range msg.Values {
		values[k] = v
	}
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: TransactionDeadLetterStream,
		Values: values,
	}).Err(); err != nil {
		log.Printf("event consumer: dead-letter write failed for %s: %v", msg.ID, err)
		return
	}
	_ = c.client.XAck(ctx, c.opt.Stream, c.opt.Group, msg.ID).Err()
}

func decodeEvent(msg redis.XMessage) (models.TransactionCompletedEvent, error) {
	var event models.TransactionCompletedEvent
	raw, _ := msg.Values["payload"].(string)
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, err
	}
	return event, nil
}

// LogHandler is the default event handler: it records the event at the
// boundary. Downstream settlement hooks plug in here.
func LogHandler(_ context.Context, event models.TransactionCompletedEvent) error {
	log.Printf("processed transaction event: %s %s %s",
		event.TransactionID, event.Type, event.Amount.StringFixed(2))
	return nil
}
