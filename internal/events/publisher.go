// Package events carries transaction-completed events over a Redis Stream.
// Delivery is at-least-once: the publisher runs strictly after the ledger
// commit, and consumers are responsible for idempotent handling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"walletledger/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// TransactionStream is the durable stream mutations are published to.
	TransactionStream = "transaction.completed"
	// TransactionDeadLetterStream receives events whose handler kept failing.
	TransactionDeadLetterStream = "transaction.dlq"

	// DefaultPublishTimeout bounds how long a publish may hold up the caller.
	DefaultPublishTimeout = 2 * time.Second
)

// Publisher accepts a transaction-completed event for asynchronous delivery.
type Publisher interface {
	PublishTransactionCompleted(ctx context.Context, event models.TransactionCompletedEvent) error
}

// RedisPublisher appends events to a Redis Stream.
type RedisPublisher struct {
	client  redis.UniversalClient
	stream  string
	timeout time.Duration
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		stream:  TransactionStream,
		timeout: DefaultPublishTimeout,
	}
}

func (p *RedisPublisher) PublishTransactionCompleted(ctx context.Context, event models.TransactionCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"transaction_id": event.TransactionID,
			"payload":        string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish transaction event: %w", err)
	}
	return nil
}

// NoopPublisher discards events. Used in tests and tools that do not run the
// event pipeline.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransactionCompleted(context.Context, models.TransactionCompletedEvent) error {
	return nil
}
