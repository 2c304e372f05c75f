// Package kafka carries the index events between the indexer and the
// searchers over segmentio/kafka-go: JSON events keyed by search domain,
// a request id header for log correlation, and a consumer that commits a
// message once its handler is done with it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/resilience"
)

// MessageHandler is called once per message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type consumerOptions struct {
	group       string
	startOffset int64
	retry       *resilience.Backoff
}

type ConsumerOption func(*consumerOptions)

// WithGroup overrides the configured consumer group. Searchers use a group
// per replica so every replica sees every activation.
func WithGroup(group string) ConsumerOption {
	return func(o *consumerOptions) { o.group = group }
}

// FromFirstOffset makes a new group start at the oldest retained message
// instead of the newest.
func FromFirstOffset() ConsumerOption {
	return func(o *consumerOptions) { o.startOffset = kafka.FirstOffset }
}

// WithHandlerRetry retries a failing handler with b before the message is
// given up on.
func WithHandlerRetry(b resilience.Backoff) ConsumerOption {
	return func(o *consumerOptions) { o.retry = &b }
}

// Consumer hands messages of one topic to a MessageHandler. A message is
// committed after the handler returns, failed or not, so one bad message
// never blocks the partition.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
	retry   *resilience.Backoff
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	o := consumerOptions{group: cfg.ConsumerGroup, startOffset: kafka.LastOffset}
	for _, opt := range opts {
		opt(&o)
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     o.group,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: o.startOffset,
	})
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", o.group),
		handler: handler,
		retry:   o.retry,
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	for _, h := range msg.Headers {
		if h.Key == requestIDHeader {
			ctx = logger.WithRequestID(ctx, string(h.Value))
		}
	}
	log := logger.FromContext(ctx)
	log.Debug("message received", "partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))

	call := func(ctx context.Context) error { return c.handler(ctx, msg.Key, msg.Value) }
	var err error
	if c.retry != nil {
		err = resilience.Retry(ctx, "handle "+msg.Topic+" message", *c.retry, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		log.Error("giving up on message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"error", err,
		)
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
