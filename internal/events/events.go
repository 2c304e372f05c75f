// Package events defines the Kafka payloads exchanged between the indexer
// and the searchers, a publisher for activation events and the handlers
// that react to incoming messages.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/resilience"
)

// ReindexRequest asks the indexer to rebuild one search domain.
type ReindexRequest struct {
	Domain      string    `json:"domain"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// IndexActivated is emitted after a new generation became the active one.
type IndexActivated struct {
	Domain      string    `json:"domain"`
	Nodes       int       `json:"nodes"`
	Words       int       `json:"words"`
	Failed      int       `json:"failed"`
	ActivatedAt time.Time `json:"activated_at"`
}

// Publisher announces activated generations.
type Publisher interface {
	IndexActivated(ctx context.Context, ev IndexActivated) error
}

type writer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// publish retries transient broker failures. A zero Backoff uses the
// resilience defaults.
func publish(ctx context.Context, w writer, b resilience.Backoff, op string, ev kafka.Event) error {
	return resilience.Retry(ctx, op, b, func(ctx context.Context) error {
		return w.Publish(ctx, ev)
	})
}

// KafkaPublisher publishes activation events keyed by domain.
type KafkaPublisher struct {
	w       writer
	backoff resilience.Backoff
}

func NewKafkaPublisher(p *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{w: p}
}

func (p *KafkaPublisher) IndexActivated(ctx context.Context, ev IndexActivated) error {
	return publish(ctx, p.w, p.backoff, "publish index activation", kafka.Event{Key: ev.Domain, Value: ev})
}

// Requester asks the indexer service for reindex runs.
type Requester struct {
	w       writer
	backoff resilience.Backoff
	now     func() time.Time
}

func NewRequester(p *kafka.Producer) *Requester {
	return &Requester{w: p, now: time.Now}
}

func (r *Requester) RequestReindex(ctx context.Context, domain, requestedBy string) error {
	return publish(ctx, r.w, r.backoff, "publish reindex request", kafka.Event{Key: domain, Value: ReindexRequest{
		Domain:      domain,
		RequestedBy: requestedBy,
		RequestedAt: r.now().UTC(),
	}})
}

// Nop drops every event. Used when Kafka is disabled.
type Nop struct{}

func (Nop) IndexActivated(context.Context, IndexActivated) error { return nil }

// HandleReindexRequests returns a message handler running reindex for each
// request. Undecodable messages are logged and skipped so they get
// committed.
func HandleReindexRequests(reindex func(ctx context.Context, domain string) error) kafka.MessageHandler {
	log := slog.Default().With("component", "reindex-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[ReindexRequest](value)
		if err != nil || req.Domain == "" {
			log.Error("dropping malformed reindex request", "key", string(key), "error", err)
			return nil
		}
		logger.FromContext(ctx).Info("reindex requested", "domain", req.Domain, "requested_by", req.RequestedBy)
		return reindex(ctx, req.Domain)
	}
}

// HandleIndexActivated returns a message handler calling invalidate for
// the activated domain.
func HandleIndexActivated(invalidate func(ctx context.Context, domain string) error) kafka.MessageHandler {
	log := slog.Default().With("component", "activation-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[IndexActivated](value)
		if err != nil || ev.Domain == "" {
			log.Error("dropping malformed activation event", "key", string(key), "error", err)
			return nil
		}
		logger.FromContext(ctx).Info("index activated", "domain", ev.Domain, "nodes", ev.Nodes)
		return invalidate(ctx, ev.Domain)
	}
}
