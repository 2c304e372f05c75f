package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/resilience"
)

type captured struct {
	events []kafka.Event
}

func (c *captured) Publish(_ context.Context, ev kafka.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func TestKafkaPublisherKeysByDomain(t *testing.T) {
	w := &captured{}
	p := &KafkaPublisher{w: w}
	require.NoError(t, p.IndexActivated(context.Background(), IndexActivated{Domain: "travel", Nodes: 4}))

	require.Len(t, w.events, 1)
	assert.Equal(t, "travel", w.events[0].Key)
	assert.Equal(t, 4, w.events[0].Value.(IndexActivated).Nodes)
	assert.NoError(t, Nop{}.IndexActivated(context.Background(), IndexActivated{}))
}

func TestRequesterPublishesRequest(t *testing.T) {
	w := &captured{}
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	r := &Requester{w: w, now: func() time.Time { return at }}
	require.NoError(t, r.RequestReindex(context.Background(), "shop", "searchctl"))

	require.Len(t, w.events, 1)
	assert.Equal(t, "shop", w.events[0].Key)
	assert.Equal(t, ReindexRequest{Domain: "shop", RequestedBy: "searchctl", RequestedAt: at}, w.events[0].Value)
}

type flaky struct {
	captured
	failures int
}

func (f *flaky) Publish(ctx context.Context, ev kafka.Event) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("leader not available")
	}
	return f.captured.Publish(ctx, ev)
}

func TestPublisherRetriesTransientFailures(t *testing.T) {
	w := &flaky{failures: 2}
	p := &KafkaPublisher{w: w, backoff: resilience.Backoff{Attempts: 3, Initial: time.Millisecond}}
	require.NoError(t, p.IndexActivated(context.Background(), IndexActivated{Domain: "travel"}))
	assert.Len(t, w.events, 1)

	w = &flaky{failures: 5}
	r := &Requester{w: w, now: time.Now, backoff: resilience.Backoff{Attempts: 2, Initial: time.Millisecond}}
	err := r.RequestReindex(context.Background(), "travel", "ops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish reindex request failed after 2 attempts")
	assert.Empty(t, w.events)
}

func TestHandleReindexRequests(t *testing.T) {
	var got []string
	h := HandleReindexRequests(func(_ context.Context, domain string) error {
		got = append(got, domain)
		if domain == "bad" {
			return errors.New("unknown")
		}
		return nil
	})

	raw, _ := json.Marshal(ReindexRequest{Domain: "travel"})
	assert.NoError(t, h(context.Background(), []byte("travel"), raw))
	assert.NoError(t, h(context.Background(), nil, []byte(`{`)))
	assert.NoError(t, h(context.Background(), nil, []byte(`{}`)))
	assert.Error(t, h(context.Background(), nil, []byte(`{"domain":"bad"}`)))
	assert.Equal(t, []string{"travel", "bad"}, got)
}

func TestHandleIndexActivated(t *testing.T) {
	var got []string
	h := HandleIndexActivated(func(_ context.Context, domain string) error {
		got = append(got, domain)
		return nil
	})
	raw, _ := json.Marshal(IndexActivated{Domain: "shop", Nodes: 2})
	require.NoError(t, h(context.Background(), []byte("shop"), raw))
	require.NoError(t, h(context.Background(), nil, []byte(`not json`)))
	assert.Equal(t, []string{"shop"}, got)
}
