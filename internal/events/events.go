// Package events publishes ranking outcomes to a message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"trendscout/internal/metrics"
	"trendscout/internal/model"
)

// Message envelope metadata.
const (
	Source  = "trendscout"
	Version = "1.0"
)

// Ranked describes one successful ranking request.
type Ranked struct {
	RequestID string
	Query     string
	Criteria  []string
	Results   []model.RankedResult
}

// Message is the structure sent on the bus.
type Message struct {
	RequestID string               `json:"requestId"`
	Query     string               `json:"query"`
	Criteria  []string             `json:"criteria,omitempty"`
	Results   []model.RankedResult `json:"results"`
	Timestamp time.Time            `json:"timestamp"`
	Source    string               `json:"source"`
	Version   string               `json:"version"`
}

// Publisher publishes ranking events.
type Publisher interface {
	PublishRanked(ctx context.Context, ev Ranked) error
	Close()
}

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes ranking events to a NATS subject.
type NATSPublisher struct {
	conn    Conn
	nc      *nats.Conn
	subject string
	now     func() time.Time
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name(Source), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := NewPublisherWithConn(nc, subject)
	p.nc = nc
	return p, nil
}

// NewPublisherWithConn creates a publisher on an existing connection (useful for testing).
func NewPublisherWithConn(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, now: time.Now}
}

// PublishRanked publishes ev wrapped in a Message envelope.
func (p *NATSPublisher) PublishRanked(_ context.Context, ev Ranked) error {
	data, err := json.Marshal(Message{
		RequestID: ev.RequestID,
		Query:     ev.Query,
		Criteria:  ev.Criteria,
		Results:   ev.Results,
		Timestamp: p.now().UTC(),
		Source:    Source,
		Version:   Version,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		metrics.NatsMessagesPublished.WithLabelValues(p.subject, "error").Inc()
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	metrics.NatsMessagesPublished.WithLabelValues(p.subject, "ok").Inc()
	return nil
}

// Close drains and closes the connection, if owned.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// Nop discards every event.
type Nop struct{}

// PublishRanked does nothing.
func (Nop) PublishRanked(context.Context, Ranked) error { return nil }

// Close does nothing.
func (Nop) Close() {}
