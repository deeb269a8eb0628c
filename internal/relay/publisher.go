// Package relay carries realtime envelopes between API instances over Kafka so
// a listener connected to any instance sees events raised on every other one.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rain-droid/orgIO/internal/consumer"
	"github.com/rain-droid/orgIO/internal/domain"
	"github.com/rain-droid/orgIO/pkg/events"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger overrides the publisher logger.
func WithPublisherLogger(logger *log.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithFallback delivers envelopes through n when the broker write fails, so
// listeners on this instance still see them.
func WithFallback(n domain.Notifier) PublisherOption {
	return func(p *Publisher) {
		p.fallback = n
	}
}

// Publisher writes envelopes to the relay topic keyed by organization.
type Publisher struct {
	writer   Writer
	topic    string
	logger   *log.Logger
	fallback domain.Notifier
	now      func() time.Time
}

// NewPublisher builds a Publisher backed by a synchronous kafka.Writer.
func NewPublisher(brokers []string, topic string, opts ...PublisherOption) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(writer, topic, opts...)
}

// NewPublisherWithWriter builds a Publisher over an existing writer.
func NewPublisherWithWriter(writer Writer, topic string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		writer: writer,
		topic:  topic,
		logger: log.New(log.Writer(), "[relay] ", log.LstdFlags|log.Lshortfile),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Notify implements domain.Notifier by publishing the envelope.
func (p *Publisher) Notify(ctx context.Context, orgID string, envelope events.Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(orgID),
		Value: body,
		Time:  p.now().UTC(),
		Headers: []kafka.Header{
			{Key: consumer.HeaderEventType, Value: []byte(envelope.Type)},
			{Key: consumer.HeaderOrgID, Value: []byte(orgID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		recordPublish(envelope.Type, "error")
		if p.fallback != nil {
			p.logger.Printf("publish %s for org %s failed, delivering locally: %v", envelope.Type, orgID, err)
			return p.fallback.Notify(ctx, orgID, envelope)
		}
		return fmt.Errorf("publish %s: %w", envelope.Type, err)
	}
	recordPublish(envelope.Type, "ok")
	return nil
}

// Topic returns the relay topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
