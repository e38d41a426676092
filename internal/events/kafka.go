// Package events delivers shoe change events outside the process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// DefaultTopic receives shoe events when no topic is configured.
const DefaultTopic = "shoerack.shoe-events"

// HeaderEventType carries the event type on every Kafka message.
const HeaderEventType = "event_type"

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one Kafka topic. The writer is created on
// the first publish.
type KafkaPublisher struct {
	brokers []string
	topic   string
	logger  *log.Logger

	mu        sync.Mutex
	writer    messageWriter
	newWriter func() messageWriter
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithKafkaLogger overrides the publisher's logger.
func WithKafkaLogger(l *log.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// withWriterFactory swaps the Kafka writer, used by tests.
func withWriterFactory(f func() messageWriter) KafkaOption {
	return func(p *KafkaPublisher) {
		p.newWriter = f
	}
}

// NewKafkaPublisher creates a publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, opts ...KafkaOption) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	p := &KafkaPublisher{
		brokers: brokers,
		topic:   topic,
		logger:  log.New(io.Discard, "[events] ", log.LstdFlags),
	}
	p.newWriter = func() messageWriter {
		return &kafka.Writer{
			Addr:                   kafka.TCP(p.brokers...),
			Topic:                  p.topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish implements types.Publisher. Events for one shoe share a key so
// they land on one partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, event types.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", event.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.ShoeID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Type)},
		},
		Time: time.Now().UTC(),
	}
	if err := p.writerFor().WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event %s to %s: %w", event.Type, p.topic, err)
	}
	p.logger.Printf("published %s for shoe %s", event.Type, event.ShoeID)
	return nil
}

func (p *KafkaPublisher) writerFor() messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		p.writer = p.newWriter()
	}
	return p.writer
}

// Close releases the writer if one was created.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}

var _ types.Publisher = (*KafkaPublisher)(nil)
