package events

import (
	"context"
	"log"
	"strings"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// LogPublisher writes one line per event. It is used when no brokers are
// configured.
type LogPublisher struct {
	logger *log.Logger
}

// NewLogPublisher returns a publisher that logs to l.
func NewLogPublisher(l *log.Logger) *LogPublisher {
	if l == nil {
		l = log.Default()
	}
	return &LogPublisher{logger: l}
}

// Publish implements types.Publisher.
func (p *LogPublisher) Publish(_ context.Context, event types.Event) error {
	line := string(event.Type) + " shoe=" + event.ShoeID
	if len(event.ActivityIDs) > 0 {
		line += " activities=" + strings.Join(event.ActivityIDs, ",")
	}
	if len(event.Categories) > 0 {
		cats := make([]string, len(event.Categories))
		for i, c := range event.Categories {
			cats[i] = string(c)
		}
		line += " categories=" + strings.Join(cats, ",")
	}
	p.logger.Println(line)
	return nil
}

// Close implements types.Publisher.
func (p *LogPublisher) Close() error { return nil }

// New picks the Kafka publisher when brokers are configured and the log
// publisher otherwise.
func New(brokers []string, topic string, logger *log.Logger) types.Publisher {
	if len(brokers) == 0 {
		return NewLogPublisher(logger)
	}
	return NewKafkaPublisher(brokers, topic, WithKafkaLogger(logger))
}
