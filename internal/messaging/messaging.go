// internal/messaging/messaging.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

// Publisher sends domain events to a topic
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
	Close() error
}

// New returns a kafka publisher when brokers are configured, otherwise a
// publisher that only logs events
func New(cfg *config.Config, logger *logrus.Logger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Warn("No Kafka brokers configured, events will only be logged")
		return NewLogPublisher(logger)
	}
	return NewKafkaPublisher(cfg.Kafka.Brokers, logger)
}

func encode(event any) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

// LogPublisher writes events to the application log
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a publisher backed by logger
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":   topic,
		"key":     key,
		"payload": string(payload),
	}).Info("Event published")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
