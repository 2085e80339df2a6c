package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/logging"
	"order-fulfillment/internal/metrics"
)

// Topics maps event kinds to bus topics.
type Topics struct {
	User         string
	Order        string
	Notification string
}

func (t Topics) For(kind domain.EventKind) (string, error) {
	switch kind {
	case domain.EventKindUser:
		return t.User, nil
	case domain.EventKindOrder:
		return t.Order, nil
	case domain.EventKindNotification:
		return t.Notification, nil
	}
	return "", fmt.Errorf("no topic for event kind %q", kind)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends domain events at most once. Failures are logged and
// counted, never returned, and never retried.
type Publisher struct {
	writer  messageWriter
	topics  Topics
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewKafka returns a Publisher writing to brokers. With no brokers every
// Publish is a debug-logged no-op.
func NewKafka(brokers []string, topics Topics, m *metrics.Metrics, logger *zap.Logger) *Publisher {
	if len(brokers) == 0 {
		return New(nil, topics, m, logger)
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return New(w, topics, m, logger)
}

func New(w messageWriter, topics Topics, m *metrics.Metrics, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{writer: w, topics: topics, metrics: m, logger: logger}
}

// Publish writes ev to the topic for its kind, keyed by user id so a user's
// events stay ordered within a partition. Events without a user are sent
// unkeyed and spread over partitions. The write is not cancelled with ctx.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) {
	log := logging.FromContext(ctx, p.logger).With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
	)

	topic, err := p.topics.For(ev.Kind)
	if err != nil {
		p.metrics.EventPublished("unknown", metrics.OutcomeError)
		log.Warn("event not published", zap.Error(err))
		return
	}
	if p.writer == nil {
		p.metrics.EventPublished(topic, metrics.OutcomeSkipped)
		log.Debug("event bus not configured, event dropped", zap.String("topic", topic))
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.metrics.EventPublished(topic, metrics.OutcomeError)
		log.Warn("event not published", zap.String("topic", topic), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Topic: topic,
		Value: body,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(ev.Type)},
			{Key: "eventId", Value: []byte(ev.ID)},
		},
		Time: ev.Timestamp,
	}
	if ev.UserID > 0 {
		msg.Key = []byte(strconv.FormatInt(ev.UserID, 10))
	}
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.metrics.EventPublished(topic, metrics.OutcomeError)
		log.Warn("event not published", zap.String("topic", topic), zap.Error(err))
		return
	}
	p.metrics.EventPublished(topic, metrics.OutcomeSuccess)
	log.Debug("event published", zap.String("topic", topic))
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
