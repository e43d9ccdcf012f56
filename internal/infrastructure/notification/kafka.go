package notification

import (
	"context"
	"encoding/json"
	"time"

	domain "github.com/Zhima-Mochi/medishop/internal/domain/notification"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var kafkaTracer = otel.Tracer("notification/kafka")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes delivered notifications to a topic keyed by user id.
type KafkaSender struct {
	writer messageWriter
	topic  string
}

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
		},
	}
}

type kafkaPayload struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Kind      string            `json:"kind"`
	Body      string            `json:"body"`
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (s *KafkaSender) Send(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(kafkaPayload{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Kind:      string(msg.Kind),
		Body:      msg.Body,
		Params:    msg.Params,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		return err
	}

	km := kafka.Message{
		Key:   []byte(msg.UserID),
		Value: data,
	}

	ctx, span := kafkaTracer.Start(ctx, "send "+s.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(s.topic),
			semconv.MessagingKafkaMessageKey(msg.UserID),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &km})

	if err := s.writer.WriteMessages(ctx, km); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

// headerCarrier lets the otel propagator write trace headers onto a kafka message.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		keys[i] = h.Key
	}
	return keys
}
