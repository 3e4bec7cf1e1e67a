package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const payloadPreviewLen = 100

func payloadPreview(payload []byte) string {
	if len(payload) > payloadPreviewLen {
		return string(payload[:payloadPreviewLen]) + "..."
	}
	return string(payload)
}

func messageAttributes(operation, topic string, msg *message.Message) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "watermill"),
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.destination", topic),
		attribute.String("messaging.message_id", msg.UUID),
		attribute.String("user.id", msg.Metadata.Get(metaKeyUserID)),
		attribute.Int("messaging.message_payload_size_bytes", len(msg.Payload)),
		attribute.String("messaging.message_payload_preview", payloadPreview(msg.Payload)),
	}
}

// TracingMiddleware wraps a watermill handler in a "pubsub.process.<topic>" span.
func TracingMiddleware(tracer trace.Tracer) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx := msg.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			topic := msg.Metadata.Get(metaKeyTopic)
			spanCtx, span := tracer.Start(ctx, fmt.Sprintf("pubsub.process.%s", topic),
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(messageAttributes("process", topic, msg)...),
			)
			defer span.End()

			msg.SetContext(spanCtx)

			produced, err := h(msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}

			span.SetAttributes(attribute.Int("messaging.messages_produced", len(produced)))
			return produced, nil
		}
	}
}

// PublisherTracingMiddleware wraps a publisher with tracing capabilities
type PublisherTracingMiddleware struct {
	publisher message.Publisher
	tracer    trace.Tracer
}

var _ message.Publisher = (*PublisherTracingMiddleware)(nil)

// NewPublisherTracingMiddleware creates a new publisher with tracing middleware
func NewPublisherTracingMiddleware(publisher message.Publisher, tracer trace.Tracer) *PublisherTracingMiddleware {
	return &PublisherTracingMiddleware{publisher: publisher, tracer: tracer}
}

// Publish opens one "pubsub.publish.<topic>" span per message and closes them
// once the underlying publisher returns.
func (p *PublisherTracingMiddleware) Publish(topic string, messages ...*message.Message) error {
	spans := make([]trace.Span, 0, len(messages))
	for _, msg := range messages {
		ctx := msg.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		spanCtx, span := p.tracer.Start(ctx, fmt.Sprintf("pubsub.publish.%s", topic),
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(messageAttributes("publish", topic, msg)...),
		)
		msg.SetContext(spanCtx)
		spans = append(spans, span)
	}

	err := p.publisher.Publish(topic, messages...)
	for _, span := range spans {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
	return err
}

// Close closes the underlying publisher
func (p *PublisherTracingMiddleware) Close() error {
	return p.publisher.Close()
}
