package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Metadata keys used to carry Message fields through a watermill message.
const (
	metaKeyUserID = "user_id"
	metaKeyTopic  = "topic"
)

// WatermillBridge implements Publisher and Subscriber on an in-process
// watermill GoChannel.
type WatermillBridge struct {
	pub     message.Publisher
	sub     message.Subscriber
	tracing message.HandlerMiddleware
}

var (
	_ Publisher  = (*WatermillBridge)(nil)
	_ Subscriber = (*WatermillBridge)(nil)
)

// NewWatermillBridge returns an in-memory bus without tracing.
func NewWatermillBridge() *WatermillBridge {
	return NewWatermillBridgeWithTracer(noop.NewTracerProvider().Tracer(tracerName))
}

// NewWatermillBridgeWithTracer returns an in-memory bus whose publishes and
// deliveries are traced with tracer.
func NewWatermillBridgeWithTracer(tracer trace.Tracer) *WatermillBridge {
	logger := watermill.NewStdLogger(false, false)
	goChannel := gochannel.NewGoChannel(gochannel.Config{}, logger)

	return &WatermillBridge{
		pub:     NewPublisherTracingMiddleware(goChannel, tracer),
		sub:     goChannel,
		tracing: TracingMiddleware(tracer),
	}
}

func mapToWatermillMessage(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)

	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyUserID, msg.UserID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)

	return wmMsg
}

func mapToPubSubMessage(wmMsg *message.Message) Message {
	userID := wmMsg.Metadata.Get(metaKeyUserID)
	topic := wmMsg.Metadata.Get(metaKeyTopic)

	metadata := make(map[string]string)
	for k, v := range wmMsg.Metadata {
		if k != metaKeyUserID && k != metaKeyTopic {
			metadata[k] = v
		}
	}
	if userID != "" {
		metadata[metaKeyUserID] = userID
	}

	return Message{
		Topic:    topic,
		UserID:   userID,
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements Publisher. The message topic is the watermill topic.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	return wb.pub.Publish(msg.Topic, mapToWatermillMessage(ctx, msg))
}

// Subscribe implements Subscriber. Messages are handled on a goroutine of
// their own, one at a time per subscription.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	process := wb.tracing(func(wmMsg *message.Message) ([]*message.Message, error) {
		return nil, handler(wmMsg.Context(), mapToPubSubMessage(wmMsg))
	})

	go func() {
		for wmMsg := range messages {
			if _, err := process(wmMsg); err != nil {
				slog.Error("Failed to handle message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
			}
			// GoChannel redelivers nacked messages forever; failures are logged and dropped.
			wmMsg.Ack()
		}
		slog.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close shuts down the bus and ends every subscription loop.
func (wb *WatermillBridge) Close() error {
	return wb.sub.Close()
}
