package pubsub

import (
	"context"
)

// Message is the envelope passed between components on the bus.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g. "userdata.changed").
	Topic string
	// UserID identifies the user who caused the message, if any.
	UserID string
	// Payload contains the encoded event body.
	Payload []byte
	// Metadata carries arbitrary key-value context such as request ids.
	Metadata map[string]string
}

// Handler processes one received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber receives messages from the bus.
type Subscriber interface {
	// Subscribe registers handler for topic and returns once the subscription
	// is active. Delivery stops when ctx is cancelled or the subscriber closes.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
