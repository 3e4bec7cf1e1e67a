package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event binds a topic name to its payload type T.
type Event[T any] struct {
	topicName   string
	description string
}

// NewEvent declares a typed event.
func NewEvent[T any](name, description string) Event[T] {
	return Event[T]{topicName: name, description: description}
}

// Name returns the topic name.
func (e Event[T]) Name() string { return e.topicName }

// Description returns the human readable purpose of the event.
func (e Event[T]) Description() string { return e.description }

// Publish sends a typed event. userID is recorded as the message's user.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], userID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Name(), err)
	}
	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		UserID:  userID,
		Payload: data,
	})
}

// Subscribe registers a handler that receives decoded payloads of event.
// Payloads that do not decode are reported as handler errors.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(ctx context.Context, payload T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Name(), err)
		}
		return handler(ctx, payload)
	})
}
