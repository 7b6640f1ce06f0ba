package mqtt

import (
	"context"
)

// Message is one application message together with the MQTT v5
// request/response metadata used by the fulfill protocol.
type Message struct {
	Topic   string
	Payload []byte

	// CorrelationData carries the per-call correlation token. It is attached
	// at publish time and echoed back by responders.
	CorrelationData []byte

	// ResponseTopic tells a responder which topic to publish its reply on.
	ResponseTopic string
}

// MessageHandler defines the callback function for processing received MQTT messages.
type MessageHandler func(ctx context.Context, msg *Message)

// Client defines the interface for a generic MQTT client.
// It abstracts the underlying paho implementation details.
type Client interface {
	// Start initiates the connection to the broker.
	// It is non-blocking and returns immediately. Use AwaitConnection to wait.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends a message, including its correlation metadata, to the
	// message's topic.
	Publish(ctx context.Context, qos int, retain bool, msg *Message) error

	// Subscribe registers a handler for a specific topic filter.
	// It handles the underlying MQTT subscription packet sending.
	// If the connection is lost and restored, this client will automatically re-subscribe.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	// Unsubscribe removes the handler and sends an UNSUBSCRIBE packet.
	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until the client is connected to the broker.
	AwaitConnection(ctx context.Context) error
}
