// Package bus implements the federation MessageBus abstraction: connect,
// publish, subscribe -> unsubscribe. Two implementations are provided: a
// direct in-process bus for single-node operation, and a networked bus
// with exponential-backoff reconnect.
package bus

import (
	"context"
	"encoding/json"
)

// Message is the wire shape carried over the federation bus: serverId
// identifies the publishing node, messageId is a globally unique id used
// for dedup, timestamp is milliseconds, and payload is an encoded server
// event (only MESSAGE payloads are expected to cross).
type Message struct {
	ServerID  string          `json:"serverId"`
	MessageID string          `json:"messageId"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Handler receives messages delivered by a Bus subscription.
type Handler func(Message)

// Unsubscribe removes a previously registered Handler.
type Unsubscribe func()

// Bus is the abstract pub/sub transport Room/Federation code depends on.
// Implementations must be safe for concurrent use.
type Bus interface {
	// Connect establishes (or re-establishes) the underlying transport.
	Connect(ctx context.Context) error

	// Publish sends msg on channel. Neither implementation queues: LocalBus
	// runs every subscribed Handler synchronously before returning, and
	// NetworkedBus writes the frame to its connection before returning, so
	// the caller waits for that work to finish.
	Publish(ctx context.Context, channel string, msg Message) error

	// Subscribe registers h to receive every Message published on channel
	// (including by this same process) and returns an Unsubscribe func.
	Subscribe(channel string, h Handler) Unsubscribe

	// Close releases the underlying transport.
	Close() error
}
