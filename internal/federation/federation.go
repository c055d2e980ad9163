// Package federation implements the adapter between a Room and the
// external MessageBus. It owns the echo-suppression and deduplication
// rules for bus ingress so Room itself only has to decide what to do with
// an already-filtered inbound message.
package federation

import (
	"context"
	"fmt"

	"github.com/convene/convene/internal/bus"
	"github.com/convene/convene/internal/id"
	"github.com/convene/convene/internal/metrics"
)

// Bridge is one room's federation handle: a bus, a channel selector, this
// node's serverId, and two bounded LRU seen-id sets. Not safe for
// concurrent use on its own; ingress callbacks are expected to hand off
// into the owning Room's serialized critical section before touching Room
// state.
type Bridge struct {
	bus      bus.Bus
	channel  string
	serverID string

	seen *bus.SeenSet // messageIds observed from other nodes.
	own  *bus.SeenSet // messageIds minted locally, for a defensive echo check.

	unsubscribe bus.Unsubscribe
}

// New constructs a Bridge. seenLimit is the LRU capacity for both seen-id
// sets (default 10,000).
func New(b bus.Bus, channel, serverID string, seenLimit int) *Bridge {
	return &Bridge{
		bus:      b,
		channel:  channel,
		serverID: serverID,
		seen:     bus.NewSeenSet(seenLimit),
		own:      bus.NewSeenSet(seenLimit),
	}
}

// Attach subscribes onAccepted to receive every inbound bus.Message that
// survives echo suppression and deduplication; Room supplies the
// ingestion/broadcast logic and decides how to enqueue it into its own
// critical section.
func (br *Bridge) Attach(onAccepted func(bus.Message)) {
	br.unsubscribe = br.bus.Subscribe(br.channel, func(msg bus.Message) {
		if br.shouldDrop(msg) {
			return
		}
		onAccepted(msg)
	})
}

// shouldDrop decides whether an inbound bus message is an echo or a
// duplicate:
//
//  1. serverId == self.serverId => echo, drop.
//  2. messageId already minted by this node under a (re-)published echo
//     that carries a different serverId than expected => drop defensively.
//  3. messageId already in seenMessageIds => drop; otherwise record it.
func (br *Bridge) shouldDrop(msg bus.Message) bool {
	metrics.BusMessagesReceived.Inc()
	if msg.ServerID == br.serverID {
		metrics.BusMessagesDeduped.Inc()
		return true
	}
	if br.own.Contains(msg.MessageID) {
		metrics.BusMessagesDeduped.Inc()
		return true
	}
	if br.seen.SeenOrAdd(msg.MessageID) {
		metrics.BusMessagesDeduped.Inc()
		return true
	}
	return false
}

// Publish mints a messageId, records it as own (so a defensively-echoed
// copy of this exact message is still recognized and dropped), and
// publishes payload on the bridge's channel. Errors are returned for the
// caller to log and continue; local broadcast never depends on a bus
// publish succeeding.
func (br *Bridge) Publish(ctx context.Context, timestamp int64, payload []byte) error {
	msgID := id.BusMessageID()
	br.own.SeenOrAdd(msgID)

	msg := bus.Message{ServerID: br.serverID, MessageID: msgID, Timestamp: timestamp, Payload: payload}
	if err := br.bus.Publish(ctx, br.channel, msg); err != nil {
		metrics.BusPublishErrors.Inc()
		return fmt.Errorf("federation: publish on %q: %w", br.channel, err)
	}
	metrics.BusMessagesPublished.Inc()
	return nil
}

// Close unsubscribes the bridge from the bus. Idempotent-safe to call even
// if Attach was never called.
func (br *Bridge) Close() {
	if br.unsubscribe != nil {
		br.unsubscribe()
	}
}
