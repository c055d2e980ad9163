package room

import (
	"encoding/json"
	"time"

	"github.com/convene/convene/internal/protocol"
)

// Conn is the send-side of a connection resident in a room. Implementations
// (internal/session) own a bounded outbound buffer and must never block the
// room's critical section; a full buffer is the caller's (session layer's)
// signal to close the connection.
type Conn interface {
	// Send enqueues evt for delivery. It must return immediately.
	// ok is false if the send buffer is full (the caller should close the
	// connection, equivalent to an implicit LEAVE).
	Send(evt protocol.Event) (ok bool)
}

// Agent is one member of a Room, held in memory for the lifetime of its
// membership.
type Agent struct {
	ID          string
	Name        string
	Role        string
	Metadata    json.RawMessage
	Conn        Conn
	ConnectedAt time.Time // diagnostic only; never read by protocol logic.
}
