package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/coder/websocket"

	"github.com/convene/convene/internal/metrics"
	"github.com/convene/convene/internal/protocol"
)

// conn adapts one coder/websocket connection to room.Conn. It owns a
// bounded outbound buffer drained by a dedicated writer goroutine; on
// overflow the server closes the connection rather than let one slow
// socket stall the room.
type conn struct {
	ws  *websocket.Conn
	log *slog.Logger

	outbox chan protocol.Event
	closed chan struct{}

	onOverflow func() // invoked on every Send that finds the outbox full.
}

func newConn(ws *websocket.Conn, bufferLimit int, log *slog.Logger) *conn {
	c := &conn{
		ws:     ws,
		log:    log,
		outbox: make(chan protocol.Event, bufferLimit),
		closed: make(chan struct{}),
	}
	return c
}

// Send implements room.Conn. It never blocks: a full outbox marks the
// connection for close (the session layer's job, not Room's) and reports
// ok=false to the caller.
func (c *conn) Send(evt protocol.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.outbox <- evt:
		return true
	default:
		c.log.Warn("send buffer overflow, closing connection")
		if c.onOverflow != nil {
			c.onOverflow()
		}
		return false
	}
}

// writeLoop drains the outbox onto the socket until the connection closes.
// One goroutine per connection.
func (c *conn) writeLoop(ctx context.Context) {
	for {
		select {
		case evt, ok := <-c.outbox:
			if !ok {
				return
			}
			data, err := protocol.EncodeEvent(evt)
			if err != nil {
				c.log.Error("encode event failed", "error", err)
				continue
			}
			if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
			metrics.WSMessagesTotal.WithLabelValues("out", string(evt.Type)).Inc()
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

// close stops the write loop. Idempotent.
func (c *conn) close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

// readFrame reads one text frame and returns its raw bytes; the caller
// decodes them.
func readFrame(ctx context.Context, ws *websocket.Conn) (json.RawMessage, error) {
	typ, data, err := ws.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageText {
		return nil, errUnsupportedFrameType
	}
	return data, nil
}
