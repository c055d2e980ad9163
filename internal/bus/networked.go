package bus

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// resetThreshold is how long a connection must survive before the next
// disconnect restarts the backoff schedule from its initial interval.
const resetThreshold = 30 * time.Second

// newDefaultBackoff creates an exponential backoff: 1s -> 60s, multiplier
// 2x, +/-20% jitter.
func newDefaultBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 60 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}

// wireFrame is the length-prefixed envelope carried over the networked
// bus's net.Conn transport: a channel name plus a (possibly compressed)
// JSON-encoded Message.
type wireFrame struct {
	Channel     string      `json:"channel"`
	Compression Compression `json:"compression"`
	Body        []byte      `json:"body"`
}

// NetworkedBus is a channel-based implementation of Bus over a plain
// net.Conn transport, speaking a small length-prefixed frame so a handful
// of nodes can share one logical channel without a full broker deployment.
type NetworkedBus struct {
	addr     string
	log      *slog.Logger
	mu       sync.Mutex
	conn     net.Conn
	handlers map[string]map[int]Handler
	nextID   int
	closed   bool
	writeMu  sync.Mutex
}

// NewNetworkedBus returns a NetworkedBus that will dial addr on Connect.
func NewNetworkedBus(addr string, log *slog.Logger) *NetworkedBus {
	if log == nil {
		log = slog.Default()
	}
	return &NetworkedBus{
		addr:     addr,
		log:      log,
		handlers: make(map[string]map[int]Handler),
	}
}

// Connect dials addr with exponential-backoff retry and starts a
// maintenance goroutine that re-dials whenever the connection drops. It
// blocks until the first successful connection or ctx is done.
func (b *NetworkedBus) Connect(ctx context.Context) error {
	if err := b.dial(ctx, newDefaultBackoff()); err != nil {
		return err
	}
	go b.maintain(ctx)
	return nil
}

func (b *NetworkedBus) dial(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	for {
		conn, err := net.Dial("tcp", b.addr)
		if err == nil {
			b.mu.Lock()
			if b.closed {
				b.mu.Unlock()
				_ = conn.Close()
				return fmt.Errorf("bus: closed")
			}
			b.conn = conn
			b.mu.Unlock()
			return nil
		}

		next := bo.NextBackOff()
		b.log.Warn("bus dial failed, retrying", "addr", b.addr, "backoff", next, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}
	}
}

// maintain runs the read loop and re-dials on disconnect. If a connection
// lasted at least resetThreshold, the backoff interval is reset.
func (b *NetworkedBus) maintain(ctx context.Context) {
	bo := newDefaultBackoff()
	for {
		b.mu.Lock()
		conn, closed := b.conn, b.closed
		b.mu.Unlock()
		if closed || conn == nil {
			return
		}

		start := time.Now()
		b.readLoop(conn)

		b.mu.Lock()
		closed = b.closed
		b.conn = nil
		b.mu.Unlock()
		if closed {
			return
		}

		if time.Since(start) >= resetThreshold {
			bo.Reset()
		}
		b.log.Warn("bus disconnected, reconnecting", "addr", b.addr)
		if err := b.dial(ctx, bo); err != nil {
			return
		}
	}
}

func (b *NetworkedBus) readLoop(conn net.Conn) {
	for {
		frame, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				b.log.Warn("bus read failed", "error", err)
			}
			return
		}

		body, err := Decompress(frame.Body, frame.Compression)
		if err != nil {
			b.log.Warn("bus decompress failed", "error", err)
			continue
		}
		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			b.log.Warn("bus decode failed", "error", err)
			continue
		}

		b.mu.Lock()
		handlers := make([]Handler, 0, len(b.handlers[frame.Channel]))
		for _, h := range b.handlers[frame.Channel] {
			handlers = append(handlers, h)
		}
		b.mu.Unlock()

		for _, h := range handlers {
			h(msg)
		}
	}
}

// Publish sends msg on channel. It blocks the caller for as long as it takes
// to acquire the write lock and write one length-prefixed frame; transport
// errors are returned for the caller to log rather than retried inline.
func (b *NetworkedBus) Publish(ctx context.Context, channel string, msg Message) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bus: not connected")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bus: encode message: %w", err)
	}
	compressed, alg := Compress(body)
	frame := wireFrame{Channel: channel, Compression: alg, Body: compressed}
	encoded, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("bus: encode frame: %w", err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return writeFrameBytes(conn, encoded)
}

func (b *NetworkedBus) Subscribe(channel string, h Handler) Unsubscribe {
	b.mu.Lock()
	if b.handlers[channel] == nil {
		b.handlers[channel] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[channel][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers[channel], id)
		b.mu.Unlock()
	}
}

func (b *NetworkedBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func writeFrameBytes(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readFrame(r io.Reader) (wireFrame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return wireFrame{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return wireFrame{}, err
	}
	var frame wireFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		return wireFrame{}, err
	}
	return frame, nil
}
