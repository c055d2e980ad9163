// Package session implements the conference server's connection layer: it
// accepts agent duplex connections, parses frames through the codec, and
// dispatches commands to the room a connection is resident in.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/convene/convene/internal/logging"
	"github.com/convene/convene/internal/metrics"
	"github.com/convene/convene/internal/protocol"
	"github.com/convene/convene/internal/room"
)

// Subprotocol is the WebSocket subprotocol agents negotiate.
const Subprotocol = "convene.agent.v1"

var errUnsupportedFrameType = errors.New("session: expected a text frame")

// Config carries the session server's dependencies and the default-room
// policy.
type Config struct {
	Rooms *room.Manager

	// DefaultTopic, when non-empty, lets a JOIN without roomId lazily
	// create (or reuse) a room named "default" in DefaultMode. When empty,
	// a JOIN without roomId joins an existing room named "default" if there
	// is one and is an ERROR otherwise.
	DefaultTopic string
	DefaultMode  room.Mode

	SendBufferLimit int

	Logger *slog.Logger
}

// Server accepts duplex agent connections and dispatches their commands.
type Server struct {
	rooms           *room.Manager
	defaultTopic    string
	defaultMode     room.Mode
	sendBufferLimit int
	log             *slog.Logger

	defaultRoomMu sync.Mutex
}

// New constructs a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.ComponentLogger("session")
	}
	if cfg.SendBufferLimit <= 0 {
		cfg.SendBufferLimit = 256
	}
	return &Server{
		rooms:           cfg.Rooms,
		defaultTopic:    cfg.DefaultTopic,
		defaultMode:     cfg.DefaultMode,
		sendBufferLimit: cfg.SendBufferLimit,
		log:             cfg.Logger,
	}
}

// Handler returns the http.Handler that upgrades to the agent WebSocket
// protocol, served at /ws.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveWS)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		s.log.Debug("session: accept failed", "error", err)
		return
	}
	defer func() { _ = ws.CloseNow() }()

	metrics.WSConnectionsActive.Inc()
	defer metrics.WSConnectionsActive.Dec()

	ctx := r.Context()
	c := newConn(ws, s.sendBufferLimit, s.log)
	c.onOverflow = func() { _ = ws.Close(websocket.StatusPolicyViolation, "send buffer overflow") }

	writeCtx, cancelWrite := context.WithCancel(ctx)
	defer cancelWrite()
	go c.writeLoop(writeCtx)

	s.readLoop(ctx, ws, c)
}

// readLoop owns the single per-connection resident room pointer and runs
// until the socket closes, at which point the resident room (if any) is
// disconnected.
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, c *conn) {
	var resident *room.Room

	defer func() {
		if resident != nil {
			resident.HandleDisconnect(c)
		}
		c.close()
	}()

	for {
		data, err := readFrame(ctx, ws)
		if err != nil {
			if !isNormalClose(err) {
				s.log.Debug("session: read failed", "error", err)
			}
			return
		}

		metrics.WSMessagesTotal.WithLabelValues("in", "frame").Inc()

		cmd, decodeErr := protocol.Decode(data)
		if decodeErr != nil {
			c.Send(protocol.Event{
				Type:      protocol.EvtError,
				Timestamp: nowMillis(),
				Payload:   protocol.ErrorPayload{Message: decodeErr.Error()},
			})
			continue
		}

		resident = s.dispatch(c, resident, cmd)
	}
}

// dispatch routes a decoded command — room management directly against the
// RoomManager, everything else to the resident room — and returns the
// connection's (possibly updated) resident room.
func (s *Server) dispatch(c *conn, resident *room.Room, cmd protocol.Command) *room.Room {
	switch cmd.Type {
	case protocol.CmdCreateRoom:
		s.handleCreateRoom(c, cmd.CreateRoom)
		return resident

	case protocol.CmdListRooms:
		s.handleListRooms(c, cmd.ListRooms)
		return resident

	case protocol.CmdJoin:
		return s.handleJoin(c, resident, cmd)

	case protocol.CmdLeaveRoom, protocol.CmdLeave:
		if resident == nil {
			c.Send(errEvent("not a member of any room"))
			return resident
		}
		resident.HandleCommand(c, cmd)
		return nil // this connection no longer belongs to any room.

	default:
		if resident == nil {
			c.Send(errEvent("not a member of any room"))
			return resident
		}
		resident.HandleCommand(c, cmd)
		return resident
	}
}

func (s *Server) handleCreateRoom(c *conn, cr *protocol.CreateRoomCommand) {
	if cr == nil {
		c.Send(errEvent("malformed CREATE_ROOM"))
		return
	}
	mode := room.Mode(cr.Mode)
	if mode == "" {
		mode = s.defaultMode
	}
	r, err := s.rooms.Create(cr.RoomID, cr.Topic, mode)
	if err != nil {
		c.Send(errEvent(err.Error()))
		return
	}
	c.Send(protocol.Event{
		Type:      protocol.EvtRoomCreated,
		Timestamp: nowMillis(),
		Payload:   protocol.RoomCreatedPayload{RoomID: r.ID(), Topic: r.Topic(), Mode: string(r.Mode())},
	})
}

func (s *Server) handleListRooms(c *conn, lr *protocol.ListRoomsCommand) {
	var rooms []*room.Room
	if lr != nil && lr.TopicKeyword != "" {
		rooms = s.rooms.FindByTopic(lr.TopicKeyword)
	} else {
		rooms = s.rooms.List()
	}

	summaries := make([]protocol.RoomSummary, len(rooms))
	for i, r := range rooms {
		summaries[i] = protocol.RoomSummary{
			RoomID: r.ID(), Topic: r.Topic(), Mode: string(r.Mode()), AgentCount: r.AgentCount(),
		}
	}
	c.Send(protocol.Event{
		Type:      protocol.EvtRoomList,
		Timestamp: nowMillis(),
		Payload:   protocol.RoomListPayload{Rooms: summaries},
	})
}

// handleJoin forwards a JOIN to its target room, applying the default room
// policy when no roomId was supplied.
func (s *Server) handleJoin(c *conn, resident *room.Room, cmd protocol.Command) *room.Room {
	j := cmd.Join
	if j == nil {
		c.Send(errEvent("malformed JOIN"))
		return resident
	}

	// A connection belongs to at most one room; joining another implicitly
	// leaves the current one, so the old room doesn't keep a dead member.
	if resident != nil {
		resident.HandleDisconnect(c)
		resident = nil
	}

	roomID := j.RoomID
	if roomID == "" {
		r, err := s.defaultRoom()
		if err != nil {
			c.Send(errEvent(err.Error()))
			return resident
		}
		r.HandleCommand(c, cmd)
		return r
	}

	r, ok := s.rooms.Get(roomID)
	if !ok {
		c.Send(errEvent(fmt.Sprintf("unknown room: %s", roomID)))
		return resident
	}
	r.HandleCommand(c, cmd)
	return r
}

// defaultRoom returns the lazily-created "default" room, creating it under
// a mutex so concurrent JOINs without roomId don't race to create two. If
// DefaultTopic was never configured, an existing "default" room is still
// returned; without one, JOIN without roomId is an error.
func (s *Server) defaultRoom() (*room.Room, error) {
	if s.defaultTopic == "" {
		if r, ok := s.rooms.Get("default"); ok {
			return r, nil
		}
		return nil, fmt.Errorf("no default room configured")
	}

	s.defaultRoomMu.Lock()
	defer s.defaultRoomMu.Unlock()

	if r, ok := s.rooms.Get("default"); ok {
		return r, nil
	}
	return s.rooms.Create("default", s.defaultTopic, s.defaultMode)
}

func errEvent(message string) protocol.Event {
	return protocol.Event{
		Type:      protocol.EvtError,
		Timestamp: nowMillis(),
		Payload:   protocol.ErrorPayload{Message: message},
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func isNormalClose(err error) bool {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.StatusNormalClosure || ce.Code == websocket.StatusGoingAway
	}
	return false
}
