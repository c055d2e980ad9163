package room

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/convene/convene/internal/bus"
	"github.com/convene/convene/internal/id"
	"github.com/convene/convene/internal/metrics"
	"github.com/convene/convene/internal/repo"
	"github.com/convene/convene/internal/toolregistry"
)

// ManagerConfig carries the defaults and shared dependencies RoomManager
// stamps into every Room it creates.
type ManagerConfig struct {
	Repository repo.Repository
	Bus        bus.Bus // nil => no federation on any managed room.
	ServerID   string

	DefaultMode     Mode
	SeenIDLimit     int
	SendBufferLimit int

	// ReapEmptyRooms, when true, deletes a room automatically once its last
	// agent leaves. Opt-in, default off: a room with no agents may still be
	// mid-proposal or awaiting a reconnect.
	ReapEmptyRooms bool
}

// Manager is the multi-room registry: creates, looks up, lists, and tears
// down rooms. Safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	cfg   ManagerConfig
}

// NewManager constructs an empty Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.SeenIDLimit <= 0 {
		cfg.SeenIDLimit = 10_000
	}
	if cfg.SendBufferLimit <= 0 {
		cfg.SendBufferLimit = 256
	}
	return &Manager{rooms: make(map[string]*Room), cfg: cfg}
}

// Create makes a new room. If roomID is empty, one of the form
// "room-<rand8>" is generated. Returns an error if roomID is already
// taken.
func (m *Manager) Create(roomID, topic string, mode Mode) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if roomID == "" {
		roomID = id.Prefixed("room")
	}
	if _, exists := m.rooms[roomID]; exists {
		return nil, fmt.Errorf("room %q already exists", roomID)
	}
	if mode == "" {
		mode = m.cfg.DefaultMode
	}

	var attach *BusAttachment
	if m.cfg.Bus != nil {
		attach = &BusAttachment{Bus: m.cfg.Bus, Channel: "room." + roomID, ServerID: m.cfg.ServerID}
	}

	r := New(Config{
		ID:              roomID,
		Topic:           topic,
		Mode:            mode,
		Repository:      m.cfg.Repository,
		Tools:           toolregistry.New(),
		Bus:             attach,
		SeenIDLimit:     m.cfg.SeenIDLimit,
		SendBufferLimit: m.cfg.SendBufferLimit,
		ReapEmpty:       m.cfg.ReapEmptyRooms,
		ShutdownCallback: func(id string) {
			m.remove(id)
		},
	})
	m.rooms[roomID] = r
	metrics.ActiveRooms.Inc()
	return r, nil
}

func (m *Manager) remove(roomID string) {
	m.mu.Lock()
	_, existed := m.rooms[roomID]
	delete(m.rooms, roomID)
	m.mu.Unlock()
	if existed {
		metrics.ActiveRooms.Dec()
	}
}

// Get returns the room with the given id, if it exists.
func (m *Manager) Get(roomID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// Has reports whether roomID names a currently managed room.
func (m *Manager) Has(roomID string) bool {
	_, ok := m.Get(roomID)
	return ok
}

// Count returns the number of currently managed rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// List returns every managed room, ordered by id for deterministic
// LIST_ROOMS output.
func (m *Manager) List() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// FindByTopic returns every managed room whose founding topic contains
// keyword, case-insensitively.
func (m *Manager) FindByTopic(keyword string) []*Room {
	keyword = strings.ToLower(keyword)
	var out []*Room
	for _, r := range m.List() {
		if strings.Contains(strings.ToLower(r.Topic()), keyword) {
			out = append(out, r)
		}
	}
	return out
}

// Delete shuts down and removes the named room. Reports false if no such
// room exists.
func (m *Manager) Delete(roomID string) bool {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if ok {
		delete(m.rooms, roomID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	metrics.ActiveRooms.Dec()
	r.Shutdown()
	return true
}

// ShutdownAll shuts down every managed room.
func (m *Manager) ShutdownAll() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	metrics.ActiveRooms.Sub(float64(len(rooms)))
	for _, r := range rooms {
		r.Shutdown()
	}
}
