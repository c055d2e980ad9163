// Package room implements the conference server's core coordination engine:
// Room (membership, fan-out, proposal/vote state machine, topic lifecycle)
// and RoomManager (the multi-room registry).
package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/convene/convene/internal/bus"
	"github.com/convene/convene/internal/federation"
	"github.com/convene/convene/internal/id"
	"github.com/convene/convene/internal/logging"
	"github.com/convene/convene/internal/metrics"
	"github.com/convene/convene/internal/protocol"
	"github.com/convene/convene/internal/repo"
	"github.com/convene/convene/internal/sanitize"
	"github.com/convene/convene/internal/toolregistry"
)

// BusAttachment is the optional federation handle a Room publishes through.
// ServerID distinguishes this node on the bus; Channel is the bus channel
// selector, scoped to one channel per room so independently federated
// rooms don't cross-deliver.
type BusAttachment struct {
	Bus      bus.Bus
	Channel  string
	ServerID string
}

// Config constructs a Room.
type Config struct {
	ID    string
	Topic string
	Mode  Mode

	Repository repo.Repository
	Tools      *toolregistry.Registry
	Bus        *BusAttachment // nil => single-node, no federation.

	SeenIDLimit     int // LRU capacity for bus dedup; defaults to 10,000.
	SendBufferLimit int // surfaced to connections; not enforced here.

	Logger *slog.Logger

	// ShutdownCallback is invoked once, after shutdown completes, so a
	// RoomManager can remove the room from its registry.
	ShutdownCallback func(roomID string)

	// ReapEmpty, when true, triggers an async Shutdown once the last agent
	// leaves the room.
	ReapEmpty bool
}

// Room is one conversation: members, state machine, broadcast, bus bridge,
// proposal orchestration, topic list. All mutation decisions are
// serialized through a single mutex, fed via a per-room inbox so
// connection and bus-subscription goroutines never touch Room state
// directly.
type Room struct {
	id    string
	topic string
	mode  Mode

	mu        sync.Mutex
	agents    map[string]*Agent
	votes     *VoteManager
	tools     *toolregistry.Registry
	topics    *topicList
	createdAt time.Time
	closed    bool

	repository repo.Repository
	busAttach  *BusAttachment
	fed        *federation.Bridge // nil when busAttach is nil.

	sendBufferLimit int
	log             *slog.Logger

	ib               *inbox
	shutdownOnce     sync.Once
	shutdownCallback func(string)
	unsubscribeVotes func()

	// reapEmpty triggers an async Shutdown once the last agent leaves
	// (opt-in via ManagerConfig.ReapEmptyRooms).
	reapEmpty bool
}

// New constructs a Room and starts its inbox goroutine. Every room starts
// with one active discussion topic equal to its founding topic string.
func New(cfg Config) *Room {
	if cfg.SeenIDLimit <= 0 {
		cfg.SeenIDLimit = 10_000
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.ComponentLogger("room")
	}

	r := &Room{
		id:               cfg.ID,
		topic:            cfg.Topic,
		mode:             cfg.Mode,
		agents:           make(map[string]*Agent),
		votes:            NewVoteManager(),
		tools:            cfg.Tools,
		topics:           newTopicList(),
		createdAt:        timeNow(),
		repository:       cfg.Repository,
		busAttach:        cfg.Bus,
		sendBufferLimit:  cfg.SendBufferLimit,
		log:              cfg.Logger,
		ib:               newInbox(64),
		shutdownCallback: cfg.ShutdownCallback,
		reapEmpty:        cfg.ReapEmpty,
	}

	initial := &DiscussionTopic{ID: id.Generate(), Title: cfg.Topic, Status: TopicActive, IntroducedAt: r.createdAt}
	r.topics.add(initial)
	r.topics.activeID = initial.ID

	r.unsubscribeVotes = r.votes.Subscribe(r.onProposalResolved)

	if cfg.Bus != nil {
		r.fed = federation.New(cfg.Bus.Bus, cfg.Bus.Channel, cfg.Bus.ServerID, cfg.SeenIDLimit)
		r.fed.Attach(r.onBusMessage)
	}

	go r.ib.run(r.mu.Lock, r.mu.Unlock)
	return r
}

// ID returns the room's immutable id.
func (r *Room) ID() string { return r.id }

// Topic returns the room's immutable founding topic string.
func (r *Room) Topic() string { return r.topic }

// Mode returns the room's immutable mode.
func (r *Room) Mode() Mode { return r.mode }

// CreatedAt is a diagnostic accessor, never consulted by protocol logic.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// AgentCount returns the current member count. Safe for concurrent use;
// acquires the room lock directly since it is a query accessor, not part of
// the fan-out loop.
func (r *Room) AgentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}

// HasAgent reports whether agentID is currently a member.
func (r *Room) HasAgent(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.agents[agentID]
	return ok
}

// TopicSummary returns a snapshot of the room's topic list.
func (r *Room) TopicSummary() []DiscussionTopic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.topics.summary()
}

// HandleCommand routes cmd by its Type. It blocks until the command has
// been fully processed (including any direct replies to conn), by
// submitting through the room's serialized inbox.
func (r *Room) HandleCommand(conn Conn, cmd protocol.Command) {
	done := make(chan struct{})
	if !r.ib.submit(func() {
		defer close(done)
		r.dispatch(conn, cmd)
	}) {
		// The room has already shut down; there is no critical section left
		// to dispatch into, so fail fast rather than block on a done channel
		// nothing will ever close.
		r.sendError(conn, "room is shutting down")
		return
	}
	<-done
}

// HandleDisconnect is equivalent to an implicit LEAVE for the agent bound
// to conn.
func (r *Room) HandleDisconnect(conn Conn) {
	done := make(chan struct{})
	if !r.ib.submit(func() {
		defer close(done)
		for agentID, a := range r.agents {
			if a.Conn == conn {
				r.leave(agentID)
				return
			}
		}
	}) {
		return
	}
	<-done
}

// Shutdown marks the room closed and drops every member without sending
// them anything or closing their connections, unsubscribes from the bus
// and the VoteManager, stops the inbox, and calls the shutdown callback.
// The repository is not closed. Idempotent, even when invoked
// concurrently from multiple goroutines (e.g. the async reap triggered by
// leave() racing an ordinary server-wide shutdown): shutdownOnce guarantees
// the teardown sequence below, including the shutdown callback, runs
// exactly once.
func (r *Room) Shutdown() {
	r.shutdownOnce.Do(func() {
		done := make(chan struct{})
		if r.ib.submit(func() {
			defer close(done)
			r.closed = true
			r.agents = make(map[string]*Agent)
		}) {
			<-done
		}

		if r.fed != nil {
			r.fed.Close()
		}
		if r.unsubscribeVotes != nil {
			r.unsubscribeVotes()
		}
		r.ib.close()

		if r.shutdownCallback != nil {
			r.shutdownCallback(r.id)
		}
	})
}

func (r *Room) dispatch(conn Conn, cmd protocol.Command) {
	switch cmd.Type {
	case protocol.CmdJoin:
		r.handleJoin(conn, cmd.Join)
	case protocol.CmdLeave:
		r.handleLeave(conn, cmd.Leave)
	case protocol.CmdLeaveRoom:
		r.handleLeaveRoom(conn, cmd.LeaveRoom)
	case protocol.CmdMessage:
		r.handleMessage(cmd.Message, cmd.Timestamp)
	case protocol.CmdCreateProposal:
		r.handleCreateProposal(conn, cmd.CreateProposal, cmd.Timestamp)
	case protocol.CmdVote:
		r.handleVote(conn, cmd.Vote)
	case protocol.CmdUpdateMetadata:
		r.handleUpdateMetadata(conn, cmd.UpdateMetadata)
	case protocol.CmdOpaque:
		r.handleOpaque(conn, cmd.Opaque)
	default:
		r.sendError(conn, "unsupported command in this room")
	}
}

// handleOpaque routes the extended command surface (DNA, tool invocation,
// memory). Only INVOKE_TOOL is interpreted by the core engine; the rest is
// accepted but left uninterpreted.
func (r *Room) handleOpaque(conn Conn, c *protocol.OpaqueCommand) {
	if c == nil {
		r.sendError(conn, "malformed command")
		return
	}
	if c.OriginalType == "INVOKE_TOOL" {
		r.handleInvokeTool(conn, c.Raw)
	}
}

// invokeToolRequest is INVOKE_TOOL's shape-validated-only payload: just
// enough to run it through the room's ToolRegistry.
type invokeToolRequest struct {
	AgentID  string `json:"agentId"`
	ToolName string `json:"toolName"`
}

// handleInvokeTool runs an INVOKE_TOOL request through the room's
// ToolRegistry pipeline: permission, then rate limit, then usage
// accounting. A denied agent can never be recorded as a successful
// invocation because RecordUsage(success=true) is only reached after both
// checks pass.
func (r *Room) handleInvokeTool(conn Conn, raw json.RawMessage) {
	var req invokeToolRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.AgentID == "" || req.ToolName == "" {
		r.sendError(conn, "malformed INVOKE_TOOL")
		return
	}

	a, ok := r.agents[req.AgentID]
	if !ok {
		r.sendError(conn, "unknown agent")
		return
	}
	if r.tools == nil {
		r.sendError(conn, "no tools registered in this room")
		return
	}

	if !r.tools.HasPermission(req.ToolName, req.AgentID, a.Role) {
		r.sendError(conn, "tool permission denied")
		return
	}
	if !r.tools.CheckRateLimit(req.ToolName, req.AgentID) {
		metrics.ToolRateLimited.WithLabelValues(req.ToolName).Inc()
		r.tools.RecordUsage(req.ToolName, req.AgentID, false, 0)
		r.sendError(conn, "tool rate limited")
		return
	}

	r.tools.RecordUsage(req.ToolName, req.AgentID, true, 0)
	r.tools.ReleaseConcurrentSlot(req.ToolName, req.AgentID)

	if conn != nil {
		conn.Send(protocol.Event{
			Type:      protocol.EvtToolInvoked,
			Timestamp: nowMillis(),
			Payload:   protocol.ToolInvokedPayload{ToolName: req.ToolName, AgentID: req.AgentID},
		})
	}
}

func (r *Room) sendError(conn Conn, message string) {
	if conn == nil {
		return
	}
	conn.Send(protocol.Event{
		Type:      protocol.EvtError,
		Timestamp: nowMillis(),
		Payload:   protocol.ErrorPayload{Message: message},
	})
}

func nowMillis() int64 { return timeNow().UnixMilli() }

// --- JOIN -------------------------------------------------------------

func (r *Room) handleJoin(conn Conn, c *protocol.JoinCommand) {
	if c == nil {
		r.sendError(conn, "malformed JOIN")
		return
	}
	if _, exists := r.agents[c.AgentID]; exists {
		// A JOIN collision is the newcomer's mistake; reply ERROR and keep
		// the incumbent's connection.
		r.sendError(conn, "agent already exists")
		return
	}

	name := sanitize.Title(c.Name, 64)
	a := &Agent{
		ID:          c.AgentID,
		Name:        name,
		Role:        c.Role,
		Metadata:    c.Metadata,
		Conn:        conn,
		ConnectedAt: timeNow(),
	}
	r.agents[c.AgentID] = a
	metrics.ActiveAgents.Inc()

	if len(c.Metadata) > 0 {
		r.persistMetadata(a)
	}

	if conn != nil {
		conn.Send(protocol.Event{
			Type:      protocol.EvtWelcome,
			Timestamp: nowMillis(),
			Payload: protocol.WelcomePayload{
				RoomID:     r.id,
				Topic:      r.topic,
				Mode:       string(r.mode),
				AgentCount: len(r.agents),
			},
		})
	}

	r.broadcastExcept(c.AgentID, protocol.Event{
		Type:      protocol.EvtAgentJoined,
		Timestamp: nowMillis(),
		Payload: protocol.AgentJoinedPayload{
			ID: a.ID, Name: a.Name, Role: a.Role, Metadata: a.Metadata,
		},
	})
}

// --- LEAVE --------------------------------------------------------------

func (r *Room) handleLeave(conn Conn, c *protocol.LeaveCommand) {
	if c == nil || c.AgentID == "" {
		r.sendError(conn, "malformed LEAVE")
		return
	}
	r.leave(c.AgentID)
}

// handleLeaveRoom is the explicit LEAVE_ROOM command: equivalent in effect
// to LEAVE, addressed at the room level rather than the agent.
func (r *Room) handleLeaveRoom(conn Conn, c *protocol.LeaveRoomCommand) {
	if c == nil || c.AgentID == "" {
		r.sendError(conn, "malformed LEAVE_ROOM")
		return
	}
	r.leave(c.AgentID)
}

func (r *Room) leave(agentID string) {
	if _, ok := r.agents[agentID]; !ok {
		return
	}
	delete(r.agents, agentID)
	metrics.ActiveAgents.Dec()

	if err := r.repository.DeleteAgentMetadata(context.Background(), r.id, agentID); err != nil {
		r.log.Warn("delete agent metadata failed", "room", r.id, "agent", agentID, "error", err)
	}

	r.broadcastExcept("", protocol.Event{
		Type:      protocol.EvtAgentLeft,
		Timestamp: nowMillis(),
		Payload:   protocol.AgentLeftPayload{ID: agentID},
	})

	if r.reapEmpty && len(r.agents) == 0 && !r.closed {
		// Shutdown submits into this room's inbox and waits for it to drain;
		// calling it from inside the inbox's own goroutine would deadlock, so
		// it runs on a detached goroutine instead.
		go r.Shutdown()
	}
}

// --- MESSAGE --------------------------------------------------------------

func (r *Room) handleMessage(c *protocol.MessageCommand, ts int64) {
	if c == nil {
		return
	}
	a, ok := r.agents[c.AgentID]
	if !ok {
		// Unknown agent: the sender most likely already left. Drop silently.
		return
	}

	content := sanitize.Content(c.Content, 8192)
	if ts == 0 {
		ts = nowMillis()
	}

	if err := r.repository.SaveMessage(context.Background(), r.id, a.ID, a.Name, a.Role, content, ts); err != nil {
		r.log.Warn("save message failed", "room", r.id, "agent", a.ID, "error", err)
	}

	evt := protocol.Event{
		Type:      protocol.EvtMessage,
		Timestamp: ts,
		Payload:   protocol.MessagePayload{AgentID: a.ID, Content: content},
	}
	r.broadcastExcept(a.ID, evt)

	if r.busAttach != nil {
		r.publishToBus(evt)
	}
}

func (r *Room) publishToBus(evt protocol.Event) {
	payload, err := json.Marshal(struct {
		Type      protocol.EventType `json:"type"`
		Timestamp int64              `json:"timestamp"`
		protocol.MessagePayload
	}{Type: evt.Type, Timestamp: evt.Timestamp, MessagePayload: evt.Payload.(protocol.MessagePayload)})
	if err != nil {
		r.log.Warn("encode bus payload failed", "room", r.id, "error", err)
		return
	}

	if err := r.fed.Publish(context.Background(), evt.Timestamp, payload); err != nil {
		// Local broadcast has already happened; federation is best-effort.
		r.log.Warn("bus publish failed", "room", r.id, "error", err)
	}
}

// --- Bus ingress ------------------------------------------------------

// onBusMessage is the federation bridge's subscription callback. It
// enqueues the ingress work into the room's inbox rather than touching
// state directly; bus callbacks may arrive on arbitrary goroutines.
func (r *Room) onBusMessage(msg bus.Message) {
	r.ib.submit(func() { r.handleBus(msg) })
}

// handleBus ingests one federation message already past echo suppression
// and dedup (internal/federation.Bridge owns every accept/reject
// decision); Room only filters to MESSAGE payloads and persists/broadcasts
// locally.
func (r *Room) handleBus(msg bus.Message) {
	var env struct {
		Type protocol.EventType `json:"type"`
	}
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		r.log.Warn("decode bus payload failed", "room", r.id, "error", err)
		return
	}
	if env.Type != protocol.EvtMessage {
		return // only MESSAGE payloads cross the federation boundary.
	}

	var mp protocol.MessagePayload
	if err := json.Unmarshal(msg.Payload, &mp); err != nil {
		r.log.Warn("decode bus message payload failed", "room", r.id, "error", err)
		return
	}

	if err := r.repository.SaveMessage(context.Background(), r.id, mp.AgentID, "", "", mp.Content, msg.Timestamp); err != nil {
		r.log.Warn("save federated message failed", "room", r.id, "error", err)
	}

	r.broadcastExcept("", protocol.Event{
		Type:      protocol.EvtMessage,
		Timestamp: msg.Timestamp,
		Payload:   mp,
	})
}

// --- Proposals / voting -------------------------------------------------

func (r *Room) handleCreateProposal(conn Conn, c *protocol.CreateProposalCommand, ts int64) {
	if c == nil {
		r.sendError(conn, "malformed CREATE_PROPOSAL")
		return
	}
	proposalID := c.ProposalID
	if proposalID == "" {
		proposalID = id.Generate()
	}
	threshold := DefaultThreshold(r.mode)
	if c.Threshold != nil {
		threshold = *c.Threshold
	}

	proposerName := ""
	if a, ok := r.agents[c.ProposerID]; ok {
		proposerName = a.Name
	}

	p := NewProposal(proposalID, c.Title, c.Description, c.ProposerID, proposerName, threshold)
	if err := r.votes.CreateProposal(p); err != nil {
		r.sendError(conn, err.Error())
		return
	}
	metrics.ActiveProposals.Inc()

	if err := r.repository.SaveProposal(context.Background(), r.id, repo.Proposal{
		ID: p.ID, Title: p.Title, Description: p.Description, ProposerID: p.ProposerID,
		ProposerName: p.ProposerName, Threshold: p.Threshold, Status: string(p.Status),
		CreatedAt: p.CreatedAt.UnixMilli(),
	}); err != nil {
		r.log.Warn("save proposal failed", "room", r.id, "proposal", p.ID, "error", err)
	}

	r.broadcastExcept("", protocol.Event{
		Type:      protocol.EvtProposalCreated,
		Timestamp: nowMillis(),
		Payload: protocol.ProposalCreatedPayload{
			ProposalID: p.ID, Title: p.Title, Description: p.Description,
			ProposerID: p.ProposerID, Threshold: p.Threshold,
		},
	})
}

func (r *Room) handleVote(conn Conn, c *protocol.VoteCommand) {
	if c == nil {
		r.sendError(conn, "malformed VOTE")
		return
	}
	if _, ok := r.agents[c.AgentID]; !ok {
		r.sendError(conn, "unknown agent")
		return
	}

	agentName := r.agents[c.AgentID].Name
	p, err := r.votes.Vote(c.ProposalID, c.AgentID, c.Vote)
	if err != nil {
		r.sendError(conn, err.Error())
		return
	}

	if err := r.repository.SaveVote(context.Background(), c.ProposalID, c.AgentID, agentName, string(c.Vote), c.Rationale, nowMillis()); err != nil {
		// The vote itself succeeded in memory; only persistence failed. Log
		// and continue rather than telling the voter their vote didn't count.
		r.log.Warn("save vote failed", "room", r.id, "proposal", c.ProposalID, "error", err)
	}

	r.broadcastExcept("", protocol.Event{
		Type:      protocol.EvtVoteCast,
		Timestamp: nowMillis(),
		Payload:   protocol.VoteCastPayload{ProposalID: p.ID, AgentID: c.AgentID, Vote: c.Vote},
	})

	// The observer call after each vote: resolution, if it happens, reaches
	// the members through onProposalResolved.
	if _, _, err := r.votes.UpdateProposalStatus(p.ID, r.requiredVoters(p.ProposerID)); err != nil {
		r.sendError(conn, err.Error())
	}
}

// requiredVoters returns the ids of every current member except the
// proposer. A proposal only resolves once all of them have voted; the
// proposer may vote too, and their vote counts in the tally, but their
// silence does not hold the proposal open.
func (r *Room) requiredVoters(proposerID string) []string {
	out := make([]string, 0, len(r.agents))
	for agentID := range r.agents {
		if agentID == proposerID {
			continue
		}
		out = append(out, agentID)
	}
	return out
}

// onProposalResolved is VoteManager's resolution callback; it persists and
// broadcasts PROPOSAL_RESOLVED exactly once per resolution.
func (r *Room) onProposalResolved(evt ResolvedEvent) {
	status := string(evt.Proposal.Status)
	metrics.ActiveProposals.Dec()
	metrics.ProposalsResolvedTotal.WithLabelValues(status).Inc()
	var resolvedAt int64
	if evt.Proposal.hasResolvedAt {
		resolvedAt = evt.Proposal.ResolvedAt.UnixMilli()
	}
	if err := r.repository.UpdateProposalStatus(context.Background(), evt.Proposal.ID, status, resolvedAt); err != nil {
		r.log.Warn("persist proposal resolution failed", "room", r.id, "proposal", evt.Proposal.ID, "error", err)
	}

	r.broadcastExcept("", protocol.Event{
		Type:      protocol.EvtProposalResolved,
		Timestamp: nowMillis(),
		Payload: protocol.ProposalResolvedPayload{
			ProposalID: evt.Proposal.ID, Status: status,
			Yes: evt.Tally.Yes, No: evt.Tally.No, Abstain: evt.Tally.Abstain, Total: evt.Tally.Total,
		},
	})
}

// --- Metadata -----------------------------------------------------------

func (r *Room) handleUpdateMetadata(conn Conn, c *protocol.UpdateMetadataCommand) {
	if c == nil {
		r.sendError(conn, "malformed UPDATE_METADATA")
		return
	}
	a, ok := r.agents[c.AgentID]
	if !ok {
		r.sendError(conn, "unknown agent")
		return
	}
	a.Metadata = c.Metadata
	r.persistMetadata(a)

	// Broadcast to all members including the sender, so distributed views
	// stay consistent.
	r.broadcastAll(protocol.Event{
		Type:      protocol.EvtAgentMetadataUpdated,
		Timestamp: nowMillis(),
		Payload:   protocol.AgentMetadataUpdatedPayload{AgentID: a.ID, Metadata: a.Metadata},
	})
}

func (r *Room) persistMetadata(a *Agent) {
	if err := r.repository.SaveAgentMetadata(context.Background(), r.id, repo.AgentMetadata{
		AgentID: a.ID, RoomID: r.id, Blob: a.Metadata, UpdatedAt: nowMillis(),
	}); err != nil {
		r.log.Warn("save agent metadata failed", "room", r.id, "agent", a.ID, "error", err)
	}
}

// --- Broadcast ------------------------------------------------------------

// broadcastExcept sends evt to every member except excludeAgentID, so a
// sender never sees its own message echoed back. Per-connection send
// failures (buffer overflow) are the session layer's signal to close that
// connection; Room does not retry or escalate.
func (r *Room) broadcastExcept(excludeAgentID string, evt protocol.Event) {
	for agentID, a := range r.agents {
		if agentID == excludeAgentID || a.Conn == nil {
			continue
		}
		a.Conn.Send(evt)
	}
}

func (r *Room) broadcastAll(evt protocol.Event) {
	for _, a := range r.agents {
		if a.Conn == nil {
			continue
		}
		a.Conn.Send(evt)
	}
}

// --- Topic operations (internal; no wire commands) -----------------------

// AddTopic appends a new pending topic and returns its id, or "" if the
// room has already shut down.
func (r *Room) AddTopic(title, introducedBy string) string {
	done := make(chan string)
	if !r.ib.submit(func() {
		t := &DiscussionTopic{ID: id.Generate(), Title: title, Status: TopicPending, IntroducedAt: timeNow(), IntroducedBy: introducedBy}
		r.topics.add(t)
		done <- t.ID
	}) {
		return ""
	}
	return <-done
}

// SetActiveTopic marks topicID active, auto-completing the prior active
// topic.
func (r *Room) SetActiveTopic(topicID string) bool {
	done := make(chan bool)
	if !r.ib.submit(func() { done <- r.topics.setActive(topicID) }) {
		return false
	}
	return <-done
}

// CompleteTopic marks topicID completed.
func (r *Room) CompleteTopic(topicID string) bool {
	done := make(chan bool)
	if !r.ib.submit(func() { done <- r.topics.complete(topicID) }) {
		return false
	}
	return <-done
}

// GetActiveTopic returns the room's current active topic, if any.
func (r *Room) GetActiveTopic() (DiscussionTopic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics.active()
	if !ok {
		return DiscussionTopic{}, false
	}
	return *t, true
}
