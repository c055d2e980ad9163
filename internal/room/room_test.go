package room_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convene/convene/internal/protocol"
	"github.com/convene/convene/internal/repo/memory"
	"github.com/convene/convene/internal/room"
	"github.com/convene/convene/internal/toolregistry"
)

// fakeConn records every event sent to it, standing in for a session
// connection in tests.
type fakeConn struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (c *fakeConn) Send(evt protocol.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return true
}

func (c *fakeConn) types() []protocol.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func (c *fakeConn) last() protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func newTestRoom(t *testing.T, mode room.Mode) (*room.Room, *memory.Repository) {
	t.Helper()
	repository := memory.New()
	r := room.New(room.Config{
		ID:              "room-1",
		Topic:           "first contact",
		Mode:            mode,
		Repository:      repository,
		SendBufferLimit: 256,
	})
	t.Cleanup(r.Shutdown)
	return r, repository
}

func join(r *room.Room, conn room.Conn, agentID, name, role string) {
	r.HandleCommand(conn, protocol.Command{
		Type: protocol.CmdJoin,
		Join: &protocol.JoinCommand{AgentID: agentID, Name: name, Role: role},
	})
}

// Basic chat: two agents join; one sends a message; the other receives
// it and the sender does not see its own message echoed back.
func TestRoom_BasicChat(t *testing.T) {
	r, repository := newTestRoom(t, room.ModeDeep)

	alice := &fakeConn{}
	bob := &fakeConn{}
	join(r, alice, "alice", "Alice", "participant")
	join(r, bob, "bob", "Bob", "participant")

	require.Equal(t, 2, r.AgentCount())
	assert.Equal(t, []protocol.EventType{protocol.EvtWelcome, protocol.EvtAgentJoined}, alice.types())
	assert.Equal(t, []protocol.EventType{protocol.EvtWelcome}, bob.types())

	r.HandleCommand(alice, protocol.Command{
		Type:    protocol.CmdMessage,
		Message: &protocol.MessageCommand{AgentID: "alice", Content: "hello room"},
	})

	assert.NotContains(t, alice.types(), protocol.EvtMessage)
	assert.Contains(t, bob.types(), protocol.EvtMessage)
	assert.Equal(t, protocol.MessagePayload{AgentID: "alice", Content: "hello room"}, bob.last().Payload)

	require.Len(t, repository.Messages(), 1)
}

// A proposal that reaches majority approval broadcasts PROPOSAL_CREATED,
// VOTE_CAST for each vote, then exactly one PROPOSAL_RESOLVED with
// status=approved.
func TestRoom_MajorityApprovedProposal(t *testing.T) {
	r, repository := newTestRoom(t, room.ModeDeep) // threshold 0.6

	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	join(r, a, "a", "A", "participant")
	join(r, b, "b", "B", "participant")
	join(r, c, "c", "C", "participant")

	r.HandleCommand(a, protocol.Command{
		Type: protocol.CmdCreateProposal,
		CreateProposal: &protocol.CreateProposalCommand{
			ProposalID: "p1", Title: "adopt plan", ProposerID: "a",
		},
	})
	assert.Contains(t, b.types(), protocol.EvtProposalCreated)

	r.HandleCommand(a, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "a", Vote: protocol.VoteYes}})
	r.HandleCommand(b, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "b", Vote: protocol.VoteYes}})
	r.HandleCommand(c, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "c", Vote: protocol.VoteNo}})

	require.Contains(t, c.types(), protocol.EvtProposalResolved)
	resolvedCount := 0
	var resolved protocol.ProposalResolvedPayload
	for _, e := range c.events {
		if e.Type == protocol.EvtProposalResolved {
			resolvedCount++
			resolved = e.Payload.(protocol.ProposalResolvedPayload)
		}
	}
	assert.Equal(t, 1, resolvedCount)
	assert.Equal(t, "approved", resolved.Status)
	assert.Equal(t, 2, resolved.Yes)
	assert.Equal(t, 1, resolved.No)

	p, ok := repository.Proposal("p1")
	require.True(t, ok)
	assert.Equal(t, "approved", p.Status)
	assert.Equal(t, 3, repository.VoteCount("p1"))
}

// A proposal where the majority votes no resolves as rejected.
func TestRoom_RejectedProposal(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep) // threshold 0.6

	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	join(r, a, "a", "A", "participant")
	join(r, b, "b", "B", "participant")
	join(r, c, "c", "C", "participant")

	r.HandleCommand(a, protocol.Command{
		Type: protocol.CmdCreateProposal,
		CreateProposal: &protocol.CreateProposalCommand{
			ProposalID: "p1", Title: "adopt plan", ProposerID: "a",
		},
	})
	r.HandleCommand(a, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "a", Vote: protocol.VoteYes}})
	r.HandleCommand(b, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "b", Vote: protocol.VoteNo}})
	r.HandleCommand(c, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "c", Vote: protocol.VoteNo}})

	var resolved protocol.ProposalResolvedPayload
	for _, e := range c.events {
		if e.Type == protocol.EvtProposalResolved {
			resolved = e.Payload.(protocol.ProposalResolvedPayload)
		}
	}
	assert.Equal(t, "rejected", resolved.Status)
}

// A proposal where every vote is an abstention never resolves.
func TestRoom_AbstainStalemateNeverResolves(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep)

	a, b := &fakeConn{}, &fakeConn{}
	join(r, a, "a", "A", "participant")
	join(r, b, "b", "B", "participant")

	r.HandleCommand(a, protocol.Command{
		Type:           protocol.CmdCreateProposal,
		CreateProposal: &protocol.CreateProposalCommand{ProposalID: "p1", Title: "t", ProposerID: "a"},
	})
	r.HandleCommand(a, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "a", Vote: protocol.VoteAbstain}})
	r.HandleCommand(b, protocol.Command{Type: protocol.CmdVote, Vote: &protocol.VoteCommand{ProposalID: "p1", AgentID: "b", Vote: protocol.VoteAbstain}})

	assert.NotContains(t, b.types(), protocol.EvtProposalResolved)
}

// Joining with an agent id already present in the room replies ERROR to
// the duplicate joiner and keeps the original connection resident.
func TestRoom_DuplicateJoin(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep)

	original := &fakeConn{}
	join(r, original, "a", "A", "participant")

	impostor := &fakeConn{}
	join(r, impostor, "a", "A (impostor)", "participant")

	assert.Equal(t, []protocol.EventType{protocol.EvtError}, impostor.types())
	assert.Equal(t, 1, r.AgentCount())

	other := &fakeConn{}
	join(r, other, "b", "B", "participant")
	r.HandleCommand(other, protocol.Command{
		Type:    protocol.CmdMessage,
		Message: &protocol.MessageCommand{AgentID: "b", Content: "hi"},
	})

	assert.Contains(t, original.types(), protocol.EvtMessage)
	assert.NotContains(t, impostor.types(), protocol.EvtMessage)
}

func TestRoom_HandleDisconnect_ActsAsImplicitLeave(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep)

	alice := &fakeConn{}
	bob := &fakeConn{}
	join(r, alice, "alice", "Alice", "participant")
	join(r, bob, "bob", "Bob", "participant")

	r.HandleDisconnect(alice)

	assert.False(t, r.HasAgent("alice"))
	assert.Contains(t, bob.types(), protocol.EvtAgentLeft)
}

func TestRoom_UpdateMetadata_BroadcastsToSenderToo(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep)

	alice := &fakeConn{}
	join(r, alice, "alice", "Alice", "participant")

	r.HandleCommand(alice, protocol.Command{
		Type:           protocol.CmdUpdateMetadata,
		UpdateMetadata: &protocol.UpdateMetadataCommand{AgentID: "alice", Metadata: []byte(`{"mood":"curious"}`)},
	})

	assert.Contains(t, alice.types(), protocol.EvtAgentMetadataUpdated)
}

func TestRoom_InitialTopicEqualsFoundingTopic(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep)

	active, ok := r.GetActiveTopic()
	require.True(t, ok)
	assert.Equal(t, "first contact", active.Title)
	assert.Equal(t, room.TopicActive, active.Status)
}

func TestRoom_VoteOnUnknownProposal_RepliesErrorToVoterOnly(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep)

	alice := &fakeConn{}
	bob := &fakeConn{}
	join(r, alice, "alice", "Alice", "participant")
	join(r, bob, "bob", "Bob", "participant")

	r.HandleCommand(alice, protocol.Command{
		Type: protocol.CmdVote,
		Vote: &protocol.VoteCommand{ProposalID: "does-not-exist", AgentID: "alice", Vote: protocol.VoteYes},
	})

	assert.Contains(t, alice.types(), protocol.EvtError)
	assert.NotContains(t, bob.types(), protocol.EvtError)
}

func TestRoom_MessageFromUnknownAgent_SilentlyDropped(t *testing.T) {
	r, _ := newTestRoom(t, room.ModeDeep)

	alice := &fakeConn{}
	join(r, alice, "alice", "Alice", "participant")

	ghost := &fakeConn{}
	r.HandleCommand(ghost, protocol.Command{
		Type:    protocol.CmdMessage,
		Message: &protocol.MessageCommand{AgentID: "ghost", Content: "boo"},
	})

	assert.Empty(t, ghost.types())
	assert.NotContains(t, alice.types(), protocol.EvtMessage)
}

// Repeated and concurrent Shutdown calls must all return rather than hang,
// and the room's teardown (shutdown callback) must run exactly once.
func TestRoom_ShutdownIsIdempotent(t *testing.T) {
	repository := memory.New()
	var shutdownCalls int
	var mu sync.Mutex
	r := room.New(room.Config{
		ID:         "room-idempotent",
		Topic:      "shutdown test",
		Mode:       room.ModeDeep,
		Repository: repository,
		ShutdownCallback: func(string) {
			mu.Lock()
			shutdownCalls++
			mu.Unlock()
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Shutdown()
		}()
	}
	wg.Wait()
	r.Shutdown() // a later, sequential call must also return immediately.

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, shutdownCalls, "shutdown callback must run exactly once")
}

// TestRoom_HandleCommandAfterShutdown_FailsFastInsteadOfHanging covers the
// inbox's submit-after-close path: once a room has shut down, any further
// HandleCommand must return (with an ERROR reply) rather than block forever
// waiting on a done channel nothing will ever close.
func TestRoom_HandleCommandAfterShutdown_FailsFastInsteadOfHanging(t *testing.T) {
	repository := memory.New()
	r := room.New(room.Config{
		ID:         "room-closed",
		Topic:      "closed room",
		Mode:       room.ModeDeep,
		Repository: repository,
	})
	r.Shutdown()

	alice := &fakeConn{}
	done := make(chan struct{})
	go func() {
		r.HandleCommand(alice, protocol.Command{
			Type:    protocol.CmdMessage,
			Message: &protocol.MessageCommand{AgentID: "alice", Content: "hello"},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleCommand hung after the room had already shut down")
	}
	assert.Contains(t, alice.types(), protocol.EvtError)
}

func TestRoom_InvokeTool_DeniedPermissionNeverRecordsSuccess(t *testing.T) {
	registry := toolregistry.New()
	registry.Register(&toolregistry.Tool{
		Name:         "search",
		Enabled:      true,
		AllowedRoles: map[string]bool{"moderator": true},
	})

	repository := memory.New()
	r := room.New(room.Config{
		ID:         "room-tools",
		Topic:      "tool permissions",
		Mode:       room.ModeDeep,
		Repository: repository,
		Tools:      registry,
	})
	t.Cleanup(r.Shutdown)

	alice := &fakeConn{}
	join(r, alice, "alice", "Alice", "participant")

	cmd, err := protocol.Decode([]byte(`{"type":"INVOKE_TOOL","agentId":"alice","toolName":"search"}`))
	require.NoError(t, err)
	r.HandleCommand(alice, cmd)

	assert.Contains(t, alice.types(), protocol.EvtError)
	assert.NotContains(t, alice.types(), protocol.EvtToolInvoked)
	assert.False(t, registry.HasPermission("search", "alice", "participant"))
}

func TestRoom_InvokeTool_AllowedRecordsSuccess(t *testing.T) {
	registry := toolregistry.New()
	registry.Register(&toolregistry.Tool{Name: "search", Enabled: true, Tier: toolregistry.TierAll})

	repository := memory.New()
	r := room.New(room.Config{
		ID:         "room-tools-ok",
		Topic:      "tool permissions",
		Mode:       room.ModeDeep,
		Repository: repository,
		Tools:      registry,
	})
	t.Cleanup(r.Shutdown)

	alice := &fakeConn{}
	join(r, alice, "alice", "Alice", "participant")

	cmd, err := protocol.Decode([]byte(`{"type":"INVOKE_TOOL","agentId":"alice","toolName":"search"}`))
	require.NoError(t, err)
	r.HandleCommand(alice, cmd)

	assert.Contains(t, alice.types(), protocol.EvtToolInvoked)
	assert.Equal(t, protocol.ToolInvokedPayload{ToolName: "search", AgentID: "alice"}, alice.last().Payload)
}
