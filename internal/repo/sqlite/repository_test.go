package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convene/convene/internal/repo"
	"github.com/convene/convene/internal/repo/sqlite"
)

func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	r, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRepository_SaveMessage(t *testing.T) {
	r := newTestRepo(t)
	err := r.SaveMessage(context.Background(), "room-1", "alice", "Alice", "architect", "hello", 1)
	assert.NoError(t, err)
}

func TestRepository_SaveAndResolveProposal(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	p := repo.Proposal{ID: "p1", Title: "Use PostgreSQL", ProposerID: "alice", Threshold: 0.6, Status: "pending", CreatedAt: 1}
	require.NoError(t, r.SaveProposal(ctx, "room-1", p))
	require.NoError(t, r.UpdateProposalStatus(ctx, "p1", "approved", 42))
}

func TestRepository_SaveVote(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	p := repo.Proposal{ID: "p1", Title: "t", ProposerID: "alice", Threshold: 0.6, Status: "pending", CreatedAt: 1}
	require.NoError(t, r.SaveProposal(ctx, "room-1", p))
	require.NoError(t, r.SaveVote(ctx, "p1", "bob", "Bob", "yes", "", 2))
}

func TestRepository_AgentMetadataUpsertAndDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	m := repo.AgentMetadata{AgentID: "alice", RoomID: "room-1", Blob: []byte(`{"k":"v"}`), UpdatedAt: 1}
	require.NoError(t, r.SaveAgentMetadata(ctx, "room-1", m))

	m.Blob = []byte(`{"k":"v2"}`)
	m.UpdatedAt = 2
	require.NoError(t, r.SaveAgentMetadata(ctx, "room-1", m))

	require.NoError(t, r.DeleteAgentMetadata(ctx, "room-1", "alice"))
}
