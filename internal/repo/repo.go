// Package repo defines the persistence interface consumed by the room
// engine, opaque to the core beyond the operations it calls.
package repo

import "context"

// Repository is the durable persistence boundary for messages, proposals,
// votes, and agent metadata. The core only ever calls these operations;
// how they are stored is an external collaborator's concern.
type Repository interface {
	// SaveMessage persists one chat message.
	SaveMessage(ctx context.Context, roomID, agentID, name, role, content string, ts int64) error

	// SaveProposal persists a newly created proposal.
	SaveProposal(ctx context.Context, roomID string, p Proposal) error

	// UpdateProposalStatus persists a proposal's terminal status transition.
	UpdateProposalStatus(ctx context.Context, proposalID, status string, resolvedAt int64) error

	// SaveVote persists one cast or overwritten vote, rationale preserved
	// verbatim.
	SaveVote(ctx context.Context, proposalID, agentID, name, voteType, rationale string, ts int64) error

	// SaveAgentMetadata persists an agent's metadata blob (JOIN or
	// UPDATE_METADATA).
	SaveAgentMetadata(ctx context.Context, roomID string, m AgentMetadata) error

	// DeleteAgentMetadata removes an agent's persisted metadata (LEAVE).
	DeleteAgentMetadata(ctx context.Context, roomID, agentID string) error

	// Close releases any underlying resources.
	Close() error
}

// Proposal is the persistence-facing shape of a room proposal; it mirrors
// internal/room.Proposal's exported fields without importing internal/room,
// keeping the repository boundary free of engine types.
type Proposal struct {
	ID           string
	Title        string
	Description  string
	ProposerID   string
	ProposerName string
	Threshold    float64
	Status       string
	CreatedAt    int64
}

// AgentMetadata is the persistence-facing shape of an agent's opaque
// metadata blob.
type AgentMetadata struct {
	AgentID   string
	RoomID    string
	Blob      []byte // opaque JSON, carried through verbatim
	UpdatedAt int64
}
