// Package memory is an in-memory Repository implementation, a plain
// mutex-guarded map, so unit tests don't require a live sqlite driver.
package memory

import (
	"context"
	"sync"

	"github.com/convene/convene/internal/repo"
)

type message struct {
	RoomID, AgentID, Name, Role, Content string
	Timestamp                            int64
}

type vote struct {
	ProposalID, AgentID, Name, VoteType, Rationale string
	Timestamp                                      int64
}

// Repository is a mutex-guarded in-memory Repository.
type Repository struct {
	mu        sync.Mutex
	messages  []message
	proposals map[string]repo.Proposal
	votes     []vote
	metadata  map[string]repo.AgentMetadata // keyed by roomID+"/"+agentID
	closed    bool
}

// New returns an empty in-memory Repository.
func New() *Repository {
	return &Repository{
		proposals: make(map[string]repo.Proposal),
		metadata:  make(map[string]repo.AgentMetadata),
	}
}

func metaKey(roomID, agentID string) string { return roomID + "/" + agentID }

func (r *Repository) SaveMessage(ctx context.Context, roomID, agentID, name, role, content string, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message{roomID, agentID, name, role, content, ts})
	return nil
}

func (r *Repository) SaveProposal(ctx context.Context, roomID string, p repo.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposals[p.ID] = p
	return nil
}

func (r *Repository) UpdateProposalStatus(ctx context.Context, proposalID, status string, resolvedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[proposalID]
	if !ok {
		return nil
	}
	p.Status = status
	r.proposals[proposalID] = p
	return nil
}

func (r *Repository) SaveVote(ctx context.Context, proposalID, agentID, name, voteType, rationale string, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes = append(r.votes, vote{proposalID, agentID, name, voteType, rationale, ts})
	return nil
}

func (r *Repository) SaveAgentMetadata(ctx context.Context, roomID string, m repo.AgentMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[metaKey(roomID, m.AgentID)] = m
	return nil
}

func (r *Repository) DeleteAgentMetadata(ctx context.Context, roomID, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.metadata, metaKey(roomID, agentID))
	return nil
}

func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Messages returns a snapshot of persisted messages, for test assertions.
func (r *Repository) Messages() []message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Proposal returns the persisted proposal by id, for test assertions.
func (r *Repository) Proposal(id string) (repo.Proposal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[id]
	return p, ok
}

// VoteCount returns how many votes have been persisted for proposalID.
func (r *Repository) VoteCount(proposalID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.votes {
		if v.ProposalID == proposalID {
			n++
		}
	}
	return n
}

var _ repo.Repository = (*Repository)(nil)
