package room

import (
	"fmt"

	"github.com/convene/convene/internal/protocol"
)

// VoteManager owns a mapping proposalId -> Proposal plus a typed listener
// registry. It never broadcasts itself; the Room subscribes to forward
// PROPOSAL_RESOLVED. Not safe for concurrent use on its own; callers must
// hold the owning Room's lock.
type VoteManager struct {
	proposals map[string]*Proposal
	listeners *listenerRegistry
}

// NewVoteManager returns an empty VoteManager.
func NewVoteManager() *VoteManager {
	return &VoteManager{
		proposals: make(map[string]*Proposal),
		listeners: newListenerRegistry(),
	}
}

// Subscribe registers fn to be called whenever a proposal resolves.
func (vm *VoteManager) Subscribe(fn ProposalListener) func() {
	return vm.listeners.subscribe(fn)
}

// CreateProposal registers a new pending proposal.
func (vm *VoteManager) CreateProposal(p *Proposal) error {
	if _, exists := vm.proposals[p.ID]; exists {
		return fmt.Errorf("proposal already exists: %s", p.ID)
	}
	vm.proposals[p.ID] = p
	return nil
}

// GetProposal looks up a proposal by id.
func (vm *VoteManager) GetProposal(id string) (*Proposal, bool) {
	p, ok := vm.proposals[id]
	return p, ok
}

// Vote records or overwrites agentID's vote on proposalID. Returns an
// error if the proposal is unknown or already resolved. Consensus is not
// evaluated here; the caller follows up with UpdateProposalStatus, which
// knows who is required to vote.
func (vm *VoteManager) Vote(proposalID, agentID string, v protocol.VoteValue) (*Proposal, error) {
	p, ok := vm.proposals[proposalID]
	if !ok {
		return nil, fmt.Errorf("unknown proposal: %s", proposalID)
	}
	if !p.Vote(agentID, v) {
		return nil, fmt.Errorf("proposal already resolved: %s", proposalID)
	}
	return p, nil
}

// UpdateProposalStatus is the observer call after each vote: it
// re-evaluates the consensus predicate once every agent in
// requiredVoters has cast a vote and — on first resolution — transitions
// the proposal's status and emits a ResolvedEvent to subscribers.
func (vm *VoteManager) UpdateProposalStatus(proposalID string, requiredVoters []string) (Tally, bool, error) {
	p, ok := vm.proposals[proposalID]
	if !ok {
		return Tally{}, false, fmt.Errorf("unknown proposal: %s", proposalID)
	}
	tally, resolved := p.resolveIfReady(requiredVoters)
	if resolved {
		vm.listeners.emit(ResolvedEvent{Proposal: p, Tally: tally})
	}
	return tally, resolved, nil
}

// GetProposalsByStatus returns all proposals currently in status.
func (vm *VoteManager) GetProposalsByStatus(status ProposalStatus) []*Proposal {
	var out []*Proposal
	for _, p := range vm.proposals {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// DeleteProposal removes a proposal from the manager.
func (vm *VoteManager) DeleteProposal(id string) {
	delete(vm.proposals, id)
}
