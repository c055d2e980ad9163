package room

import (
	"time"

	"github.com/convene/convene/internal/protocol"
)

// ProposalStatus is the closed set of Proposal lifecycle states.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a single motion: votes map, threshold, derived counts,
// consensus predicate, status. Not safe for concurrent use on its own;
// callers must hold the owning Room's lock.
type Proposal struct {
	ID            string
	Title         string
	Description   string
	ProposerID    string
	ProposerName  string
	Threshold     float64
	Votes         map[string]protocol.VoteValue
	Status        ProposalStatus
	CreatedAt     time.Time
	ResolvedAt    time.Time
	hasResolvedAt bool
}

// NewProposal constructs a pending Proposal.
func NewProposal(id, title, description, proposerID, proposerName string, threshold float64) *Proposal {
	return &Proposal{
		ID:           id,
		Title:        title,
		Description:  description,
		ProposerID:   proposerID,
		ProposerName: proposerName,
		Threshold:    threshold,
		Votes:        make(map[string]protocol.VoteValue),
		Status:       ProposalPending,
		CreatedAt:    timeNow(),
	}
}

// Vote records or overwrites agentID's vote. Votes only mutate while
// status is pending; voting on a resolved proposal is a no-op reporting
// ok=false so the caller can surface an ERROR.
func (p *Proposal) Vote(agentID string, v protocol.VoteValue) (ok bool) {
	if p.Status != ProposalPending {
		return false
	}
	p.Votes[agentID] = v
	return true
}

// Tally is the derived yes/no/abstain/total counts the consensus predicate
// and the PROPOSAL_RESOLVED event are expressed over.
type Tally struct {
	Yes, No, Abstain, Total int
}

// tally counts the current vote map.
func (p *Proposal) tally() Tally {
	var t Tally
	for _, v := range p.Votes {
		t.Total++
		switch v {
		case protocol.VoteYes:
			t.Yes++
		case protocol.VoteNo:
			t.No++
		case protocol.VoteAbstain:
			t.Abstain++
		}
	}
	return t
}

// evaluateConsensus applies the consensus predicate:
//
//	D = Y + N (decisive votes; abstentions excluded)
//	hasReachedConsensus := D > 0 && (Y/D >= threshold || N/D > 1-threshold)
//	on consensus: approved iff Y/D >= threshold, otherwise rejected.
//
// All-abstention proposals never reach consensus and stay pending forever.
func (t Tally) evaluateConsensus(threshold float64) (resolved bool, approved bool) {
	d := t.Yes + t.No
	if d == 0 {
		return false, false
	}
	yesRatio := float64(t.Yes) / float64(d)
	noRatio := float64(t.No) / float64(d)
	reached := yesRatio >= threshold || noRatio > 1-threshold
	if !reached {
		return false, false
	}
	return true, yesRatio >= threshold
}

// hasQuorum reports whether every agent in required has cast a vote
// (decisive or abstention). Consensus is never evaluated before quorum:
// a lone early yes under a 0.6 threshold is 1/1 of the decisive votes so
// far, but it is not the room's decision. The required list is the room's
// current non-proposer membership, supplied by the caller at each
// evaluation so agents who left no longer hold the proposal open.
func (p *Proposal) hasQuorum(required []string) bool {
	for _, agentID := range required {
		if _, voted := p.Votes[agentID]; !voted {
			return false
		}
	}
	return true
}

// resolveIfReady evaluates consensus against the current vote map and, the
// first time quorum is met and the predicate is satisfied, transitions
// Status to a terminal value and stamps ResolvedAt. Returns the tally and
// whether resolution happened on this call (so the caller broadcasts
// PROPOSAL_RESOLVED exactly once).
func (p *Proposal) resolveIfReady(required []string) (Tally, bool) {
	t := p.tally()
	if p.Status != ProposalPending {
		return t, false
	}
	if !p.hasQuorum(required) {
		return t, false
	}
	resolved, approved := t.evaluateConsensus(p.Threshold)
	if !resolved {
		return t, false
	}
	if approved {
		p.Status = ProposalApproved
	} else {
		p.Status = ProposalRejected
	}
	p.ResolvedAt = timeNow()
	p.hasResolvedAt = true
	return t, true
}
