package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convene/convene/internal/protocol"
)

func TestTally_EvaluateConsensus_MajorityApproves(t *testing.T) {
	tally := Tally{Yes: 3, No: 1}
	resolved, approved := tally.evaluateConsensus(0.6)
	assert.True(t, resolved)
	assert.True(t, approved)
}

func TestTally_EvaluateConsensus_MajorityRejects(t *testing.T) {
	tally := Tally{Yes: 1, No: 3}
	resolved, approved := tally.evaluateConsensus(0.6)
	assert.True(t, resolved)
	assert.False(t, approved)
}

func TestTally_EvaluateConsensus_NoDecisiveVotesNeverResolves(t *testing.T) {
	tally := Tally{Abstain: 5}
	resolved, _ := tally.evaluateConsensus(0.6)
	assert.False(t, resolved)
}

// A split that cannot reach the approval threshold rejects: with any
// decisive votes at all, either Y/D clears the threshold or N/D exceeds
// its complement, so the only tally that stays pending is all-abstention.
func TestTally_EvaluateConsensus_SplitBelowThresholdRejects(t *testing.T) {
	tally := Tally{Yes: 1, No: 1}
	resolved, approved := tally.evaluateConsensus(0.6)
	assert.True(t, resolved)
	assert.False(t, approved)
}

func TestProposal_VoteOnResolvedIsNoOp(t *testing.T) {
	p := NewProposal("p1", "t", "d", "prop", "Proposer", 0.6)
	p.Status = ProposalApproved

	ok := p.Vote("a1", protocol.VoteYes)
	assert.False(t, ok)
	assert.Empty(t, p.Votes)
}

func TestProposal_ResolveIfReady_OnlyResolvesOnce(t *testing.T) {
	p := NewProposal("p1", "t", "d", "prop", "Proposer", 0.5)
	p.Vote("a1", protocol.VoteYes)
	p.Vote("a2", protocol.VoteYes)
	voters := []string{"a1", "a2"}

	tally, resolved := p.resolveIfReady(voters)
	require.True(t, resolved)
	assert.Equal(t, 2, tally.Yes)
	assert.Equal(t, ProposalApproved, p.Status)
	assert.True(t, p.hasResolvedAt)

	// A second call must not re-resolve or re-emit.
	_, resolvedAgain := p.resolveIfReady(voters)
	assert.False(t, resolvedAgain)
}

func TestProposal_ResolveIfReady_WaitsForQuorum(t *testing.T) {
	p := NewProposal("p1", "t", "d", "prop", "Proposer", 0.6)
	p.Vote("a1", protocol.VoteYes)

	// A lone yes is 1/1 of the decisive votes so far, but a2 has not voted.
	_, resolved := p.resolveIfReady([]string{"a1", "a2"})
	assert.False(t, resolved)
	assert.Equal(t, ProposalPending, p.Status)

	p.Vote("a2", protocol.VoteNo)
	tally, resolved := p.resolveIfReady([]string{"a1", "a2"})
	require.True(t, resolved)
	assert.Equal(t, ProposalRejected, p.Status) // 1/2 < 0.6, 1/2 > 0.4
	assert.Equal(t, 1, tally.Yes)
	assert.Equal(t, 1, tally.No)
}

func TestProposal_AbstainOnlyNeverResolves(t *testing.T) {
	p := NewProposal("p1", "t", "d", "prop", "Proposer", 0.6)
	p.Vote("a1", protocol.VoteAbstain)
	p.Vote("a2", protocol.VoteAbstain)

	_, resolved := p.resolveIfReady([]string{"a1", "a2"})
	assert.False(t, resolved)
	assert.Equal(t, ProposalPending, p.Status)
}
