package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convene/convene/internal/protocol"
)

func TestDecode_Join(t *testing.T) {
	cmd, err := protocol.Decode([]byte(`{"type":"JOIN","timestamp":1,"agentId":"alice","agentName":"Alice","role":"architect"}`))
	require.NoError(t, err)
	require.NotNil(t, cmd.Join)
	assert.Equal(t, "alice", cmd.Join.AgentID)
	assert.Equal(t, protocol.CmdJoin, cmd.Type)
}

func TestDecode_MissingType(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"agentId":"alice"}`))
	assert.Error(t, err)
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"NOT_A_COMMAND"}`))
	assert.Error(t, err)
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := protocol.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecode_JoinMissingAgentID(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"JOIN","agentName":"Alice"}`))
	assert.Error(t, err)
}

func TestDecode_CreateRoomBadMode(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"CREATE_ROOM","topic":"t","mode":"sideways"}`))
	assert.Error(t, err)
}

func TestDecode_CreateProposalThresholdOutOfRange(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"CREATE_PROPOSAL","title":"t","proposerId":"a","threshold":1.5}`))
	assert.Error(t, err)
}

func TestDecode_VoteInvalidChoice(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"VOTE","proposalId":"p","agentId":"a","vote":"maybe"}`))
	assert.Error(t, err)
}

func TestDecode_OpaquePassThrough(t *testing.T) {
	cmd, err := protocol.Decode([]byte(`{"type":"INVOKE_TOOL","tool":"search","args":{}}`))
	require.NoError(t, err)
	require.NotNil(t, cmd.Opaque)
	assert.Equal(t, "INVOKE_TOOL", cmd.Opaque.OriginalType)
	assert.Equal(t, protocol.CmdOpaque, cmd.Type)
}

func TestEncodeEvent_RoundTrip(t *testing.T) {
	evt := protocol.Event{
		Type:      protocol.EvtMessage,
		Timestamp: 42,
		Payload:   protocol.MessagePayload{AgentID: "alice", Content: "hi"},
	}
	data, err := protocol.EncodeEvent(evt)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"MESSAGE"`)
	assert.Contains(t, string(data), `"agentId":"alice"`)
	assert.Contains(t, string(data), `"timestamp":42`)
}
