package protocol

import (
	"encoding/json"
	"fmt"
)

// knownCommands is the closed set of client command types, used to decide
// whether an unrecognized type should hard-fail or be treated as an opaque
// pass-through frame.
var knownCommands = map[CommandType]bool{
	CmdJoin:           true,
	CmdLeave:          true,
	CmdMessage:        true,
	CmdCreateRoom:     true,
	CmdListRooms:      true,
	CmdLeaveRoom:      true,
	CmdCreateProposal: true,
	CmdVote:           true,
	CmdUpdateMetadata: true,
}

// opaqueCommands is the extended surface accepted as opaque pass-through
// validated only by shape.
var opaqueCommands = map[string]bool{
	"DNA":         true,
	"INVOKE_TOOL": true,
	"MEMORY":      true,
}

// Decode parses a single wire frame into a Command. It fails with an error
// (to be surfaced as an ERROR event) when the frame is not valid JSON, is
// not a JSON object, is missing the "type" discriminant, is an unknown
// discriminant outside the opaque extension surface, is missing a required
// field, or carries an out-of-range value (threshold, vote, mode).
func Decode(data []byte) (Command, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Command{}, fmt.Errorf("invalid frame: %w", err)
	}

	typField, ok := raw["type"]
	if !ok {
		return Command{}, fmt.Errorf("missing required field: type")
	}
	var typeStr string
	if err := json.Unmarshal(typField, &typeStr); err != nil {
		return Command{}, fmt.Errorf("type must be a string")
	}

	var ts int64
	if tsField, ok := raw["timestamp"]; ok {
		if err := json.Unmarshal(tsField, &ts); err != nil {
			return Command{}, fmt.Errorf("timestamp must be an integer")
		}
	}

	cmdType := CommandType(typeStr)
	if !knownCommands[cmdType] {
		if opaqueCommands[typeStr] {
			return Command{
				Type:      CmdOpaque,
				Timestamp: ts,
				Opaque:    &OpaqueCommand{OriginalType: typeStr, Raw: data},
			}, nil
		}
		return Command{}, fmt.Errorf("unknown command type: %q", typeStr)
	}

	cmd := Command{Type: cmdType, Timestamp: ts}
	switch cmdType {
	case CmdJoin:
		var c JoinCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode JOIN: %w", err)
		}
		if c.AgentID == "" {
			return Command{}, fmt.Errorf("JOIN requires agentId")
		}
		cmd.Join = &c

	case CmdLeave:
		var c LeaveCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode LEAVE: %w", err)
		}
		if c.AgentID == "" {
			return Command{}, fmt.Errorf("LEAVE requires agentId")
		}
		cmd.Leave = &c

	case CmdMessage:
		var c MessageCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode MESSAGE: %w", err)
		}
		if c.AgentID == "" {
			return Command{}, fmt.Errorf("MESSAGE requires agentId")
		}
		cmd.Message = &c

	case CmdCreateRoom:
		var c CreateRoomCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode CREATE_ROOM: %w", err)
		}
		if c.Topic == "" {
			return Command{}, fmt.Errorf("CREATE_ROOM requires topic")
		}
		if c.Mode != "" && c.Mode != "quick" && c.Mode != "deep" {
			return Command{}, fmt.Errorf("mode must be %q or %q", "quick", "deep")
		}
		cmd.CreateRoom = &c

	case CmdListRooms:
		var c ListRoomsCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode LIST_ROOMS: %w", err)
		}
		cmd.ListRooms = &c

	case CmdLeaveRoom:
		var c LeaveRoomCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode LEAVE_ROOM: %w", err)
		}
		if c.AgentID == "" {
			return Command{}, fmt.Errorf("LEAVE_ROOM requires agentId")
		}
		cmd.LeaveRoom = &c

	case CmdCreateProposal:
		var c CreateProposalCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode CREATE_PROPOSAL: %w", err)
		}
		if c.Title == "" {
			return Command{}, fmt.Errorf("CREATE_PROPOSAL requires title")
		}
		if c.ProposerID == "" {
			return Command{}, fmt.Errorf("CREATE_PROPOSAL requires proposerId")
		}
		if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold > 1) {
			return Command{}, fmt.Errorf("threshold must be in [0,1]")
		}
		cmd.CreateProposal = &c

	case CmdVote:
		var c VoteCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode VOTE: %w", err)
		}
		if c.ProposalID == "" || c.AgentID == "" {
			return Command{}, fmt.Errorf("VOTE requires proposalId and agentId")
		}
		if !c.Vote.Valid() {
			return Command{}, fmt.Errorf("vote must be one of yes, no, abstain")
		}
		cmd.Vote = &c

	case CmdUpdateMetadata:
		var c UpdateMetadataCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return Command{}, fmt.Errorf("decode UPDATE_METADATA: %w", err)
		}
		if c.AgentID == "" {
			return Command{}, fmt.Errorf("UPDATE_METADATA requires agentId")
		}
		cmd.UpdateMetadata = &c
	}

	return cmd, nil
}

// EncodeEvent serializes a server event to its wire form.
func EncodeEvent(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}
