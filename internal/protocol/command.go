// Package protocol implements the conference server's wire format: a closed
// set of JSON client commands and server events, each carrying a mandatory
// "type" discriminant, decoded into a tagged union with explicit optional
// members.
package protocol

import "encoding/json"

// CommandType is the closed set of client command discriminants.
type CommandType string

const (
	CmdJoin           CommandType = "JOIN"
	CmdLeave          CommandType = "LEAVE"
	CmdMessage        CommandType = "MESSAGE"
	CmdCreateRoom     CommandType = "CREATE_ROOM"
	CmdListRooms      CommandType = "LIST_ROOMS"
	CmdLeaveRoom      CommandType = "LEAVE_ROOM"
	CmdCreateProposal CommandType = "CREATE_PROPOSAL"
	CmdVote           CommandType = "VOTE"
	CmdUpdateMetadata CommandType = "UPDATE_METADATA"
	// CmdOpaque is not a wire discriminant; it is the decoder's catch-all
	// for the extended surface (DNA, tool invocation, memory), accepted as
	// opaque pass-through validated only by shape.
	CmdOpaque CommandType = "__opaque__"
)

// VoteValue is the closed set of vote choices.
type VoteValue string

const (
	VoteYes     VoteValue = "yes"
	VoteNo      VoteValue = "no"
	VoteAbstain VoteValue = "abstain"
)

func (v VoteValue) Valid() bool {
	switch v {
	case VoteYes, VoteNo, VoteAbstain:
		return true
	}
	return false
}

// Command is the decoded tagged union of every possible client command.
// Exactly one of the typed fields is populated, selected by Type.
type Command struct {
	Type      CommandType
	Timestamp int64

	Join           *JoinCommand
	Leave          *LeaveCommand
	Message        *MessageCommand
	CreateRoom     *CreateRoomCommand
	ListRooms      *ListRoomsCommand
	LeaveRoom      *LeaveRoomCommand
	CreateProposal *CreateProposalCommand
	Vote           *VoteCommand
	UpdateMetadata *UpdateMetadataCommand
	Opaque         *OpaqueCommand
}

// JoinCommand asks to join a room under an agent identity.
type JoinCommand struct {
	RoomID   string          `json:"roomId,omitempty"`
	AgentID  string          `json:"agentId"`
	Name     string          `json:"agentName"`
	Role     string          `json:"role"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// LeaveCommand leaves the resident room.
type LeaveCommand struct {
	AgentID string `json:"agentId"`
}

// MessageCommand carries a chat message into the sender's resident room.
type MessageCommand struct {
	AgentID string `json:"agentId"`
	Content string `json:"content"`
}

// CreateRoomCommand requests a new room from the RoomManager.
type CreateRoomCommand struct {
	RoomID string `json:"roomId,omitempty"`
	Topic  string `json:"topic"`
	Mode   string `json:"mode,omitempty"`
}

// ListRoomsCommand requests the set of known rooms, optionally filtered.
type ListRoomsCommand struct {
	TopicKeyword string `json:"topicKeyword,omitempty"`
}

// LeaveRoomCommand is an explicit request to leave the resident room,
// equivalent in effect to LeaveCommand but addressed at the room level.
type LeaveRoomCommand struct {
	AgentID string `json:"agentId"`
}

// CreateProposalCommand opens a new motion for vote.
type CreateProposalCommand struct {
	ProposalID  string   `json:"proposalId,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ProposerID  string   `json:"proposerId"`
	Threshold   *float64 `json:"threshold,omitempty"`
}

// VoteCommand casts or overwrites a vote on a pending proposal.
type VoteCommand struct {
	ProposalID string    `json:"proposalId"`
	AgentID    string    `json:"agentId"`
	Vote       VoteValue `json:"vote"`
	Rationale  string    `json:"rationale,omitempty"`
}

// UpdateMetadataCommand replaces an agent's metadata blob.
type UpdateMetadataCommand struct {
	AgentID  string          `json:"agentId"`
	Metadata json.RawMessage `json:"metadata"`
}

// OpaqueCommand is a shape-validated but uninterpreted pass-through frame
// (DNA, tool invocation, memory): it must be a JSON object that itself
// carries a "type" field, but its contents are not otherwise inspected.
type OpaqueCommand struct {
	OriginalType string          `json:"type"`
	Raw          json.RawMessage `json:"-"`
}
