package protocol

import "encoding/json"

// EventType is the closed set of server event discriminants.
type EventType string

const (
	EvtWelcome              EventType = "WELCOME"
	EvtAgentJoined          EventType = "AGENT_JOINED"
	EvtAgentLeft            EventType = "AGENT_LEFT"
	EvtMessage              EventType = "MESSAGE"
	EvtError                EventType = "ERROR"
	EvtRoomCreated          EventType = "ROOM_CREATED"
	EvtRoomList             EventType = "ROOM_LIST"
	EvtProposalCreated      EventType = "PROPOSAL_CREATED"
	EvtVoteCast             EventType = "VOTE_CAST"
	EvtProposalResolved     EventType = "PROPOSAL_RESOLVED"
	EvtAgentMetadataUpdated EventType = "AGENT_METADATA_UPDATED"
	EvtToolInvoked          EventType = "TOOL_INVOKED"
)

// Event is the encodable tagged union of every server event. Encoding
// flattens whichever typed payload is set into a single JSON object
// alongside the mandatory type discriminant and timestamp.
type Event struct {
	Type      EventType
	Timestamp int64
	Payload   any
}

// MarshalJSON writes the wire shape: Type and Timestamp hoisted to the top
// level alongside the payload's own fields.
func (e Event) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	// Payload may be nil for zero-field events; normalize to "{}".
	if string(payload) == "null" {
		payload = []byte("{}")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	fields["type"] = json.RawMessage(`"` + e.Type + `"`)
	ts, err := json.Marshal(e.Timestamp)
	if err != nil {
		return nil, err
	}
	fields["timestamp"] = ts
	return json.Marshal(fields)
}

// WelcomePayload greets a newly joined agent.
type WelcomePayload struct {
	RoomID     string `json:"roomId"`
	Topic      string `json:"topic"`
	Mode       string `json:"mode"`
	AgentCount int    `json:"agentCount"`
}

// AgentJoinedPayload is broadcast to existing members when a new agent joins.
type AgentJoinedPayload struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Role     string          `json:"role"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// AgentLeftPayload is broadcast when an agent leaves or disconnects.
type AgentLeftPayload struct {
	ID string `json:"id"`
}

// MessagePayload carries a chat message, either local or relayed from the
// federation bus.
type MessagePayload struct {
	AgentID string `json:"agentId"`
	Content string `json:"content"`
}

// ErrorPayload reports a protocol, state, addressing, or resource error to
// the originating connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// RoomCreatedPayload confirms room creation.
type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
	Topic  string `json:"topic"`
	Mode   string `json:"mode"`
}

// RoomSummary describes one room in a ROOM_LIST response.
type RoomSummary struct {
	RoomID     string `json:"roomId"`
	Topic      string `json:"topic"`
	Mode       string `json:"mode"`
	AgentCount int    `json:"agentCount"`
}

// RoomListPayload answers LIST_ROOMS.
type RoomListPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

// ProposalCreatedPayload is broadcast when a proposal opens for vote.
type ProposalCreatedPayload struct {
	ProposalID  string  `json:"proposalId"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	ProposerID  string  `json:"proposerId"`
	Threshold   float64 `json:"threshold"`
}

// VoteCastPayload is broadcast whenever a vote is recorded or overwritten.
type VoteCastPayload struct {
	ProposalID string    `json:"proposalId"`
	AgentID    string    `json:"agentId"`
	Vote       VoteValue `json:"vote"`
}

// ProposalResolvedPayload is broadcast once a proposal reaches a terminal
// status through the consensus predicate.
type ProposalResolvedPayload struct {
	ProposalID string `json:"proposalId"`
	Status     string `json:"status"`
	Yes        int    `json:"yes"`
	No         int    `json:"no"`
	Abstain    int    `json:"abstain"`
	Total      int    `json:"total"`
}

// AgentMetadataUpdatedPayload is broadcast to every member, including the
// sender, so distributed views stay consistent.
type AgentMetadataUpdatedPayload struct {
	AgentID  string          `json:"agentId"`
	Metadata json.RawMessage `json:"metadata"`
}

// ToolInvokedPayload confirms a successful INVOKE_TOOL to the invoking
// agent only, once it has cleared the ToolRegistry's permission and rate
// limit checks.
type ToolInvokedPayload struct {
	ToolName string `json:"toolName"`
	AgentID  string `json:"agentId"`
}
