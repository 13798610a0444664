package event

import "fmt"

// Type enumerates the public event vocabulary of a turn.
type Type string

const (
	TypeThinking    Type = "thinking"
	TypeMetadata    Type = "metadata"
	TypeIngredients Type = "ingredients"
	TypeSteps       Type = "steps"
	TypeNutrition   Type = "nutrition"
	TypeText        Type = "text"
	TypeTimer       Type = "timer"
	TypeSessionName Type = "session_name"
	TypeAgentState  Type = "agent_state"
	TypeComplete    Type = "complete"
	TypeError       Type = "error"
)

// Event is one message of the turn's output stream. Content is an opaque
// payload; field-group events always carry the full current group value.
type Event struct {
	Type    Type `json:"type"`
	Content any  `json:"content,omitempty"`
}

// ThinkingPayload carries the human-readable status label for a slow node.
type ThinkingPayload struct {
	Label string `json:"label"`
}

// TextPayload carries assistant-visible text.
type TextPayload struct {
	Text string `json:"text"`
}

// TimerPayload asks the client to start a countdown.
type TimerPayload struct {
	Label   string `json:"label"`
	Seconds int    `json:"seconds"`
}

// SessionNamePayload renames the session.
type SessionNamePayload struct {
	Name string `json:"name"`
}

// AgentStatePayload reports kitchen progress to the client.
type AgentStatePayload struct {
	CurrentStep int `json:"current_step"`
	TotalSteps  int `json:"total_steps"`
}

// Error kinds surfaced on the event stream.
const (
	KindNodeFailure        = "node_failure"
	KindCompletenessStall  = "completeness_stall"
	KindPersistenceFailure = "persistence_failure"
)

// ErrorPayload is the terminal payload of a failed turn.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TurnError is an error that maps to a specific event error kind. Node
// failures without a TurnError default to node_failure.
type TurnError struct {
	Kind    string
	Message string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Text builds a text event.
func Text(s string) Event {
	return Event{Type: TypeText, Content: TextPayload{Text: s}}
}
