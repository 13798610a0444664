package core

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"souschef/internal/event"
	"souschef/internal/recipe"
)

// NodeID identifies a processing node. The set of identifiers is closed:
// routers are exhaustive switches over it and the engine rejects anything it
// does not know.
type NodeID string

// End is the terminal sentinel; routing to it stops the execution.
const End NodeID = "__end__"

// Authoring graph nodes.
const (
	NodeClassify       NodeID = "classify"
	NodeSuggest        NodeID = "suggest"
	NodeClarify        NodeID = "clarify"
	NodeApplyMarkers   NodeID = "apply_markers"
	NodeCheckComplete  NodeID = "check_complete"
	NodeGenMetadata    NodeID = "generate_metadata"
	NodeGenIngredients NodeID = "generate_ingredients"
	NodeGenSteps       NodeID = "generate_steps"
	NodeGenNutrition   NodeID = "generate_nutrition"
	NodeFinalize       NodeID = "finalize"
)

// Guidance graph nodes.
const (
	NodeAcquire  NodeID = "acquire_recipe"
	NodeNavigate NodeID = "navigate"
	NodeQuestion NodeID = "question"
	NodeTimer    NodeID = "timer"
	NodeChat     NodeID = "chat"
)

// Mode selects which agent handles a session's turns.
type Mode string

const (
	ModeGuidance  Mode = "guidance"
	ModeAuthoring Mode = "authoring"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	// Authoring intents.
	IntentNewRecipe Intent = "new_recipe"
	IntentModify    Intent = "modify"
	IntentSuggest   Intent = "suggest"
	IntentQuestion  Intent = "question"

	// Guidance intents.
	IntentAcquire  Intent = "acquire_recipe"
	IntentStart    Intent = "start"
	IntentNext     Intent = "next"
	IntentPrevious Intent = "previous"
	IntentAsk      Intent = "ask_question"
	IntentTimer    Intent = "set_timer"
	IntentChat     Intent = "chat"
)

// Modification names the field groups a modification request invalidates.
type Modification struct {
	Groups []recipe.FieldGroup
}

// TimerRequest is extracted by the guidance classifier for set_timer turns.
type TimerRequest struct {
	Label   string
	Seconds int
}

// TurnState is the shared mutable state of one graph execution. It is created
// fresh per turn from the session record plus scratch slots written by nodes,
// and discarded at turn end except for the Changes persisted back.
type TurnState struct {
	SessionID   string
	Mode        Mode
	UserMessage string

	// Session-backed fields.
	Messages       []*schema.Message
	Recipe         *recipe.Recipe
	Ingredients    []recipe.Ingredient
	CurrentStep    *int
	CompletedSteps map[int]struct{}

	// Scratch slots.
	Intent          Intent
	Modification    *Modification
	Timer           *TimerRequest
	AlreadyComplete bool
	GenCycles       int

	// Changes accumulates the subset of updates persisted at turn end.
	Changes Changes
}

// Update is a node's partial-state update. Nil fields leave the state
// untouched; AppendMessages appends to the message log rather than replacing
// it, and AddCompleted unions into the completed-steps set.
type Update struct {
	AppendMessages []*schema.Message
	Recipe         *recipe.Recipe
	Ingredients    []recipe.Ingredient
	CurrentStep    *int
	AddCompleted   []int
	// ResetProgress clears the step index and the completed-steps set, for
	// turns that swap in a different recipe. Applied before CurrentStep and
	// AddCompleted from the same update.
	ResetProgress bool

	Intent          Intent
	Modification    *Modification
	Timer           *TimerRequest
	AlreadyComplete *bool
	GenCycles       *int
}

// Changes is the persistable footprint of a turn, mapped onto a session patch
// by the turn driver once the execution finishes.
type Changes struct {
	AppendMessages []*schema.Message
	Recipe         *recipe.Recipe
	Ingredients    []recipe.Ingredient
	CurrentStep    *int
	AddCompleted   []int
	ResetProgress  bool
}

// Apply merges an update into the state: shallow field replace, except the
// message log which appends and the completed-steps set which unions.
func (s *TurnState) Apply(u Update) {
	if u.ResetProgress {
		s.CurrentStep = nil
		s.CompletedSteps = nil
		s.Changes.ResetProgress = true
		s.Changes.CurrentStep = nil
		s.Changes.AddCompleted = nil
	}
	if len(u.AppendMessages) > 0 {
		s.Messages = append(s.Messages, u.AppendMessages...)
		s.Changes.AppendMessages = append(s.Changes.AppendMessages, u.AppendMessages...)
	}
	if u.Recipe != nil {
		s.Recipe = u.Recipe
		s.Changes.Recipe = u.Recipe
	}
	if u.Ingredients != nil {
		s.Ingredients = u.Ingredients
		s.Changes.Ingredients = u.Ingredients
	}
	if u.CurrentStep != nil {
		s.CurrentStep = u.CurrentStep
		s.Changes.CurrentStep = u.CurrentStep
	}
	for _, idx := range u.AddCompleted {
		if s.CompletedSteps == nil {
			s.CompletedSteps = make(map[int]struct{})
		}
		if _, ok := s.CompletedSteps[idx]; !ok {
			s.CompletedSteps[idx] = struct{}{}
			s.Changes.AddCompleted = append(s.Changes.AddCompleted, idx)
		}
	}
	if u.Intent != "" {
		s.Intent = u.Intent
	}
	if u.Modification != nil {
		s.Modification = u.Modification
	}
	if u.Timer != nil {
		s.Timer = u.Timer
	}
	if u.AlreadyComplete != nil {
		s.AlreadyComplete = *u.AlreadyComplete
	}
	if u.GenCycles != nil {
		s.GenCycles = *u.GenCycles
	}
}

// Node is a named unit of computation, possibly wrapping a slow external call.
type Node interface {
	ID() NodeID
	Run(ctx context.Context, st *TurnState) (Update, []event.Event, error)
}

// Router picks the next node after the owning node has executed and its
// update has been merged. It must return a registered NodeID or End.
type Router func(st *TurnState) NodeID
