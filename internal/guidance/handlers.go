package guidance

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"souschef/internal/author"
	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/model"
	"souschef/internal/recipe"
)

// acquireNode delegates the whole sub-turn to the authoring agent and
// accumulates its stream instead of forwarding it 1:1. Only once the acquired
// document has a name, ingredients and steps does it announce the recipe with
// a session_name event and a synthesized ready-to-start message; otherwise
// the turn ends silently.
type acquireNode struct {
	delegate *author.Agent
	log      zerolog.Logger
}

func (n *acquireNode) ID() core.NodeID { return core.NodeAcquire }

func (n *acquireNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	sub := &core.TurnState{
		SessionID:   st.SessionID,
		Mode:        core.ModeAuthoring,
		UserMessage: st.UserMessage,
		Messages:    append([]*schema.Message(nil), st.Messages...),
		Recipe:      st.Recipe.Clone(),
	}

	var buf []event.Event
	subEmitter := event.NewEmitter(func(ev event.Event) { buf = append(buf, ev) }, nil, n.log)
	if err := n.delegate.Run(ctx, sub, subEmitter); err != nil {
		return core.Update{}, nil, fmt.Errorf("acquire recipe: %w", err)
	}

	doc := sub.Recipe
	ready := doc.HasGroup(recipe.GroupMetadata) &&
		doc.HasGroup(recipe.GroupIngredients) &&
		doc.HasGroup(recipe.GroupSteps)
	if !ready {
		n.log.Debug().Str("session", st.SessionID).Msg("acquired document incomplete; ending turn silently")
		return core.Update{}, nil, nil
	}

	text := fmt.Sprintf("I've got %s ready - %d ingredients, %d steps. Say \"start\" when you're ready to cook.",
		doc.Metadata.Name, len(doc.Ingredients), len(doc.Steps))

	events := passthrough(buf)
	events = append(events,
		event.Event{Type: event.TypeSessionName, Content: event.SessionNamePayload{Name: doc.Metadata.Name}},
		event.Text(text),
	)

	// The acquired document replaces whatever was cooking before, so the old
	// recipe's progress must not carry over.
	upd := core.Update{
		Recipe:         doc,
		Ingredients:    doc.Ingredients,
		ResetProgress:  true,
		AppendMessages: []*schema.Message{schema.AssistantMessage(text, nil)},
	}
	return upd, events, nil
}

// passthrough keeps delegate events that are not part of the document
// assembly itself; field-group updates, status chatter and terminal markers
// are swallowed because this node re-announces the result on its own terms.
func passthrough(buf []event.Event) []event.Event {
	var out []event.Event
	for _, ev := range buf {
		switch ev.Type {
		case event.TypeThinking, event.TypeMetadata, event.TypeIngredients,
			event.TypeSteps, event.TypeNutrition, event.TypeComplete, event.TypeError:
		default:
			out = append(out, ev)
		}
	}
	return out
}

// questionNode answers a cooking question with the recipe and current step as
// context.
type questionNode struct {
	client model.Client
}

func (n *questionNode) ID() core.NodeID { return core.NodeQuestion }

func (n *questionNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	user := st.UserMessage
	if st.Recipe != nil {
		if doc, err := sonic.MarshalString(st.Recipe); err == nil {
			user += "\nRecipe:\n" + doc
		}
	}
	if st.CurrentStep != nil && st.Recipe != nil && *st.CurrentStep < len(st.Recipe.Steps) {
		user += fmt.Sprintf("\nThe cook is on step %d: %s",
			*st.CurrentStep+1, st.Recipe.Steps[*st.CurrentStep].Instruction)
	}

	raw, err := n.client.Generate(ctx, []*schema.Message{
		schema.SystemMessage("You are a hands-free kitchen companion. Answer briefly and concretely. Plain text, no JSON."),
		schema.UserMessage(user),
	})
	if err != nil {
		return core.Update{}, nil, fmt.Errorf("answer question: %w", err)
	}

	return core.Update{
		AppendMessages: []*schema.Message{schema.AssistantMessage(raw, nil)},
	}, []event.Event{event.Text(raw)}, nil
}

// timerNode starts a client-side countdown from the classifier's extraction.
type timerNode struct{}

func (n *timerNode) ID() core.NodeID { return core.NodeTimer }

func (n *timerNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	if st.Timer == nil || st.Timer.Seconds <= 0 {
		text := "How long should the timer run?"
		return core.Update{
			AppendMessages: []*schema.Message{schema.AssistantMessage(text, nil)},
		}, []event.Event{event.Text(text)}, nil
	}

	label := st.Timer.Label
	if label == "" {
		label = "Timer"
	}
	text := fmt.Sprintf("Timer set: %s for %s.", label, formatDuration(st.Timer.Seconds))

	return core.Update{
			AppendMessages: []*schema.Message{schema.AssistantMessage(text, nil)},
		}, []event.Event{
			{Type: event.TypeTimer, Content: event.TimerPayload{Label: label, Seconds: st.Timer.Seconds}},
			event.Text(text),
		}, nil
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}
	if seconds%60 == 0 {
		return fmt.Sprintf("%d minutes", seconds/60)
	}
	return fmt.Sprintf("%d minutes %d seconds", seconds/60, seconds%60)
}

// chatNode handles everything that is not recipe work.
type chatNode struct {
	client model.Client
}

func (n *chatNode) ID() core.NodeID { return core.NodeChat }

func (n *chatNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	raw, err := n.client.Generate(ctx, []*schema.Message{
		schema.SystemMessage("You are a friendly kitchen companion. Keep replies short. Plain text, no JSON."),
		schema.UserMessage(st.UserMessage),
	})
	if err != nil {
		return core.Update{}, nil, fmt.Errorf("chat reply: %w", err)
	}

	return core.Update{
		AppendMessages: []*schema.Message{schema.AssistantMessage(raw, nil)},
	}, []event.Event{event.Text(raw)}, nil
}
