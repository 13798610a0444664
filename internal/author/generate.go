package author

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/model"
	"souschef/internal/recipe"
)

// markersNode applies a modification request by clearing exactly the named
// field groups. Untouched groups keep their values, which is what lets the
// generation loop do incremental edits instead of full regeneration.
type markersNode struct {
	log zerolog.Logger
}

func (n *markersNode) ID() core.NodeID { return core.NodeApplyMarkers }

func (n *markersNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	clone := st.Recipe.Clone()
	if clone == nil {
		clone = &recipe.Recipe{}
	}

	var groups []recipe.FieldGroup
	if st.Modification != nil {
		groups = st.Modification.Groups
	}
	clone.Clear(groups...)

	// A modification that invalidates nothing on an already-complete document
	// short-circuits straight to finalize.
	already := len(groups) == 0 && clone.Complete()
	if already {
		n.log.Debug().Str("session", st.SessionID).Msg("modification invalidated no groups")
	}

	return core.Update{Recipe: clone, AlreadyComplete: &already}, nil, nil
}

// checkNode is the completeness predicate of the generation loop. The engine
// has no universal iteration cap, so this node also bounds the loop: too many
// cycles with groups still empty is a completeness stall, not another lap.
type checkNode struct {
	maxCycles int
}

func (n *checkNode) ID() core.NodeID { return core.NodeCheckComplete }

func (n *checkNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	if st.AlreadyComplete || st.Recipe.Complete() {
		return core.Update{}, nil, nil
	}

	cycles := st.GenCycles + 1
	if cycles > n.maxCycles {
		return core.Update{}, nil, &event.TurnError{
			Kind:    event.KindCompletenessStall,
			Message: fmt.Sprintf("document still incomplete after %d generation cycles", n.maxCycles),
		}
	}
	return core.Update{GenCycles: &cycles}, nil, nil
}

// genNode generates one field group. It is a no-op when its group is already
// present; otherwise it calls the model with the sibling groups as read-only
// context and replaces the whole group with the result. Its event always
// carries the full current group value, never a delta.
type genNode struct {
	id     core.NodeID
	group  recipe.FieldGroup
	client model.Client
}

func newGenNode(id core.NodeID, group recipe.FieldGroup, client model.Client) *genNode {
	return &genNode{id: id, group: group, client: client}
}

func (n *genNode) ID() core.NodeID { return n.id }

func (n *genNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	if st.Recipe.HasGroup(n.group) {
		return core.Update{}, nil, nil
	}

	raw, err := n.client.Generate(ctx, n.prompt(st))
	if err != nil {
		return core.Update{}, nil, fmt.Errorf("generate %s: %w", n.group, err)
	}

	clone := st.Recipe.Clone()
	if clone == nil {
		clone = &recipe.Recipe{}
	}

	var ev event.Event
	switch n.group {
	case recipe.GroupMetadata:
		var md recipe.Metadata
		if err := model.DecodeJSON(raw, &md); err != nil {
			return core.Update{}, nil, fmt.Errorf("generate %s: %w", n.group, err)
		}
		if md.Name == "" {
			return core.Update{}, nil, nil
		}
		clone.Metadata = &md
		ev = event.Event{Type: event.TypeMetadata, Content: clone.Metadata}
	case recipe.GroupIngredients:
		var items []recipe.Ingredient
		if err := model.DecodeJSON(raw, &items); err != nil {
			return core.Update{}, nil, fmt.Errorf("generate %s: %w", n.group, err)
		}
		if len(items) == 0 {
			return core.Update{}, nil, nil
		}
		clone.Ingredients = items
		ev = event.Event{Type: event.TypeIngredients, Content: clone.Ingredients}
	case recipe.GroupSteps:
		var steps []recipe.Step
		if err := model.DecodeJSON(raw, &steps); err != nil {
			return core.Update{}, nil, fmt.Errorf("generate %s: %w", n.group, err)
		}
		if len(steps) == 0 {
			return core.Update{}, nil, nil
		}
		clone.Steps = steps
		ev = event.Event{Type: event.TypeSteps, Content: clone.Steps}
	case recipe.GroupNutrition:
		var nut recipe.Nutrition
		if err := model.DecodeJSON(raw, &nut); err != nil {
			return core.Update{}, nil, fmt.Errorf("generate %s: %w", n.group, err)
		}
		clone.Nutrition = &nut
		ev = event.Event{Type: event.TypeNutrition, Content: clone.Nutrition}
	}

	return core.Update{Recipe: clone}, []event.Event{ev}, nil
}

var groupInstructions = map[recipe.FieldGroup]string{
	recipe.GroupMetadata: `Produce the recipe metadata as JSON:
{"name": "...", "description": "...", "difficulty": "easy|medium|hard", "duration_minutes": 0, "servings": 0, "tags": ["..."]}
Honor any servings count or time constraint from the request.`,
	recipe.GroupIngredients: `Produce the ingredient list as a JSON array:
[{"name": "...", "amount": 0, "unit": "..."}]
Stay consistent with the recipe metadata.`,
	recipe.GroupSteps: `Produce the ordered cooking steps as a JSON array:
[{"instruction": "...", "duration_minutes": 0}]
Refer to ingredients by the exact names in the ingredient list.`,
	recipe.GroupNutrition: `Produce per-serving nutrition facts as JSON:
{"calories": 0, "carbs": 0, "fats": 0, "proteins": 0}
Base the estimate on the ingredient list and servings.`,
}

// prompt includes the already-generated sibling groups so the new output
// stays consistent with them. Siblings are context only; this node never
// rewrites them.
func (n *genNode) prompt(st *core.TurnState) []*schema.Message {
	system := "You are a recipe writer. " + groupInstructions[n.group] + "\nRespond with JSON only."

	user := "Request: " + st.UserMessage
	if st.Recipe != nil {
		if ctx, err := sonic.MarshalString(st.Recipe); err == nil && ctx != "{}" {
			user += "\nCurrent recipe document (read-only context):\n" + ctx
		}
	}

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
}

// finalizeNode closes a completed assembly by recording the assistant's reply
// in the message log. The document events already carried the content, so
// this node emits nothing itself.
type finalizeNode struct{}

func (n *finalizeNode) ID() core.NodeID { return core.NodeFinalize }

func (n *finalizeNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	text := "Your recipe is ready."
	if st.Recipe != nil && st.Recipe.Metadata != nil && st.Recipe.Metadata.Name != "" {
		text = fmt.Sprintf("Your recipe %q is ready.", st.Recipe.Metadata.Name)
	}
	if st.AlreadyComplete {
		text = "The recipe is already up to date."
	}
	return core.Update{AppendMessages: []*schema.Message{schema.AssistantMessage(text, nil)}}, nil, nil
}

// suggestNode answers a suggestion request without touching the document.
type suggestNode struct {
	client model.Client
}

func (n *suggestNode) ID() core.NodeID { return core.NodeSuggest }

func (n *suggestNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	return answerText(ctx, n.client, st,
		"You are a cooking assistant. Offer two or three concrete recipe suggestions matching the request. Plain text, no JSON.")
}

// clarifyNode answers a clarifying question without touching the document.
type clarifyNode struct {
	client model.Client
}

func (n *clarifyNode) ID() core.NodeID { return core.NodeClarify }

func (n *clarifyNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	return answerText(ctx, n.client, st,
		"You are a cooking assistant. Answer the user's question about the recipe below. Plain text, no JSON.")
}

func answerText(ctx context.Context, client model.Client, st *core.TurnState, system string) (core.Update, []event.Event, error) {
	user := st.UserMessage
	if st.Recipe != nil {
		if doc, err := sonic.MarshalString(st.Recipe); err == nil && doc != "{}" {
			user += "\nCurrent recipe:\n" + doc
		}
	}

	raw, err := client.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return core.Update{}, nil, fmt.Errorf("answer request: %w", err)
	}

	upd := core.Update{AppendMessages: []*schema.Message{schema.AssistantMessage(raw, nil)}}
	return upd, []event.Event{event.Text(raw)}, nil
}
