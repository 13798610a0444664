package author

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/model"
	"souschef/internal/recipe"
)

const classifyPrompt = `You are the request classifier of a recipe-authoring assistant.
Classify the user's latest message into exactly one intent:
- "new_recipe": the user asks for a new recipe from scratch
- "modify": the user asks to change an existing recipe
- "suggest": the user asks for recipe ideas or suggestions
- "question": the user asks a clarifying question about the current recipe

For "modify", also list which parts of the recipe the change invalidates, as
"clear_groups" containing any of: metadata, ingredients, steps, nutrition.
A change of servings or title invalidates metadata and usually nutrition; an
ingredient swap invalidates ingredients, steps and nutrition.

Respond with JSON only:
{"intent": "...", "clear_groups": ["..."]}`

type classification struct {
	Intent      string   `json:"intent"`
	ClearGroups []string `json:"clear_groups"`
}

// classifyNode extracts the turn intent and, for modifications, the set of
// field groups to invalidate.
type classifyNode struct {
	client model.Client
	log    zerolog.Logger
}

func (n *classifyNode) ID() core.NodeID { return core.NodeClassify }

func (n *classifyNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	msgs := []*schema.Message{schema.SystemMessage(classifyPrompt)}
	msgs = append(msgs, recentHistory(st.Messages, 10)...)
	msgs = append(msgs, schema.UserMessage(st.UserMessage))

	raw, err := n.client.Generate(ctx, msgs)
	if err != nil {
		return core.Update{}, nil, fmt.Errorf("classify request: %w", err)
	}

	var c classification
	if err := model.DecodeJSON(raw, &c); err != nil {
		return core.Update{}, nil, fmt.Errorf("classify request: %w", err)
	}

	upd := core.Update{
		AppendMessages: []*schema.Message{schema.UserMessage(st.UserMessage)},
	}

	switch core.Intent(c.Intent) {
	case core.IntentModify:
		upd.Intent = core.IntentModify
		mod := &core.Modification{}
		for _, name := range c.ClearGroups {
			if g, ok := recipe.ParseGroup(name); ok {
				mod.Groups = append(mod.Groups, g)
			} else {
				n.log.Warn().Str("group", name).Msg("classifier named unknown field group")
			}
		}
		upd.Modification = mod
	case core.IntentSuggest:
		upd.Intent = core.IntentSuggest
	case core.IntentQuestion:
		upd.Intent = core.IntentQuestion
	default:
		// New recipe: start from an empty document so every group regenerates.
		upd.Intent = core.IntentNewRecipe
		upd.Recipe = &recipe.Recipe{}
	}

	return upd, nil, nil
}

// recentHistory returns the trailing window of the message log.
func recentHistory(messages []*schema.Message, max int) []*schema.Message {
	if len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}
