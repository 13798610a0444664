package guidance

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/recipe"
)

// navigateNode handles start/next/previous moves over the recipe steps and
// derives the per-step ingredient highlight/used deltas.
//
// Index arithmetic: start -> 0; next from nil -> 0; next at the last index
// does not advance and instead synthesizes a completion message; previous
// from nil or 0 stays at 0. There is no separate "done" index value:
// completion is signalled while the index stays at the last valid step.
type navigateNode struct {
	log zerolog.Logger
}

func (n *navigateNode) ID() core.NodeID { return core.NodeNavigate }

func (n *navigateNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	if st.Recipe == nil || len(st.Recipe.Steps) == 0 {
		text := "There is no recipe loaded yet. Tell me what you want to cook first."
		return core.Update{
			AppendMessages: []*schema.Message{schema.AssistantMessage(text, nil)},
		}, []event.Event{event.Text(text)}, nil
	}

	steps := st.Recipe.Steps
	last := len(steps) - 1
	cur := st.CurrentStep

	if st.Intent == core.IntentNext && cur != nil && *cur >= last {
		return n.finishRecipe(st)
	}

	target := 0
	switch st.Intent {
	case core.IntentStart:
		target = 0
	case core.IntentNext:
		if cur != nil {
			target = *cur + 1
		}
	case core.IntentPrevious:
		if cur != nil && *cur > 0 {
			target = *cur - 1
		}
	}
	if target < 0 {
		target = 0
	}
	if target > last {
		target = last
	}

	upd := core.Update{CurrentStep: &target}
	// The previous index is completed only on a forward move, never on
	// backward or stationary ones.
	if cur != nil && target > *cur {
		upd.AddCompleted = []int{*cur}
	}

	deltas := stepDeltas(steps, target, st.Ingredients, n.log)
	if len(deltas) > 0 {
		upd.Ingredients = recipe.MergeIngredientStates(st.Ingredients, deltas)
	}

	text := fmt.Sprintf("Step %d of %d: %s", target+1, len(steps), steps[target].Instruction)
	upd.AppendMessages = []*schema.Message{schema.AssistantMessage(text, nil)}

	events := []event.Event{
		event.Text(text),
		{Type: event.TypeAgentState, Content: event.AgentStatePayload{CurrentStep: target, TotalSteps: len(steps)}},
	}
	if len(deltas) > 0 {
		events = append(events, event.Event{Type: event.TypeIngredients, Content: deltas})
	}
	return upd, events, nil
}

// finishRecipe handles "next" at the last step: the index stays put, all
// remaining ingredients are marked used and unhighlighted, and a completion
// message is synthesized.
func (n *navigateNode) finishRecipe(st *core.TurnState) (core.Update, []event.Event, error) {
	var deltas []recipe.IngredientState
	for _, ing := range st.Ingredients {
		if !ing.Used || ing.Highlighted {
			deltas = append(deltas, recipe.IngredientState{Name: ing.Name, Used: true, Highlighted: false})
		}
	}

	text := "That was the last step - you're done. Enjoy!"
	if st.Recipe.Metadata != nil && st.Recipe.Metadata.Name != "" {
		text = fmt.Sprintf("That was the last step - your %s is done. Enjoy!", st.Recipe.Metadata.Name)
	}

	upd := core.Update{
		AppendMessages: []*schema.Message{schema.AssistantMessage(text, nil)},
	}
	events := []event.Event{event.Text(text)}
	if len(deltas) > 0 {
		upd.Ingredients = recipe.MergeIngredientStates(st.Ingredients, deltas)
		events = append(events, event.Event{Type: event.TypeIngredients, Content: deltas})
	}
	return upd, events, nil
}

// stepDeltas derives ingredient state changes for a step. An ingredient is a
// highlight candidate only if named in the current step's instruction; it is
// a mark-used candidate only if its last occurrence across current and future
// steps is strictly before the current step, i.e. it will not reappear. The
// two sets are disjoint by construction; should a conflict ever arise, the
// highlight wins and the mark-used entry is dropped with a warning.
func stepDeltas(steps []recipe.Step, idx int, ingredients []recipe.Ingredient, log zerolog.Logger) []recipe.IngredientState {
	highlight := make(map[string]bool)
	used := make(map[string]bool)

	currentText := strings.ToLower(steps[idx].Instruction)
	for _, ing := range ingredients {
		name := strings.ToLower(ing.Name)
		if name == "" {
			continue
		}
		if strings.Contains(currentText, name) {
			highlight[name] = true
			continue
		}
		if !mentionedFrom(steps, idx, name) {
			used[name] = true
		}
	}

	for name := range used {
		if highlight[name] {
			log.Warn().Str("ingredient", name).Msg("ingredient proposed as both highlighted and used; keeping highlight")
			delete(used, name)
		}
	}

	var deltas []recipe.IngredientState
	for _, ing := range ingredients {
		name := strings.ToLower(ing.Name)
		next := recipe.IngredientState{
			Name:        ing.Name,
			Used:        ing.Used || used[name],
			Highlighted: highlight[name],
		}
		if next.Used != ing.Used || next.Highlighted != ing.Highlighted {
			deltas = append(deltas, next)
		}
	}
	return deltas
}

// mentionedFrom reports whether the ingredient name occurs in any step at or
// after idx.
func mentionedFrom(steps []recipe.Step, idx int, lowerName string) bool {
	for _, step := range steps[idx:] {
		if strings.Contains(strings.ToLower(step.Instruction), lowerName) {
			return true
		}
	}
	return false
}
