package event

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souschef/internal/recipe"
)

func collect() (*[]Event, Sink) {
	events := &[]Event{}
	return events, func(ev Event) { *events = append(*events, ev) }
}

func types(events []Event) []Type {
	out := make([]Type, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestThinkingOnlyForLabelledNodes(t *testing.T) {
	events, sink := collect()
	em := NewEmitter(sink, map[string]string{"generate_steps": "Writing the steps"}, zerolog.Nop())

	em.EnterNode("classify")
	em.EnterNode("generate_steps")

	require.Len(t, *events, 1)
	assert.Equal(t, TypeThinking, (*events)[0].Type)
	assert.Equal(t, ThinkingPayload{Label: "Writing the steps"}, (*events)[0].Content)
}

func TestEmptyPayloadsAreSuppressed(t *testing.T) {
	events, sink := collect()
	em := NewEmitter(sink, nil, zerolog.Nop())

	em.Emit(Event{Type: TypeMetadata, Content: &recipe.Metadata{}})
	em.Emit(Event{Type: TypeIngredients, Content: []recipe.Ingredient{}})
	em.Emit(Event{Type: TypeSteps, Content: []recipe.Step(nil)})
	em.Emit(Event{Type: TypeNutrition, Content: (*recipe.Nutrition)(nil)})
	em.Emit(Text(""))

	assert.Empty(t, *events)
	assert.Zero(t, em.ContentCount())
}

func TestCompleteRequiresContent(t *testing.T) {
	events, sink := collect()
	em := NewEmitter(sink, nil, zerolog.Nop())

	// A turn that emitted nothing ends silently.
	em.Finish()
	assert.Empty(t, *events)

	events, sink = collect()
	em = NewEmitter(sink, nil, zerolog.Nop())
	em.Emit(Text("Here is your recipe."))
	em.Finish()
	em.Finish() // idempotent

	assert.Equal(t, []Type{TypeText, TypeComplete}, types(*events))
}

func TestFailSuppressesComplete(t *testing.T) {
	events, sink := collect()
	em := NewEmitter(sink, nil, zerolog.Nop())

	em.Emit(Event{Type: TypeSteps, Content: []recipe.Step{{Instruction: "Chop."}}})
	em.Fail(KindNodeFailure, "model call failed")
	em.Emit(Text("late"))
	em.Finish()

	require.Equal(t, []Type{TypeSteps, TypeError}, types(*events))
	payload, ok := (*events)[1].Content.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, KindNodeFailure, payload.Kind)
}
