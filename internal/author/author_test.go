package author

import (
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/recipe"

	"github.com/cloudwego/eino/schema"
)

// fakeClient returns scripted responses in call order.
type fakeClient struct {
	responses []string
	calls     int
}

func (f *fakeClient) Generate(_ context.Context, _ []*schema.Message) (string, error) {
	if f.calls >= len(f.responses) {
		return "", errors.New("no scripted response left")
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

const (
	metadataJSON    = `{"name":"Quick Tomato Pasta","description":"Weeknight pasta","difficulty":"easy","duration_minutes":20,"servings":2,"tags":["pasta"]}`
	ingredientsJSON = `[{"name":"spaghetti","amount":200,"unit":"g"},{"name":"tomatoes","amount":4,"unit":""}]`
	stepsJSON       = `[{"instruction":"Boil the spaghetti.","duration_minutes":10},{"instruction":"Simmer the tomatoes.","duration_minutes":8}]`
	nutritionJSON   = `{"calories":520,"carbs":90,"fats":10,"proteins":18}`
)

func runTurn(t *testing.T, ag *Agent, st *core.TurnState) ([]event.Event, error) {
	t.Helper()
	var events []event.Event
	em := event.NewEmitter(func(ev event.Event) { events = append(events, ev) }, ag.Labels(), zerolog.Nop())
	err := ag.Run(context.Background(), st, em)
	if err == nil {
		em.Finish()
	}
	return events, err
}

func eventTypes(events []event.Event) []event.Type {
	out := make([]event.Type, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestFullGenerationEmitsGroupsInOrder(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"intent":"new_recipe"}`,
		metadataJSON,
		ingredientsJSON,
		stepsJSON,
		nutritionJSON,
	}}
	ag := New(client, DefaultMaxCycles, zerolog.Nop())

	st := &core.TurnState{
		SessionID:   "s1",
		Mode:        core.ModeAuthoring,
		UserMessage: "make a quick tomato pasta for 2",
	}

	events, err := runTurn(t, ag, st)
	require.NoError(t, err)

	assert.Equal(t, []event.Type{
		event.TypeThinking, event.TypeMetadata,
		event.TypeThinking, event.TypeIngredients,
		event.TypeThinking, event.TypeSteps,
		event.TypeThinking, event.TypeNutrition,
		event.TypeComplete,
	}, eventTypes(events))

	md := events[1].Content.(*recipe.Metadata)
	assert.Equal(t, 2, md.Servings)

	require.True(t, st.Recipe.Complete())
	// User message and the closing assistant reply land in the log.
	require.Len(t, st.Changes.AppendMessages, 2)
	assert.Equal(t, "make a quick tomato pasta for 2", st.Changes.AppendMessages[0].Content)
}

func TestModificationRegeneratesOnlyClearedGroup(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"intent":"modify","clear_groups":["nutrition"]}`,
		`{"calories":700,"carbs":95,"fats":25,"proteins":20}`,
	}}
	ag := New(client, DefaultMaxCycles, zerolog.Nop())

	st := &core.TurnState{
		SessionID:   "s1",
		Mode:        core.ModeAuthoring,
		UserMessage: "add more olive oil",
		Recipe:      completeRecipe(t),
	}

	wantMeta, err := sonic.Marshal(st.Recipe.Metadata)
	require.NoError(t, err)
	wantIngredients, err := sonic.Marshal(st.Recipe.Ingredients)
	require.NoError(t, err)
	wantSteps, err := sonic.Marshal(st.Recipe.Steps)
	require.NoError(t, err)

	events, err := runTurn(t, ag, st)
	require.NoError(t, err)

	// Only the nutrition node runs: one thinking label, one group event.
	assert.Equal(t, []event.Type{
		event.TypeThinking, event.TypeNutrition, event.TypeComplete,
	}, eventTypes(events))
	assert.Equal(t, 2, client.calls)

	assert.Equal(t, 700.0, st.Recipe.Nutrition.Calories)

	// Untouched groups survive byte-identical.
	gotMeta, _ := sonic.Marshal(st.Recipe.Metadata)
	gotIngredients, _ := sonic.Marshal(st.Recipe.Ingredients)
	gotSteps, _ := sonic.Marshal(st.Recipe.Steps)
	assert.Equal(t, wantMeta, gotMeta)
	assert.Equal(t, wantIngredients, gotIngredients)
	assert.Equal(t, wantSteps, gotSteps)
}

func TestModificationWithoutInvalidationShortCircuits(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"intent":"modify","clear_groups":[]}`,
	}}
	ag := New(client, DefaultMaxCycles, zerolog.Nop())

	st := &core.TurnState{
		Mode:        core.ModeAuthoring,
		UserMessage: "looks good, keep it",
		Recipe:      completeRecipe(t),
	}

	events, err := runTurn(t, ag, st)
	require.NoError(t, err)

	// No generation, no content events, so no terminal complete either.
	assert.Empty(t, eventTypes(events))
	assert.Equal(t, 1, client.calls)
}

func TestGenerationStallSurfacesError(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"intent":"new_recipe"}`,
		`{}`, `[]`, `[]`, `{"calories":0,"carbs":0,"fats":0,"proteins":0}`,
	}}
	ag := New(client, 1, zerolog.Nop())

	st := &core.TurnState{
		Mode:        core.ModeAuthoring,
		UserMessage: "make something",
	}

	events, err := runTurn(t, ag, st)
	require.Error(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, event.TypeError, last.Type)
	assert.Equal(t, event.KindCompletenessStall, last.Content.(event.ErrorPayload).Kind)
	assert.NotContains(t, eventTypes(events), event.TypeComplete)
}

func TestSuggestionLeavesDocumentUntouched(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"intent":"suggest"}`,
		"How about a tomato pasta, a minestrone, or a shakshuka?",
	}}
	ag := New(client, DefaultMaxCycles, zerolog.Nop())

	st := &core.TurnState{
		Mode:        core.ModeAuthoring,
		UserMessage: "what could I cook with tomatoes?",
	}

	events, err := runTurn(t, ag, st)
	require.NoError(t, err)

	assert.Equal(t, []event.Type{
		event.TypeThinking, event.TypeText, event.TypeComplete,
	}, eventTypes(events))
	assert.Nil(t, st.Changes.Recipe)
}

func TestModelFailureAbortsTurn(t *testing.T) {
	client := &fakeClient{} // no responses scripted
	ag := New(client, DefaultMaxCycles, zerolog.Nop())

	st := &core.TurnState{Mode: core.ModeAuthoring, UserMessage: "make soup"}

	events, err := runTurn(t, ag, st)
	require.Error(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.KindNodeFailure, events[0].Content.(event.ErrorPayload).Kind)
}

func completeRecipe(t *testing.T) *recipe.Recipe {
	t.Helper()
	r := &recipe.Recipe{}
	require.NoError(t, sonic.UnmarshalString(metadataJSON, &r.Metadata))
	require.NoError(t, sonic.UnmarshalString(ingredientsJSON, &r.Ingredients))
	require.NoError(t, sonic.UnmarshalString(stepsJSON, &r.Steps))
	require.NoError(t, sonic.UnmarshalString(nutritionJSON, &r.Nutrition))
	require.True(t, r.Complete())
	return r
}
