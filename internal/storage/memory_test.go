package storage

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souschef/internal/core"
	"souschef/internal/recipe"
)

func TestPutCreatesSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	mode := core.ModeAuthoring
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{Mode: &mode}))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, core.ModeAuthoring, sess.Mode)
	assert.NotZero(t, sess.CreatedAt)
}

func TestGroupPatchesBuildTheDocument(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// Group patches create the working document on first write and replace
	// one group at a time afterwards.
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		Metadata: &recipe.Metadata{Name: "Soup", Servings: 4},
	}))
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		Ingredients: []recipe.Ingredient{{Name: "carrots", Amount: 3}},
	}))
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		Steps: []recipe.Step{{Instruction: "Chop the carrots."}},
	}))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess.Recipe)
	assert.Equal(t, "Soup", sess.Recipe.Metadata.Name)
	assert.Len(t, sess.Recipe.Steps, 1)

	// The kitchen ingredient list follows the authored document.
	require.Len(t, sess.Ingredients, 1)
	assert.Equal(t, "carrots", sess.Ingredients[0].Name)

	// Regenerating one group leaves the others alone.
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		Metadata: &recipe.Metadata{Name: "Carrot Soup", Servings: 4},
	}))
	sess, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Carrot Soup", sess.Recipe.Metadata.Name)
	assert.Len(t, sess.Recipe.Ingredients, 1)
	assert.Len(t, sess.Recipe.Steps, 1)
}

func TestIngredientStatesDictMerge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		Ingredients: []recipe.Ingredient{{Name: "carrots"}, {Name: "onions"}},
	}))
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		IngredientStates: []recipe.IngredientState{
			{Name: "Carrots", Highlighted: true},
			{Name: "truffle", Used: true}, // unknown, ignored
		},
	}))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Ingredients, 2)
	assert.True(t, sess.Ingredients[0].Highlighted)
	assert.False(t, sess.Ingredients[1].Highlighted)
}

func TestCompletedStepsUnionAndMessageAppend(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		AddCompleted:   []int{0},
		AppendMessages: []*schema.Message{schema.UserMessage("done")},
	}))
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		AddCompleted:   []int{0, 1},
		AppendMessages: []*schema.Message{schema.AssistantMessage("Step 2 of 3", nil)},
	}))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sess.CompletedSteps)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "done", sess.Messages[0].Content)
}

func TestResetProgressClearsMarkers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	one := 1
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		CurrentStep:  &one,
		AddCompleted: []int{0},
	}))
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{ResetProgress: true}))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, sess.CurrentStep)
	assert.Empty(t, sess.CompletedSteps)
}

func TestKitchenFlagsStayOutOfTheDocument(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// A navigation turn persists the session list with usage flags set; the
	// authored document must not absorb them.
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{
		Ingredients: []recipe.Ingredient{
			{Name: "carrots", Used: true},
			{Name: "onions", Highlighted: true},
		},
	}))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)

	assert.True(t, sess.Ingredients[0].Used)
	assert.True(t, sess.Ingredients[1].Highlighted)

	require.NotNil(t, sess.Recipe)
	for _, ing := range sess.Recipe.Ingredients {
		assert.False(t, ing.Used)
		assert.False(t, ing.Highlighted)
	}
}

func TestRenameAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	name := "Tomato Pasta"
	require.NoError(t, s.Put(ctx, "s1", SessionPatch{Name: &name}))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, name, sess.Name)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}
