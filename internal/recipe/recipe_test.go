package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRecipe() *Recipe {
	return &Recipe{
		Metadata: &Metadata{
			Name: "Quick Tomato Pasta", Description: "Weeknight pasta",
			Difficulty: "easy", DurationMinutes: 20, Servings: 2, Tags: []string{"pasta"},
		},
		Ingredients: []Ingredient{
			{Name: "spaghetti", Amount: 200, Unit: "g"},
			{Name: "tomatoes", Amount: 4},
		},
		Steps: []Step{
			{Instruction: "Boil the spaghetti.", DurationMinutes: 10},
			{Instruction: "Simmer the tomatoes.", DurationMinutes: 8},
		},
		Nutrition: &Nutrition{Calories: 520, Carbs: 90, Fats: 10, Proteins: 18},
	}
}

func TestCompleteness(t *testing.T) {
	var nilRecipe *Recipe
	assert.False(t, nilRecipe.Complete())
	assert.False(t, nilRecipe.HasGroup(GroupMetadata))

	r := fullRecipe()
	assert.True(t, r.Complete())
	assert.Empty(t, r.MissingGroups())

	r.Clear(GroupSteps)
	assert.False(t, r.Complete())
	assert.Equal(t, []FieldGroup{GroupSteps}, r.MissingGroups())

	// A metadata object without a name does not count as present.
	r = fullRecipe()
	r.Metadata = &Metadata{Servings: 2}
	assert.False(t, r.HasGroup(GroupMetadata))
}

func TestClearTouchesOnlyNamedGroups(t *testing.T) {
	r := fullRecipe()
	r.Clear(GroupNutrition, GroupMetadata)

	assert.Nil(t, r.Metadata)
	assert.Nil(t, r.Nutrition)
	assert.Len(t, r.Ingredients, 2)
	assert.Len(t, r.Steps, 2)
}

func TestCloneIsIndependent(t *testing.T) {
	r := fullRecipe()
	c := r.Clone()
	require.True(t, c.Complete())

	c.Clear(GroupIngredients)
	c.Metadata.Name = "changed"
	c.Steps[0].Instruction = "changed"

	assert.Equal(t, "Quick Tomato Pasta", r.Metadata.Name)
	assert.Len(t, r.Ingredients, 2)
	assert.Equal(t, "Boil the spaghetti.", r.Steps[0].Instruction)
}

func TestParseGroup(t *testing.T) {
	g, ok := ParseGroup(" Ingredients ")
	require.True(t, ok)
	assert.Equal(t, GroupIngredients, g)

	_, ok = ParseGroup("garnish")
	assert.False(t, ok)
}

func TestMergeIngredientStates(t *testing.T) {
	list := []Ingredient{
		{Name: "Spaghetti"},
		{Name: "tomatoes"},
		{Name: "basil"},
	}

	merged := MergeIngredientStates(list, []IngredientState{
		{Name: "spaghetti", Used: true},
		{Name: "Tomatoes", Highlighted: true},
		{Name: "saffron", Used: true}, // not in the list, ignored
	})

	assert.True(t, merged[0].Used)
	assert.False(t, merged[0].Highlighted)
	assert.True(t, merged[1].Highlighted)
	assert.False(t, merged[2].Used)

	// The input list is not mutated.
	assert.False(t, list[0].Used)
}
