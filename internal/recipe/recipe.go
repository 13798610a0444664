package recipe

import "strings"

// FieldGroup identifies one of the four top-level sections of a recipe.
type FieldGroup string

const (
	GroupMetadata    FieldGroup = "metadata"
	GroupIngredients FieldGroup = "ingredients"
	GroupSteps       FieldGroup = "steps"
	GroupNutrition   FieldGroup = "nutrition"
)

// AllGroups lists the field groups in generation order.
var AllGroups = []FieldGroup{GroupMetadata, GroupIngredients, GroupSteps, GroupNutrition}

// ParseGroup maps a classifier-provided group name to a FieldGroup.
func ParseGroup(name string) (FieldGroup, bool) {
	switch FieldGroup(strings.ToLower(strings.TrimSpace(name))) {
	case GroupMetadata:
		return GroupMetadata, true
	case GroupIngredients:
		return GroupIngredients, true
	case GroupSteps:
		return GroupSteps, true
	case GroupNutrition:
		return GroupNutrition, true
	}
	return "", false
}

// Metadata holds the descriptive section of a recipe.
type Metadata struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Difficulty      string   `json:"difficulty"`
	DurationMinutes int      `json:"duration_minutes"`
	Servings        int      `json:"servings"`
	Tags            []string `json:"tags,omitempty"`
}

// Ingredient is one entry of the ingredient list. Used and Highlighted are
// kitchen-session state, not part of the authored document.
type Ingredient struct {
	Name        string  `json:"name"`
	Amount      float64 `json:"amount,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Used        bool    `json:"used"`
	Highlighted bool    `json:"highlighted"`
}

// Step is one ordered instruction of a recipe.
type Step struct {
	Instruction     string `json:"instruction"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Nutrition holds per-serving nutrition facts.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Proteins float64 `json:"proteins"`
}

// Recipe is the working document assembled across generation nodes.
// A group is present iff it is non-nil/non-empty.
type Recipe struct {
	Metadata    *Metadata    `json:"metadata,omitempty"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
	Steps       []Step       `json:"steps,omitempty"`
	Nutrition   *Nutrition   `json:"nutrition,omitempty"`
}

// HasGroup reports whether the given field group is present.
func (r *Recipe) HasGroup(g FieldGroup) bool {
	if r == nil {
		return false
	}
	switch g {
	case GroupMetadata:
		return r.Metadata != nil && r.Metadata.Name != ""
	case GroupIngredients:
		return len(r.Ingredients) > 0
	case GroupSteps:
		return len(r.Steps) > 0
	case GroupNutrition:
		return r.Nutrition != nil
	}
	return false
}

// Complete reports whether all four field groups are present.
func (r *Recipe) Complete() bool {
	for _, g := range AllGroups {
		if !r.HasGroup(g) {
			return false
		}
	}
	return true
}

// MissingGroups returns the absent field groups in generation order.
func (r *Recipe) MissingGroups() []FieldGroup {
	var missing []FieldGroup
	for _, g := range AllGroups {
		if !r.HasGroup(g) {
			missing = append(missing, g)
		}
	}
	return missing
}

// Clear nulls exactly the named groups, leaving the others untouched. This is
// what marks groups for regeneration during a modification turn.
func (r *Recipe) Clear(groups ...FieldGroup) {
	for _, g := range groups {
		switch g {
		case GroupMetadata:
			r.Metadata = nil
		case GroupIngredients:
			r.Ingredients = nil
		case GroupSteps:
			r.Steps = nil
		case GroupNutrition:
			r.Nutrition = nil
		}
	}
}

// Clone returns a deep copy of the recipe.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	out := &Recipe{}
	if r.Metadata != nil {
		md := *r.Metadata
		md.Tags = append([]string(nil), r.Metadata.Tags...)
		out.Metadata = &md
	}
	out.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	out.Steps = append([]Step(nil), r.Steps...)
	if r.Nutrition != nil {
		n := *r.Nutrition
		out.Nutrition = &n
	}
	return out
}

// IngredientState is a per-ingredient delta emitted during step navigation.
type IngredientState struct {
	Name        string `json:"name"`
	Used        bool   `json:"used"`
	Highlighted bool   `json:"highlighted"`
}

// MergeIngredientStates dict-merges deltas into the ingredient list by
// lowercased name. Unknown names are ignored; the authored list is the source
// of truth for membership.
func MergeIngredientStates(list []Ingredient, deltas []IngredientState) []Ingredient {
	if len(deltas) == 0 {
		return list
	}
	byName := make(map[string]IngredientState, len(deltas))
	for _, d := range deltas {
		byName[strings.ToLower(d.Name)] = d
	}
	out := append([]Ingredient(nil), list...)
	for i := range out {
		if d, ok := byName[strings.ToLower(out[i].Name)]; ok {
			out[i].Used = d.Used
			out[i].Highlighted = d.Highlighted
		}
	}
	return out
}
