package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"

	"souschef/internal/core"
	"souschef/internal/recipe"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Session is the durable per-session record. It is mutated only through
// Store.Put patches: by the turn driver's persistence hook and by the relay's
// side-effect dispatch, never directly by transport code.
type Session struct {
	ID             string              `json:"id"`
	Owner          string              `json:"owner,omitempty"`
	Name           string              `json:"name,omitempty"`
	Mode           core.Mode           `json:"mode"`
	Recipe         *recipe.Recipe      `json:"recipe,omitempty"`
	Ingredients    []recipe.Ingredient `json:"ingredients,omitempty"`
	CurrentStep    *int                `json:"current_step_index"`
	CompletedSteps []int               `json:"completed_steps,omitempty"`
	Messages       []*schema.Message   `json:"messages"`
	CreatedAt      int64               `json:"created_at"`
	UpdatedAt      int64               `json:"updated_at"`
}

// SessionPatch is a field-level upsert. Nil fields are untouched. List fields
// replace wholesale, except AppendMessages (appends), AddCompleted (set union)
// and IngredientStates (dict-merge by ingredient name).
type SessionPatch struct {
	Name             *string
	Mode             *core.Mode
	Recipe           *recipe.Recipe
	Metadata         *recipe.Metadata
	Ingredients      []recipe.Ingredient
	Steps            []recipe.Step
	Nutrition        *recipe.Nutrition
	IngredientStates []recipe.IngredientState
	CurrentStep      *int
	AddCompleted     []int
	// ResetProgress clears the step index and completed steps before the
	// patch's own CurrentStep/AddCompleted are applied.
	ResetProgress  bool
	AppendMessages []*schema.Message
}

func (p SessionPatch) empty() bool {
	return p.Name == nil && p.Mode == nil && p.Recipe == nil && p.Metadata == nil &&
		p.Ingredients == nil && p.Steps == nil && p.Nutrition == nil &&
		len(p.IngredientStates) == 0 && p.CurrentStep == nil && !p.ResetProgress &&
		len(p.AddCompleted) == 0 && len(p.AppendMessages) == 0
}

// apply merges a patch into the record. Group-level fields land inside the
// working document, creating it on first write.
func (s *Session) apply(p SessionPatch) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.Recipe != nil {
		s.Recipe = p.Recipe
	}
	if p.Metadata != nil || p.Ingredients != nil || p.Steps != nil || p.Nutrition != nil {
		if s.Recipe == nil {
			s.Recipe = &recipe.Recipe{}
		}
		if p.Metadata != nil {
			s.Recipe.Metadata = p.Metadata
		}
		if p.Ingredients != nil {
			// The authored document never carries kitchen usage flags; those
			// live on the session ingredient list only.
			s.Recipe.Ingredients = stripKitchenState(p.Ingredients)
			s.Ingredients = p.Ingredients
		}
		if p.Steps != nil {
			s.Recipe.Steps = p.Steps
		}
		if p.Nutrition != nil {
			s.Recipe.Nutrition = p.Nutrition
		}
	}
	if len(p.IngredientStates) > 0 {
		s.Ingredients = recipe.MergeIngredientStates(s.Ingredients, p.IngredientStates)
	}
	if p.ResetProgress {
		s.CurrentStep = nil
		s.CompletedSteps = nil
	}
	if p.CurrentStep != nil {
		s.CurrentStep = p.CurrentStep
	}
	for _, idx := range p.AddCompleted {
		if !containsInt(s.CompletedSteps, idx) {
			s.CompletedSteps = append(s.CompletedSteps, idx)
		}
	}
	if len(p.AppendMessages) > 0 {
		s.Messages = append(s.Messages, p.AppendMessages...)
	}
	s.UpdatedAt = time.Now().Unix()
}

// Store is the durable session collaborator. Put is a field-level upsert that
// creates the session when absent; writes are last-writer-wins at session
// granularity (no optimistic version check).
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, id string, patch SessionPatch) error
	Delete(ctx context.Context, id string) error
}

func stripKitchenState(list []recipe.Ingredient) []recipe.Ingredient {
	out := append([]recipe.Ingredient(nil), list...)
	for i := range out {
		out[i].Used = false
		out[i].Highlighted = false
	}
	return out
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func newSession(id string) *Session {
	now := time.Now().Unix()
	return &Session{
		ID:        id,
		Mode:      core.ModeGuidance,
		Messages:  []*schema.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
