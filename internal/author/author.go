// Package author implements the recipe-authoring agent: a graph execution
// that classifies the user's request and incrementally assembles the working
// recipe document, regenerating only the field groups that need work.
package author

import (
	"context"

	"github.com/rs/zerolog"

	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/model"
	"souschef/internal/recipe"
)

// DefaultMaxCycles bounds the generation loop. A pathological model that
// keeps returning empty groups surfaces a completeness stall instead of
// looping forever.
const DefaultMaxCycles = 3

// Agent drives the document-assembly graph.
type Agent struct {
	engine *core.Engine
	labels map[string]string
}

// New builds the authoring graph. All nodes and routes are fixed at
// construction; there is no per-session node state.
func New(client model.Client, maxCycles int, log zerolog.Logger) *Agent {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}

	e := core.NewEngine(log)

	e.Add(&classifyNode{client: client, log: log}, routeClassify)
	e.Add(&suggestNode{client: client}, routeEnd)
	e.Add(&clarifyNode{client: client}, routeEnd)
	e.Add(&markersNode{log: log}, func(*core.TurnState) core.NodeID { return core.NodeCheckComplete })
	e.Add(&checkNode{maxCycles: maxCycles}, routeCheck)
	e.Add(newGenNode(core.NodeGenMetadata, recipe.GroupMetadata, client), routeMissingAfter(1))
	e.Add(newGenNode(core.NodeGenIngredients, recipe.GroupIngredients, client), routeMissingAfter(2))
	e.Add(newGenNode(core.NodeGenSteps, recipe.GroupSteps, client), routeMissingAfter(3))
	e.Add(newGenNode(core.NodeGenNutrition, recipe.GroupNutrition, client), routeMissingAfter(4))
	e.Add(&finalizeNode{}, routeEnd)

	return &Agent{
		engine: e,
		labels: map[string]string{
			string(core.NodeGenMetadata):    "Drafting the recipe basics...",
			string(core.NodeGenIngredients): "Putting the ingredient list together...",
			string(core.NodeGenSteps):       "Writing the cooking steps...",
			string(core.NodeGenNutrition):   "Estimating nutrition facts...",
			string(core.NodeSuggest):        "Looking for ideas...",
			string(core.NodeClarify):        "Thinking...",
		},
	}
}

// Run executes one authoring turn.
func (a *Agent) Run(ctx context.Context, st *core.TurnState, em *event.Emitter) error {
	_, err := a.engine.Execute(ctx, core.NodeClassify, st, em)
	return err
}

// Labels returns the thinking labels for this agent's slow nodes.
func (a *Agent) Labels() map[string]string {
	return a.labels
}

func routeEnd(*core.TurnState) core.NodeID { return core.End }

func routeClassify(st *core.TurnState) core.NodeID {
	switch st.Intent {
	case core.IntentSuggest:
		return core.NodeSuggest
	case core.IntentQuestion:
		return core.NodeClarify
	case core.IntentModify:
		return core.NodeApplyMarkers
	default:
		return core.NodeCheckComplete
	}
}

func routeCheck(st *core.TurnState) core.NodeID {
	if st.AlreadyComplete || st.Recipe.Complete() {
		return core.NodeFinalize
	}
	return routeMissingAfter(0)(st)
}

// genSequence is the fixed generation order of the assembly loop.
var genSequence = []struct {
	id    core.NodeID
	group recipe.FieldGroup
}{
	{core.NodeGenMetadata, recipe.GroupMetadata},
	{core.NodeGenIngredients, recipe.GroupIngredients},
	{core.NodeGenSteps, recipe.GroupSteps},
	{core.NodeGenNutrition, recipe.GroupNutrition},
}

// routeMissingAfter routes to the next generation node whose field group is
// still empty, starting at position from. Present groups are skipped entirely,
// so a partial regeneration only visits the invalidated groups. A node that
// produced nothing routes past its own group; the retry happens on the next
// lap through check_complete.
func routeMissingAfter(from int) core.Router {
	return func(st *core.TurnState) core.NodeID {
		for _, g := range genSequence[from:] {
			if !st.Recipe.HasGroup(g.group) {
				return g.id
			}
		}
		return core.NodeCheckComplete
	}
}
