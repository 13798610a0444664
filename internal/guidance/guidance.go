// Package guidance implements the kitchen companion agent: it classifies the
// cook's message and routes to step navigation, question answering, timers,
// or recipe acquisition via the authoring agent.
package guidance

import (
	"context"

	"github.com/rs/zerolog"

	"souschef/internal/author"
	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/model"
)

// Agent drives the step-guidance graph.
type Agent struct {
	engine *core.Engine
	labels map[string]string
}

// New builds the guidance graph. delegate handles acquire-document sub-turns.
func New(client model.Client, delegate *author.Agent, log zerolog.Logger) *Agent {
	e := core.NewEngine(log)

	e.Add(&classifyNode{client: client, log: log}, routeClassify)
	e.Add(&acquireNode{delegate: delegate, log: log}, routeEnd)
	e.Add(&navigateNode{log: log}, routeEnd)
	e.Add(&questionNode{client: client}, routeEnd)
	e.Add(&timerNode{}, routeEnd)
	e.Add(&chatNode{client: client}, routeEnd)

	return &Agent{
		engine: e,
		labels: map[string]string{
			string(core.NodeAcquire):  "Getting your recipe ready...",
			string(core.NodeQuestion): "Thinking...",
			string(core.NodeChat):     "Thinking...",
		},
	}
}

// Run executes one guidance turn.
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
	case core.IntentAcquire:
		return core.NodeAcquire
	case core.IntentStart, core.IntentNext, core.IntentPrevious:
		return core.NodeNavigate
	case core.IntentAsk:
		return core.NodeQuestion
	case core.IntentTimer:
		return core.NodeTimer
	default:
		return core.NodeChat
	}
}
