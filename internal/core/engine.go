package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"souschef/internal/event"
)

// Engine drives a graph of nodes over a shared turn state. Nodes within one
// execution run strictly sequentially; each node's merged update is a
// pre-condition for the routing decision that follows it. Cycles are allowed
// and must be bounded by the looping node itself.
type Engine struct {
	nodes  map[NodeID]Node
	routes map[NodeID]Router
	log    zerolog.Logger
}

// NewEngine creates an empty engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		nodes:  make(map[NodeID]Node),
		routes: make(map[NodeID]Router),
		log:    log,
	}
}

// Add registers a node together with its router.
func (e *Engine) Add(n Node, route Router) {
	e.nodes[n.ID()] = n
	e.routes[n.ID()] = route
}

// Execute runs the graph from entry until a router returns End, merging each
// node's partial update into st and forwarding its events synchronously before
// the next node starts. It returns the executed node path.
//
// A node error aborts the turn: one terminal error event is emitted and no
// further updates are merged. Fields already persisted by prior nodes' events
// are not rolled back.
func (e *Engine) Execute(ctx context.Context, entry NodeID, st *TurnState, em *event.Emitter) ([]NodeID, error) {
	started := time.Now()
	var path []NodeID

	cur := entry
	for cur != End {
		node, ok := e.nodes[cur]
		if !ok {
			return path, fmt.Errorf("unknown node: %s", cur)
		}
		path = append(path, cur)

		em.EnterNode(string(cur))
		upd, events, err := node.Run(ctx, st)
		if err != nil {
			e.log.Error().Str("node", string(cur)).Err(err).Msg("node failed")
			var te *event.TurnError
			if errors.As(err, &te) {
				em.Fail(te.Kind, te.Message)
			} else {
				em.Fail(event.KindNodeFailure, err.Error())
			}
			return path, fmt.Errorf("node %s: %w", cur, err)
		}

		st.Apply(upd)
		for _, ev := range events {
			em.Emit(ev)
		}

		route, ok := e.routes[cur]
		if !ok {
			return path, fmt.Errorf("no route registered for node: %s", cur)
		}
		cur = route(st)
	}

	e.log.Debug().
		Str("session", st.SessionID).
		Int("nodes", len(path)).
		Dur("elapsed", time.Since(started)).
		Msg("graph execution finished")

	return path, nil
}
