// Package agent wires graph agents to sessions. The registry is constructed
// once at startup and passed by reference to request handlers; there is no
// process-global agent cache.
package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/recipe"
	"souschef/internal/relay"
	"souschef/internal/storage"
)

// Agent is one conversational agent driving a graph over a turn state.
type Agent interface {
	Run(ctx context.Context, st *core.TurnState, em *event.Emitter) error
	Labels() map[string]string
}

// Registry maps session modes to agents and drives turns end to end: load
// session, execute the graph with events publishing to the relay, persist the
// turn's footprint.
type Registry struct {
	authoring Agent
	guidance  Agent
	store     storage.Store
	relay     *relay.Relay
	log       zerolog.Logger
}

// NewRegistry builds the registry.
func NewRegistry(authoring, guidance Agent, store storage.Store, rel *relay.Relay, log zerolog.Logger) *Registry {
	return &Registry{
		authoring: authoring,
		guidance:  guidance,
		store:     store,
		relay:     rel,
		log:       log,
	}
}

// ForMode returns the agent handling the given session mode.
func (r *Registry) ForMode(mode core.Mode) Agent {
	if mode == core.ModeAuthoring {
		return r.authoring
	}
	return r.guidance
}

// RunTurn executes one user turn. Events stream to the session's relay topic
// as nodes complete; once the execution finishes, the turn's accumulated
// changes are persisted back to the session. A failed turn persists nothing
// beyond what earlier nodes' events already dispatched.
func (r *Registry) RunTurn(ctx context.Context, sessionID, message string) error {
	sess, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	ag := r.ForMode(sess.Mode)
	st := stateFromSession(sess, message)
	em := event.NewEmitter(func(ev event.Event) {
		r.relay.Publish(ctx, sessionID, ev)
	}, ag.Labels(), r.log)

	if err := ag.Run(ctx, st, em); err != nil {
		// The engine already surfaced the terminal error event.
		return err
	}

	if patch, ok := patchFromChanges(st.Changes); ok {
		if err := r.store.Put(ctx, sessionID, patch); err != nil {
			r.log.Error().Str("session", sessionID).Err(err).Msg("turn persistence failed")
			em.Fail(event.KindPersistenceFailure, "failed to persist turn state")
			return nil
		}
	}

	em.Finish()
	return nil
}

func stateFromSession(sess *storage.Session, message string) *core.TurnState {
	var completed map[int]struct{}
	if len(sess.CompletedSteps) > 0 {
		completed = make(map[int]struct{}, len(sess.CompletedSteps))
		for _, idx := range sess.CompletedSteps {
			completed[idx] = struct{}{}
		}
	}

	return &core.TurnState{
		SessionID:      sess.ID,
		Mode:           sess.Mode,
		UserMessage:    message,
		Messages:       append([]*schema.Message(nil), sess.Messages...),
		Recipe:         sess.Recipe.Clone(),
		Ingredients:    append([]recipe.Ingredient(nil), sess.Ingredients...),
		CurrentStep:    sess.CurrentStep,
		CompletedSteps: completed,
	}
}

func patchFromChanges(c core.Changes) (storage.SessionPatch, bool) {
	patch := storage.SessionPatch{
		Recipe:         c.Recipe,
		Ingredients:    c.Ingredients,
		CurrentStep:    c.CurrentStep,
		AddCompleted:   c.AddCompleted,
		ResetProgress:  c.ResetProgress,
		AppendMessages: c.AppendMessages,
	}
	changed := c.Recipe != nil || c.Ingredients != nil || c.CurrentStep != nil ||
		c.ResetProgress || len(c.AddCompleted) > 0 || len(c.AppendMessages) > 0
	return patch, changed
}
