package relay

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"souschef/internal/event"
	"souschef/internal/recipe"
	"souschef/internal/storage"
)

// Relay is the per-session fan-out between event production and delivery.
// Publishing an event first runs its persistence dispatch against the session
// store — which must complete whether or not a client is connected — and then
// forwards the event onto the bus best-effort. A publish with no live
// subscriber is a silent drop, not an error.
type Relay struct {
	bus   Bus
	store storage.Store
	log   zerolog.Logger
}

// New creates a relay over the given bus and store.
func New(bus Bus, store storage.Store, log zerolog.Logger) *Relay {
	return &Relay{bus: bus, store: store, log: log}
}

// Topic returns the bus topic for a session.
func Topic(sessionID string) string {
	return "session:" + sessionID + ":events"
}

// Publish persists the event's side effect and forwards it to the session
// topic. Persistence failures are logged and surfaced as an error event on the
// same topic; already-applied in-memory state is not rolled back.
func (r *Relay) Publish(ctx context.Context, sessionID string, ev event.Event) {
	if patch, ok := persistencePatch(ev); ok {
		if err := r.store.Put(ctx, sessionID, patch); err != nil {
			r.log.Error().Str("session", sessionID).Str("event", string(ev.Type)).
				Err(err).Msg("persistence dispatch failed")
			r.forward(ctx, sessionID, event.Event{
				Type: event.TypeError,
				Content: event.ErrorPayload{
					Kind:    event.KindPersistenceFailure,
					Message: fmt.Sprintf("failed to persist %s update", ev.Type),
				},
			})
		}
	}
	r.forward(ctx, sessionID, ev)
}

func (r *Relay) forward(ctx context.Context, sessionID string, ev event.Event) {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		r.log.Error().Str("session", sessionID).Err(err).Msg("marshal event")
		return
	}
	if err := r.bus.Publish(ctx, Topic(sessionID), payload); err != nil {
		r.log.Warn().Str("session", sessionID).Err(err).Msg("event forward dropped")
	}
}

// Subscribe opens a subscription to a session's event topic. The subscription
// is bound to ctx and must be closed when the consuming connection goes away.
func (r *Relay) Subscribe(ctx context.Context, sessionID string) (Subscription, error) {
	return r.bus.Subscribe(ctx, Topic(sessionID))
}

// persistencePatch maps an event onto the session patch it implies. The
// content's concrete type disambiguates the dispatch: authored field groups
// merge into the working document, kitchen ingredient-state deltas dict-merge
// into the session ingredient list, and session_name renames the session.
func persistencePatch(ev event.Event) (storage.SessionPatch, bool) {
	switch ev.Type {
	case event.TypeMetadata:
		if md, ok := ev.Content.(*recipe.Metadata); ok && md != nil {
			return storage.SessionPatch{Metadata: md}, true
		}
	case event.TypeIngredients:
		switch v := ev.Content.(type) {
		case []recipe.Ingredient:
			if len(v) > 0 {
				return storage.SessionPatch{Ingredients: v}, true
			}
		case []recipe.IngredientState:
			if len(v) > 0 {
				return storage.SessionPatch{IngredientStates: v}, true
			}
		}
	case event.TypeSteps:
		if steps, ok := ev.Content.([]recipe.Step); ok && len(steps) > 0 {
			return storage.SessionPatch{Steps: steps}, true
		}
	case event.TypeNutrition:
		if n, ok := ev.Content.(*recipe.Nutrition); ok && n != nil {
			return storage.SessionPatch{Nutrition: n}, true
		}
	case event.TypeSessionName:
		if p, ok := ev.Content.(event.SessionNamePayload); ok && p.Name != "" {
			name := p.Name
			return storage.SessionPatch{Name: &name}, true
		}
	}
	return storage.SessionPatch{}, false
}
