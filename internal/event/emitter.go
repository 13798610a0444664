package event

import (
	"souschef/internal/recipe"

	"github.com/rs/zerolog"
)

// Sink receives emitted events in order. The emitter calls it synchronously
// from the executing turn; order equals node execution order.
type Sink func(Event)

// Emitter converts a turn's node outputs into the public event sequence:
// thinking labels before slow nodes, suppression of no-op content updates, and
// exactly one terminal complete event for turns that produced content.
type Emitter struct {
	sink     Sink
	labels   map[string]string
	content  int
	failed   bool
	finished bool
	log      zerolog.Logger
}

// NewEmitter builds an emitter. labels maps node names to the thinking label
// emitted before that node runs; nodes without a label emit no status event.
func NewEmitter(sink Sink, labels map[string]string, log zerolog.Logger) *Emitter {
	return &Emitter{sink: sink, labels: labels, log: log}
}

// EnterNode emits a thinking status event if the node is labelled slow.
func (e *Emitter) EnterNode(node string) {
	label, ok := e.labels[node]
	if !ok || e.finished {
		return
	}
	e.sink(Event{Type: TypeThinking, Content: ThinkingPayload{Label: label}})
}

// Emit forwards one event, dropping empty content payloads.
func (e *Emitter) Emit(ev Event) {
	if e.finished || emptyContent(ev) {
		return
	}
	if isContent(ev.Type) {
		e.content++
	}
	e.sink(ev)
}

// Fail surfaces a terminal error event and stops the stream. The turn emits
// nothing further, including complete.
func (e *Emitter) Fail(kind, message string) {
	if e.finished {
		return
	}
	e.failed = true
	e.finished = true
	e.log.Error().Str("kind", kind).Str("message", message).Msg("turn failed")
	e.sink(Event{Type: TypeError, Content: ErrorPayload{Kind: kind, Message: message}})
}

// Finish emits the terminal complete event iff the turn produced at least one
// content event. Silent turns end without a terminal marker.
func (e *Emitter) Finish() {
	if e.finished {
		return
	}
	e.finished = true
	if e.content > 0 {
		e.sink(Event{Type: TypeComplete})
	}
}

// ContentCount reports how many content events were emitted so far.
func (e *Emitter) ContentCount() int {
	return e.content
}

func isContent(t Type) bool {
	switch t {
	case TypeMetadata, TypeIngredients, TypeSteps, TypeNutrition, TypeText:
		return true
	}
	return false
}

func emptyContent(ev Event) bool {
	switch v := ev.Content.(type) {
	case nil:
		return ev.Type != TypeComplete
	case *recipe.Metadata:
		return v == nil || v.Name == ""
	case []recipe.Ingredient:
		return len(v) == 0
	case []recipe.Step:
		return len(v) == 0
	case *recipe.Nutrition:
		return v == nil
	case []recipe.IngredientState:
		return len(v) == 0
	case TextPayload:
		return v.Text == ""
	case SessionNamePayload:
		return v.Name == ""
	}
	return false
}
