package guidance

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"souschef/internal/core"
	"souschef/internal/event"
	"souschef/internal/model"
)

const classifyPrompt = `You are the intent classifier of a hands-free cooking companion.
Classify the cook's latest message into exactly one intent:
- "acquire_recipe": they want to load or create the recipe to cook
- "start": they want to begin cooking at the first step
- "next": they finished the current step or ask for the next one
  (messages like "done", "what's next", "ok finished" are "next")
- "previous": they want to go back one step
- "ask_question": they ask a question about the recipe or technique
- "set_timer": they ask for a timer; extract its label and duration in seconds
- "chat": anything else

Respond with JSON only:
{"intent": "...", "timer_label": "...", "timer_seconds": 0}`

type classification struct {
	Intent       string `json:"intent"`
	TimerLabel   string `json:"timer_label"`
	TimerSeconds int    `json:"timer_seconds"`
}

type classifyNode struct {
	client model.Client
	log    zerolog.Logger
}

func (n *classifyNode) ID() core.NodeID { return core.NodeClassify }

func (n *classifyNode) Run(ctx context.Context, st *core.TurnState) (core.Update, []event.Event, error) {
	msgs := []*schema.Message{schema.SystemMessage(classifyPrompt)}
	if len(st.Messages) > 0 {
		msgs = append(msgs, recentHistory(st.Messages, 6)...)
	}
	msgs = append(msgs, schema.UserMessage(st.UserMessage))

	raw, err := n.client.Generate(ctx, msgs)
	if err != nil {
		return core.Update{}, nil, fmt.Errorf("classify request: %w", err)
	}

	var c classification
	if err := model.DecodeJSON(raw, &c); err != nil {
		return core.Update{}, nil, fmt.Errorf("classify request: %w", err)
	}

	upd := core.Update{
		AppendMessages: []*schema.Message{schema.UserMessage(st.UserMessage)},
	}

	switch core.Intent(c.Intent) {
	case core.IntentAcquire, core.IntentStart, core.IntentNext, core.IntentPrevious, core.IntentAsk:
		upd.Intent = core.Intent(c.Intent)
	case core.IntentTimer:
		upd.Intent = core.IntentTimer
		upd.Timer = &core.TimerRequest{Label: c.TimerLabel, Seconds: c.TimerSeconds}
	default:
		upd.Intent = core.IntentChat
	}

	return upd, nil, nil
}

func recentHistory(messages []*schema.Message, max int) []*schema.Message {
	if len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}
