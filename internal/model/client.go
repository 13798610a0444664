package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"
)

// Client is the slow external call a node wraps. Implementations may take
// multiple seconds; the engine blocks the current turn on them.
type Client interface {
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
}

// ChatClient adapts an eino chat model to the Client seam.
type ChatClient struct {
	cm model.BaseChatModel
}

// NewChatClient wraps a chat model.
func NewChatClient(cm model.BaseChatModel) *ChatClient {
	return &ChatClient{cm: cm}
}

// Generate runs one completion and returns its text content.
func (c *ChatClient) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	out, err := c.cm.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("model generate: %w", err)
	}
	return out.Content, nil
}

// DecodeJSON unmarshals model output into v, stripping markdown fences and
// attempting a jsonrepair pass when the raw output is malformed.
func DecodeJSON(raw string, v any) error {
	raw = stripFences(raw)
	if err := sonic.UnmarshalString(raw, v); err != nil {
		fixed, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return fmt.Errorf("unusable model output: %w", err)
		}
		if err := sonic.UnmarshalString(fixed, v); err != nil {
			return fmt.Errorf("unusable model output after repair: %w", err)
		}
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
