package reply

import (
	"context"

	"github.com/quailyquaily/greg/providers/uniai"
	"github.com/tidwall/sjson"
)

type chatClient interface {
	Chat(ctx context.Context, req uniai.Request) (uniai.Result, error)
}

// UniAIBackend routes prompts through a uniai provider and reshapes the
// answer into a chat-completion document, so extraction is the same for
// every backend.
type UniAIBackend struct {
	client chatClient
	model  string
}

func NewUniAIBackend(client chatClient, model string) *UniAIBackend {
	return &UniAIBackend{client: client, model: model}
}

func (b *UniAIBackend) Complete(ctx context.Context, prompt string) ([]byte, error) {
	res, err := b.client.Chat(ctx, uniai.Request{
		Model:    b.model,
		Messages: []uniai.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	doc := []byte(`{"object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant"}}]}`)
	if b.model != "" {
		if doc, err = sjson.SetBytes(doc, "model", b.model); err != nil {
			return nil, err
		}
	}
	return sjson.SetBytes(doc, "choices.0.message.content", res.Text)
}
