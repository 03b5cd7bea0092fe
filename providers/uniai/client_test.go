package uniai

import (
	"testing"

	uniaiapi "github.com/quailyquaily/uniai"
	uniaichat "github.com/quailyquaily/uniai/chat"
)

func TestBuildChatOptionsReplaceMessages(t *testing.T) {
	req := Request{
		Messages: []Message{
			{Role: "user", Content: "new"},
		},
	}

	opts := append(
		[]uniaiapi.ChatOption{uniaiapi.WithMessages(uniaiapi.User("old"))},
		buildChatOptions(req, "")...,
	)

	built, err := uniaichat.BuildRequest(opts...)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if len(built.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(built.Messages))
	}
	if built.Messages[0].Content != "new" {
		t.Fatalf("expected replaced message content 'new', got %q", built.Messages[0].Content)
	}
}

func TestNormalizeOpenAIBase(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"https://ai.hackclub.com/proxy":     "https://ai.hackclub.com/proxy/v1",
		"https://ai.hackclub.com/proxy/v1/": "https://ai.hackclub.com/proxy/v1",
		"https://ai.hackclub.com/proxy/v1/chat/completions": "https://ai.hackclub.com/proxy/v1",
	}
	for in, want := range cases {
		if got := normalizeOpenAIBase(in); got != want {
			t.Fatalf("normalizeOpenAIBase(%q) = %q, want %q", in, got, want)
		}
	}
}
