package relay

import (
	"context"
	"strings"
)

// Message is a chat message as seen by the relay.
type Message struct {
	TS         string
	ChannelID  string
	UserID     string
	BotID      string
	SubType    string
	Text       string
	ThreadTS   string
	ReplyCount int
}

// Identity is the relay's own account on the platform.
type Identity struct {
	UserID string
	BotID  string
}

func (i Identity) Known() bool {
	return strings.TrimSpace(i.UserID) != "" || strings.TrimSpace(i.BotID) != ""
}

// Platform is the chat workspace the relay watches and answers in.
type Platform interface {
	ListChannels(ctx context.Context, limit int) ([]string, error)
	History(ctx context.Context, channelID string, limit int) ([]Message, error)
	Replies(ctx context.Context, channelID, threadTS string, limit int) ([]Message, error)
	PostMessage(ctx context.Context, channelID, threadTS, text string) error
	AddReaction(ctx context.Context, channelID, ts, name string) error
	UserLabel(ctx context.Context, userID string) string
}

// ReplyTarget is the thread a reply to m belongs in: its parent when m is a
// thread reply, otherwise m itself.
func ReplyTarget(m Message) string {
	if ts := strings.TrimSpace(m.ThreadTS); ts != "" {
		return ts
	}
	return m.TS
}

// IsThreadParent reports whether m starts a thread with replies.
func IsThreadParent(m Message) bool {
	if m.ReplyCount <= 0 {
		return false
	}
	return m.ThreadTS == "" || m.ThreadTS == m.TS
}
