package relay

import (
	"context"
	"fmt"
	"sync"
)

type sentPost struct {
	Channel  string
	ThreadTS string
	Text     string
}

type sentReaction struct {
	Channel string
	TS      string
	Name    string
}

// fakePlatform is an in-memory workspace. Posts land in the thread they
// target, authored by self, so the already-answered thread check sees them.
type fakePlatform struct {
	mu        sync.Mutex
	self      Identity
	channels  []string
	listErr   error
	history   map[string][]Message
	threads   map[string][]Message
	labels    map[string]string
	postErr   error
	posts     []sentPost
	reactions []sentReaction
	nextTS    int
}

func newFakePlatform(self Identity) *fakePlatform {
	return &fakePlatform{
		self:    self,
		history: map[string][]Message{},
		threads: map[string][]Message{},
		labels:  map[string]string{},
	}
}

func threadKey(channelID, ts string) string { return channelID + "/" + ts }

func (p *fakePlatform) addMessage(msg Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if msg.ThreadTS != "" && msg.ThreadTS != msg.TS {
		key := threadKey(msg.ChannelID, msg.ThreadTS)
		if len(p.threads[key]) == 0 {
			for i := range p.history[msg.ChannelID] {
				if p.history[msg.ChannelID][i].TS == msg.ThreadTS {
					p.threads[key] = append(p.threads[key], p.history[msg.ChannelID][i])
				}
			}
		}
		p.threads[key] = append(p.threads[key], msg)
		p.bumpReplyCount(msg.ChannelID, msg.ThreadTS)
		return
	}
	// History is returned newest first, as Slack does.
	p.history[msg.ChannelID] = append([]Message{msg}, p.history[msg.ChannelID]...)
}

func (p *fakePlatform) bumpReplyCount(channelID, ts string) {
	for i := range p.history[channelID] {
		if p.history[channelID][i].TS == ts {
			p.history[channelID][i].ReplyCount++
		}
	}
	key := threadKey(channelID, ts)
	if len(p.threads[key]) > 0 {
		p.threads[key][0].ReplyCount++
	}
}

func (p *fakePlatform) ListChannels(context.Context, int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]string(nil), p.channels...), nil
}

func (p *fakePlatform) History(_ context.Context, channelID string, limit int) ([]Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.history[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return append([]Message(nil), msgs...), nil
}

func (p *fakePlatform) Replies(_ context.Context, channelID, threadTS string, limit int) ([]Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.threads[threadKey(channelID, threadTS)]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return append([]Message(nil), msgs...), nil
}

func (p *fakePlatform) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.postErr != nil {
		err := p.postErr
		p.mu.Unlock()
		return err
	}
	p.posts = append(p.posts, sentPost{Channel: channelID, ThreadTS: threadTS, Text: text})
	p.nextTS++
	ts := fmt.Sprintf("1900000000.%06d", p.nextTS)
	p.mu.Unlock()

	p.addMessage(Message{
		TS:        ts,
		ChannelID: channelID,
		UserID:    p.self.UserID,
		BotID:     p.self.BotID,
		Text:      text,
		ThreadTS:  threadTS,
	})
	return nil
}

func (p *fakePlatform) AddReaction(_ context.Context, channelID, ts, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions = append(p.reactions, sentReaction{Channel: channelID, TS: ts, Name: name})
	return nil
}

func (p *fakePlatform) UserLabel(_ context.Context, userID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if label, ok := p.labels[userID]; ok {
		return label
	}
	return "<@" + userID + ">"
}

func (p *fakePlatform) sent() []sentPost {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentPost(nil), p.posts...)
}
