package slackapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/quailyquaily/greg/internal/relay"
)

type fakeSlack struct {
	mu        sync.Mutex
	calls     map[string]int
	forms     map[string][]map[string]string
	responses map[string]string
}

func newFakeSlack(t *testing.T, responses map[string]string) (*fakeSlack, *Client) {
	t.Helper()
	f := &fakeSlack{
		calls:     map[string]int{},
		forms:     map[string][]map[string]string{},
		responses: responses,
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BotToken:  "xoxb-test",
		AppToken:  "xapp-test",
		BaseURL:   srv.URL,
		RateLimit: 1000,
		RateBurst: 1000,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f, c
}

func (f *fakeSlack) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.Form {
		form[k] = r.Form.Get(k)
	}
	f.mu.Lock()
	f.calls[method]++
	f.forms[method] = append(f.forms[method], form)
	body, ok := f.responses[method]
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_, _ = w.Write([]byte(`{"ok":false,"error":"unknown_method"}`))
		return
	}
	_, _ = w.Write([]byte(body))
}

func (f *fakeSlack) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSlack) lastForm(method string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	forms := f.forms[method]
	if len(forms) == 0 {
		return nil
	}
	return forms[len(forms)-1]
}

func TestNewRequiresBotToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}); err == nil {
		t.Fatalf("New() expected error for missing bot token")
	}
}

func TestIdentity(t *testing.T) {
	t.Parallel()
	_, c := newFakeSlack(t, map[string]string{
		"auth.test": `{"ok":true,"user_id":"UBOT","bot_id":"BBOT","team_id":"T1"}`,
	})
	got, err := c.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	want := relay.Identity{UserID: "UBOT", BotID: "BBOT"}
	if got != want {
		t.Fatalf("Identity() = %+v, want %+v", got, want)
	}
}

func TestListChannelsKeepsMemberships(t *testing.T) {
	t.Parallel()
	f, c := newFakeSlack(t, map[string]string{
		"conversations.list": `{"ok":true,"channels":[
			{"id":"C1","is_member":true},
			{"id":"C2","is_member":false},
			{"id":"C3","is_member":true}
		],"response_metadata":{"next_cursor":""}}`,
	})
	got, err := c.ListChannels(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListChannels() error = %v", err)
	}
	if diff := cmp.Diff([]string{"C1", "C3"}, got); diff != "" {
		t.Fatalf("ListChannels() mismatch (-want +got):\n%s", diff)
	}
	form := f.lastForm("conversations.list")
	if form["limit"] != "50" {
		t.Fatalf("limit = %q, want 50", form["limit"])
	}
	if form["exclude_archived"] != "true" {
		t.Fatalf("exclude_archived = %q, want true", form["exclude_archived"])
	}
}

func TestHistoryMapsMessages(t *testing.T) {
	t.Parallel()
	_, c := newFakeSlack(t, map[string]string{
		"conversations.history": `{"ok":true,"messages":[
			{"type":"message","ts":"1700000002.000200","user":"U2","text":"later","thread_ts":"1700000002.000200","reply_count":3},
			{"type":"message","ts":"1700000001.000100","bot_id":"B9","subtype":"bot_message","text":"beep"}
		]}`,
	})
	got, err := c.History(context.Background(), "C1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := []relay.Message{
		{TS: "1700000002.000200", ChannelID: "C1", UserID: "U2", Text: "later", ThreadTS: "1700000002.000200", ReplyCount: 3},
		{TS: "1700000001.000100", ChannelID: "C1", BotID: "B9", SubType: "bot_message", Text: "beep"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("History() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepliesPassesThreadTS(t *testing.T) {
	t.Parallel()
	f, c := newFakeSlack(t, map[string]string{
		"conversations.replies": `{"ok":true,"has_more":false,"messages":[
			{"type":"message","ts":"1.000001","user":"U1","text":"parent"},
			{"type":"message","ts":"1.000002","user":"UBOT","text":"answer","thread_ts":"1.000001"}
		]}`,
	})
	got, err := c.Replies(context.Background(), "C1", "1.000001", 200)
	if err != nil {
		t.Fatalf("Replies() error = %v", err)
	}
	if len(got) != 2 || got[1].UserID != "UBOT" {
		t.Fatalf("Replies() = %+v", got)
	}
	if ts := f.lastForm("conversations.replies")["ts"]; ts != "1.000001" {
		t.Fatalf("ts = %q, want 1.000001", ts)
	}
}

func TestPostMessageThreaded(t *testing.T) {
	t.Parallel()
	f, c := newFakeSlack(t, map[string]string{
		"chat.postMessage": `{"ok":true,"channel":"C1","ts":"2.000001"}`,
	})
	if err := c.PostMessage(context.Background(), "C1", "1.000001", "hello there"); err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}
	form := f.lastForm("chat.postMessage")
	if form["channel"] != "C1" || form["thread_ts"] != "1.000001" || form["text"] != "hello there" {
		t.Fatalf("postMessage form = %+v", form)
	}
	if err := c.PostMessage(context.Background(), "C1", "", "  "); err == nil {
		t.Fatalf("PostMessage() expected error for blank text")
	}
	if got := f.count("chat.postMessage"); got != 1 {
		t.Fatalf("postMessage calls = %d, want 1", got)
	}
}

func TestPostMessageSurfacesSlackError(t *testing.T) {
	t.Parallel()
	_, c := newFakeSlack(t, map[string]string{
		"chat.postMessage": `{"ok":false,"error":"not_in_channel"}`,
	})
	err := c.PostMessage(context.Background(), "C1", "", "hi")
	if err == nil || !strings.Contains(err.Error(), "not_in_channel") {
		t.Fatalf("PostMessage() error = %v, want not_in_channel", err)
	}
}

func TestAddReactionAlreadyReactedIsSuccess(t *testing.T) {
	t.Parallel()
	f, c := newFakeSlack(t, map[string]string{
		"reactions.add": `{"ok":false,"error":"already_reacted"}`,
	})
	if err := c.AddReaction(context.Background(), "C1", "1.000001", ":joy:"); err != nil {
		t.Fatalf("AddReaction() error = %v", err)
	}
	if name := f.lastForm("reactions.add")["name"]; name != "joy" {
		t.Fatalf("name = %q, want joy", name)
	}
}

func TestListEmojiSorted(t *testing.T) {
	t.Parallel()
	_, c := newFakeSlack(t, map[string]string{
		"emoji.list": `{"ok":true,"emoji":{"yay":"https://e/yay.png","blobsad":"https://e/b.png","alias_yay":"alias:yay"}}`,
	})
	got, err := c.ListEmoji(context.Background())
	if err != nil {
		t.Fatalf("ListEmoji() error = %v", err)
	}
	if diff := cmp.Diff([]string{"alias_yay", "blobsad", "yay"}, got); diff != "" {
		t.Fatalf("ListEmoji() mismatch (-want +got):\n%s", diff)
	}
}

func TestUserLabelFallbacksAndCache(t *testing.T) {
	t.Parallel()
	f, c := newFakeSlack(t, map[string]string{
		"users.info": `{"ok":true,"user":{"id":"U1","name":"handle","real_name":"Real Name","profile":{"display_name":"","real_name":"Real Name"}}}`,
	})
	ctx := context.Background()
	if got := c.UserLabel(ctx, "U1"); got != "Real Name" {
		t.Fatalf("UserLabel() = %q, want Real Name", got)
	}
	if got := c.UserLabel(ctx, "U1"); got != "Real Name" {
		t.Fatalf("UserLabel() cached = %q, want Real Name", got)
	}
	if got := f.count("users.info"); got != 1 {
		t.Fatalf("users.info calls = %d, want 1", got)
	}
}

func TestUserLabelErrorFallsBackToMention(t *testing.T) {
	t.Parallel()
	f, c := newFakeSlack(t, map[string]string{
		"users.info": `{"ok":false,"error":"user_not_found"}`,
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if got := c.UserLabel(ctx, "U404"); got != "<@U404>" {
			t.Fatalf("UserLabel() = %q, want <@U404>", got)
		}
	}
	if got := f.count("users.info"); got != 2 {
		t.Fatalf("users.info calls = %d, want 2 (errors are not cached)", got)
	}
}

func TestParseMessageEvent(t *testing.T) {
	t.Parallel()
	event := func(v map[string]any) socketEnvelope {
		ev, _ := json.Marshal(v)
		payload, _ := json.Marshal(map[string]any{"team_id": "T1", "event": json.RawMessage(ev)})
		return socketEnvelope{EnvelopeID: "e1", Type: "events_api", Payload: payload}
	}

	cases := []struct {
		name   string
		env    socketEnvelope
		wantOK bool
		want   relay.Message
	}{
		{
			name:   "message",
			env:    event(map[string]any{"type": "message", "channel": "C1", "ts": "1.1", "user": "U1", "text": "hi", "thread_ts": "1.0"}),
			wantOK: true,
			want:   relay.Message{TS: "1.1", ChannelID: "C1", UserID: "U1", Text: "hi", ThreadTS: "1.0"},
		},
		{
			name:   "bot message kept for coordinator",
			env:    event(map[string]any{"type": "message", "channel": "C1", "ts": "1.2", "bot_id": "B1", "subtype": "bot_message", "text": "x"}),
			wantOK: true,
			want:   relay.Message{TS: "1.2", ChannelID: "C1", BotID: "B1", SubType: "bot_message", Text: "x"},
		},
		{
			name: "app mention ignored",
			env:  event(map[string]any{"type": "app_mention", "channel": "C1", "ts": "1.3", "user": "U1", "text": "hi"}),
		},
		{
			name: "missing ts",
			env:  event(map[string]any{"type": "message", "channel": "C1", "user": "U1", "text": "hi"}),
		},
		{
			name: "hello envelope",
			env:  socketEnvelope{Type: "hello"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := parseMessageEvent(tc.env)
			if err != nil {
				t.Fatalf("parseMessageEvent() error = %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
