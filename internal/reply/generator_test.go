package reply

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quailyquaily/greg/providers/uniai"
)

type stubBackend struct {
	body   []byte
	err    error
	prompt string
}

func (b *stubBackend) Complete(_ context.Context, prompt string) ([]byte, error) {
	b.prompt = prompt
	return b.body, b.err
}

func TestGenerateExtractionOrder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"message content", `{"choices":[{"message":{"content":"oh great, you again"}}]}`, "oh great, you again"},
		{"legacy text", `{"choices":[{"text":"wow. riveting."}]}`, "wow. riveting."},
		{"blank content falls through", `{"choices":[{"message":{"content":"  "},"text":"fallback"}]}`, "fallback"},
		{"content parts", `{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`, "ab"},
		{"error string", `{"error":"rate limited"}`, "rate limited"},
		{"error object", `{"error":{"message":"quota exceeded","code":429}}`, "quota exceeded"},
		{"error object without message", `{"error":{"code":429}}`, `{"code":429}`},
		{"nothing usable", `{"id":"x","choices":[]}`, ApologyNoContent},
		{"json string literal", `{"choices":[{"message":{"content":"\"quoted\""}}]}`, "quoted"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := NewGenerator(Options{Backend: &stubBackend{body: []byte(tc.body)}})
			if got := g.Generate(context.Background(), "greg?", Author{}); got != tc.want {
				t.Fatalf("Generate() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerateFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		backend *stubBackend
		kind    string
	}{
		{"transport", &stubBackend{err: errors.New("connection refused")}, "transport"},
		{"status", &stubBackend{err: &StatusError{StatusCode: 500, Body: "boom"}}, "status"},
		{"invalid json", &stubBackend{body: []byte("<html>nope</html>")}, "invalid_json"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var kinds []string
			g := NewGenerator(Options{Backend: tc.backend, OnFailure: func(k string) { kinds = append(kinds, k) }})
			if got := g.Generate(context.Background(), "greg?", Author{}); got != ApologyFailure {
				t.Fatalf("Generate() = %q, want %q", got, ApologyFailure)
			}
			if len(kinds) != 1 || kinds[0] != tc.kind {
				t.Fatalf("failure kinds = %v, want [%s]", kinds, tc.kind)
			}
		})
	}
}

func TestPromptComposition(t *testing.T) {
	t.Parallel()

	g := NewGenerator(Options{})
	plain, err := g.Prompt("is this true", Author{})
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}
	if !strings.HasPrefix(plain, DefaultPersona) {
		t.Fatalf("Prompt() should start with persona, got %q", plain)
	}
	if strings.Contains(plain, "Address the user by name") {
		t.Fatalf("Prompt() without author should omit name instruction: %q", plain)
	}
	if !strings.HasSuffix(plain, "user message: is this true") {
		t.Fatalf("Prompt() should end with the user message, got %q", plain)
	}

	named, _ := g.Prompt("hi", Author{Label: "@alice"})
	if !strings.Contains(named, "include the name 'alice'") || strings.Contains(named, "'@alice'") {
		t.Fatalf("Prompt() name instruction = %q", named)
	}

	admin, _ := g.Prompt("hi", Author{Label: "creator", Admin: true})
	if !strings.HasPrefix(admin, DefaultAdminPrefix+" "+DefaultPersona) {
		t.Fatalf("Prompt() admin prefix missing: %q", admin)
	}
}

func TestHTTPBackend(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotPayload struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotPayload)
		if strings.Contains(gotPayload.Messages[0].Content, "explode") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal"}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"sure, whatever"}}]}`))
	}))
	defer srv.Close()

	backend := NewHTTPBackend(HTTPConfig{Endpoint: srv.URL, APIKey: "k-123"})
	g := NewGenerator(Options{Backend: backend})

	if got := g.Generate(context.Background(), "greg hi", Author{}); got != "sure, whatever" {
		t.Fatalf("Generate() = %q, want %q", got, "sure, whatever")
	}
	if gotAuth != "Bearer k-123" {
		t.Fatalf("Authorization = %q, want %q", gotAuth, "Bearer k-123")
	}
	if gotPayload.Model != DefaultModel || len(gotPayload.Messages) != 1 || gotPayload.Messages[0].Role != "user" {
		t.Fatalf("payload = %+v", gotPayload)
	}

	// A non-2xx answer is an apology even though the body carries an error field.
	if got := g.Generate(context.Background(), "explode", Author{}); got != ApologyFailure {
		t.Fatalf("Generate(500) = %q, want %q", got, ApologyFailure)
	}
}

type stubChat struct {
	text string
	err  error
	req  uniai.Request
}

func (c *stubChat) Chat(_ context.Context, req uniai.Request) (uniai.Result, error) {
	c.req = req
	return uniai.Result{Text: c.text}, c.err
}

func TestUniAIBackendShape(t *testing.T) {
	t.Parallel()

	chat := &stubChat{text: "line \"one\"\nline two"}
	g := NewGenerator(Options{Backend: NewUniAIBackend(chat, "gpt-x")})
	if got := g.Generate(context.Background(), "hey", Author{}); got != "line \"one\"\nline two" {
		t.Fatalf("Generate() = %q", got)
	}
	if chat.req.Model != "gpt-x" || len(chat.req.Messages) != 1 {
		t.Fatalf("request = %+v", chat.req)
	}

	failing := NewGenerator(Options{Backend: NewUniAIBackend(&stubChat{err: errors.New("down")}, "")})
	if got := failing.Generate(context.Background(), "hey", Author{}); got != ApologyFailure {
		t.Fatalf("Generate() = %q, want %q", got, ApologyFailure)
	}
}

func TestNormalizeReplyText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  plain  ":             "plain",
		`"wrapped"`:             "wrapped",
		`a\nb\nc`:               "a\nb\nc",
		`single \n stays as is`: `single \n stays as is`,
	}
	for in, want := range cases {
		if got := normalizeReplyText(in); got != want {
			t.Fatalf("normalizeReplyText(%q) = %q, want %q", in, got, want)
		}
	}
}
