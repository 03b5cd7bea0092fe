package reply

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	ApologyFailure   = "Im broken inside lol :("
	ApologyNoContent = "Im broken inside lol :( Try again?"
)

type Options struct {
	Backend Backend
	// Persona replaces the default persona text.
	Persona     string
	AdminPrefix string
	Logger      *slog.Logger
	// OnFailure is called with "transport", "status", "invalid_json" or
	// "no_content" whenever an apology is returned.
	OnFailure func(kind string)
}

// Generator turns a triggering message into reply text. It never fails:
// every error path ends in a fixed apology string.
type Generator struct {
	backend     Backend
	persona     string
	adminPrefix string
	extractors  []Extractor
	logger      *slog.Logger
	onFailure   func(kind string)
}

func NewGenerator(opts Options) *Generator {
	persona := strings.TrimSpace(opts.Persona)
	if persona == "" {
		persona = DefaultPersona
	}
	adminPrefix := strings.TrimSpace(opts.AdminPrefix)
	if adminPrefix == "" {
		adminPrefix = DefaultAdminPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		backend:     opts.Backend,
		persona:     persona,
		adminPrefix: adminPrefix,
		extractors:  defaultExtractors,
		logger:      logger,
		onFailure:   opts.OnFailure,
	}
}

// Prompt renders the full prompt sent for text.
func (g *Generator) Prompt(text string, author Author) (string, error) {
	return renderPrompt(g.persona, g.adminPrefix, text, author)
}

func (g *Generator) Generate(ctx context.Context, text string, author Author) string {
	prompt, err := g.Prompt(text, author)
	if err != nil {
		g.logger.Error("reply_prompt_error", "error", err.Error())
		return g.fail("prompt")
	}
	if g.backend == nil {
		g.logger.Error("reply_backend_missing")
		return g.fail("transport")
	}

	raw, err := g.backend.Complete(ctx, prompt)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			g.logger.Warn("reply_status_error", "status", statusErr.StatusCode, "body", statusErr.Body)
			return g.fail("status")
		}
		g.logger.Warn("reply_transport_error", "error", err.Error())
		return g.fail("transport")
	}
	if !gjson.ValidBytes(raw) {
		g.logger.Warn("reply_invalid_json", "bytes", len(raw))
		return g.fail("invalid_json")
	}

	text, ok := extractWith(g.extractors, gjson.ParseBytes(raw))
	if !ok {
		g.logger.Warn("reply_no_content")
		if g.onFailure != nil {
			g.onFailure("no_content")
		}
		return ApologyNoContent
	}
	if normalized := normalizeReplyText(text); normalized != "" {
		return normalized
	}
	return text
}

func (g *Generator) fail(kind string) string {
	if g.onFailure != nil {
		g.onFailure(kind)
	}
	return ApologyFailure
}
