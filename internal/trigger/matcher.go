// Package trigger decides whether a Slack message addresses the bot.
package trigger

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var leadingMentionPattern = regexp.MustCompile(`^<@[^>]+>[:\s]*`)

// Matcher holds the case-folded trigger phrases configured at startup.
type Matcher struct {
	phrases []string
}

func New(phrases []string) *Matcher {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, raw := range phrases {
		p := strings.ToLower(strings.TrimSpace(raw))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return &Matcher{phrases: out}
}

// Phrases returns a copy of the normalized trigger set.
func (m *Matcher) Phrases() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.phrases...)
}

// Matches reports whether the normalized text starts with or contains any
// trigger phrase. Empty text never matches.
func (m *Matcher) Matches(text string) bool {
	if m == nil || len(m.phrases) == 0 {
		return false
	}
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}
	for _, p := range m.phrases {
		if strings.HasPrefix(normalized, p) || strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// Normalize unescapes Slack entities, strips one leading <@mention> with an
// optional colon/space tail, then trims and case-folds.
func Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = leadingMentionPattern.ReplaceAllString(text, "")
	return strings.ToLower(strings.TrimSpace(text))
}
