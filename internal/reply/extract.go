package reply

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Extractor pulls reply text out of a response document. It reports false
// when its shape is absent or blank so the next extractor can try.
type Extractor func(doc gjson.Result) (string, bool)

var defaultExtractors = []Extractor{
	pathExtractor("choices.0.message.content"),
	pathExtractor("choices.0.text"),
	errorExtractor,
}

// Extract runs the default extractors in order over raw.
func Extract(raw []byte) (string, bool) {
	return extractWith(defaultExtractors, gjson.ParseBytes(raw))
}

func extractWith(extractors []Extractor, doc gjson.Result) (string, bool) {
	for _, fn := range extractors {
		if text, ok := fn(doc); ok {
			return text, true
		}
	}
	return "", false
}

func pathExtractor(path string) Extractor {
	return func(doc gjson.Result) (string, bool) {
		return nonBlank(valueText(doc.Get(path)))
	}
}

func errorExtractor(doc gjson.Result) (string, bool) {
	errField := doc.Get("error")
	if !errField.Exists() || errField.Type == gjson.Null {
		return "", false
	}
	if errField.IsObject() {
		if msg, ok := nonBlank(errField.Get("message").String()); ok {
			return msg, true
		}
		return nonBlank(errField.Raw)
	}
	return nonBlank(valueText(errField))
}

// valueText renders a JSON value as reply text. Content part arrays
// ([{type:text,text:...}]) are joined.
func valueText(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.String()
	case v.IsArray():
		var parts []string
		for _, item := range v.Array() {
			if item.Type == gjson.String {
				parts = append(parts, item.String())
				continue
			}
			if text := item.Get("text"); text.Type == gjson.String {
				parts = append(parts, text.String())
			}
		}
		return strings.Join(parts, "")
	default:
		return v.Raw
	}
}

func nonBlank(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
