package quotecmd

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed quotes.yaml
var defaultQuotesYAML []byte

type quoteFile struct {
	Quotes []string `yaml:"quotes"`
}

// loadQuotes reads the embedded list, or path when given.
func loadQuotes(path string) ([]string, error) {
	raw := defaultQuotesYAML
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var f quoteFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse quotes: %w", err)
	}
	out := make([]string, 0, len(f.Quotes))
	for _, q := range f.Quotes {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out, nil
}

func pickQuote(rng *rand.Rand, quotes []string) string {
	if len(quotes) == 0 {
		return ""
	}
	if rng == nil {
		return quotes[rand.Intn(len(quotes))]
	}
	return quotes[rng.Intn(len(quotes))]
}
