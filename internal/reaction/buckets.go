package reaction

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bucket maps a family of keywords to the symbols used when one of them
// appears in a message.
type Bucket struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Symbols  []string `yaml:"symbols"`
}

// Config is the YAML shape of a reactions override file.
type Config struct {
	Buckets   []Bucket `yaml:"buckets"`
	Preferred []string `yaml:"preferred"`
}

var defaultPreferred = []string{
	"loll", "slack-annoyance", "heavysob", "angry-dino", "shocked", "eyes-shaking",
	"dinowow", "_", "downvote", "upvote", "get-out", "kyle", "litreally-1984",
	"ultrafastparrot", "yay", "this", "tradeoffer", "3d-sad-emoji", "zach", "star",
	"mad_ping_sock", "x", "nooo", "haii", "hehehe", "ayo", "som-duck", "skulk",
	"yayayayayay", "wave-club-penguin",
}

var defaultBuckets = []Bucket{
	{
		Name:     "laugh",
		Keywords: []string{"lol", "lmao", "haha", "rofl", "funny", "hilarious", "hehe"},
		Symbols:  []string{"loll", "ultrafastparrot", "hehehe", "tradeoffer", "yay"},
	},
	{
		Name:     "positive",
		Keywords: []string{"thanks", "thank", "nice", "great", "awesome", "love", "ty"},
		Symbols:  []string{"yay", "star", "upvote", "wave-club-penguin"},
	},
	{
		Name:     "sad",
		Keywords: []string{"sorry", "sad", "unfortunate", "rip", "tragic"},
		Symbols:  []string{"heavysob", "3d-sad-emoji", "eyes-shaking"},
	},
	{
		Name:     "shock",
		Keywords: []string{"what?", "wtf", "wait", "shocked", "wow", "really?", "no way", "whoa"},
		Symbols:  []string{"shocked", "eyes-shaking", "dinowow"},
	},
	{
		Name:     "negative",
		Keywords: []string{"stfu", "shut up", "no", "hate", "annoying", "angry", "wrong"},
		Symbols:  []string{"angry-dino", "mad_ping_sock", "nooo", "get-out"},
	},
	{
		Name:     "meme",
		Keywords: []string{"trade", "deal", "offer", "meme", "parrot"},
		Symbols:  []string{"tradeoffer", "ultrafastparrot", "x"},
	},
}

func DefaultPreferred() []string {
	return append([]string(nil), defaultPreferred...)
}

func DefaultBuckets() []Bucket {
	out := make([]Bucket, 0, len(defaultBuckets))
	for _, b := range defaultBuckets {
		out = append(out, Bucket{
			Name:     b.Name,
			Keywords: append([]string(nil), b.Keywords...),
			Symbols:  append([]string(nil), b.Symbols...),
		})
	}
	return out
}

func DefaultConfig() Config {
	return Config{Buckets: DefaultBuckets(), Preferred: DefaultPreferred()}
}

// LoadConfigFile reads a YAML override. Sections left out of the file keep
// their defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read reactions file: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse reactions file %s: %w", path, err)
	}
	if len(file.Buckets) > 0 {
		buckets := make([]Bucket, 0, len(file.Buckets))
		for i, b := range file.Buckets {
			b.Keywords = lowerNonEmpty(b.Keywords)
			b.Symbols = trimNonEmpty(b.Symbols)
			if len(b.Keywords) == 0 || len(b.Symbols) == 0 {
				return cfg, fmt.Errorf("reactions file %s: bucket %d (%s) needs keywords and symbols", path, i, b.Name)
			}
			buckets = append(buckets, b)
		}
		cfg.Buckets = buckets
	}
	if preferred := trimNonEmpty(file.Preferred); len(preferred) > 0 {
		cfg.Preferred = preferred
	}
	return cfg, nil
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func lowerNonEmpty(items []string) []string {
	out := trimNonEmpty(items)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}
