package reaction

import (
	"context"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	fuzzyCutoff  = 0.7
	fuzzyMatches = 3
)

var (
	keywordTokenPattern = regexp.MustCompile(`[A-Za-z0-9_']{2,}`)
	keywordStripPattern = regexp.MustCompile(`[^a-z0-9_]+`)
)

type Options struct {
	Buckets    []Bucket
	Preferred  []string
	Vocabulary *Vocabulary
	Similarity Similarity
	// Seed drives symbol picks; zero seeds from the clock.
	Seed int64
}

// Selector picks a reaction symbol for a message: a keyword bucket first,
// then validated against the workspace vocabulary with fallbacks.
type Selector struct {
	buckets   []Bucket
	preferred []string
	vocab     *Vocabulary
	sim       Similarity

	mu   sync.Mutex
	rand *rand.Rand
}

func NewSelector(opts Options) *Selector {
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = DefaultBuckets()
	}
	preferred := opts.Preferred
	if len(preferred) == 0 {
		preferred = DefaultPreferred()
	}
	sim := opts.Similarity
	if sim == nil {
		sim = NewDiffRatio()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Selector{
		buckets:   buckets,
		preferred: preferred,
		vocab:     opts.Vocabulary,
		sim:       sim,
		rand:      rand.New(rand.NewSource(seed)),
	}
}

// Choose returns the symbol to react with. It always returns a name; when
// the vocabulary is unavailable the heuristic pick is returned unvalidated.
func (s *Selector) Choose(ctx context.Context, text, authorLabel string) string {
	if s == nil {
		return ""
	}
	return s.ChooseFrom(s.vocab.Snapshot(ctx), text, authorLabel)
}

// ChooseFrom is Choose against an explicit vocabulary snapshot.
func (s *Selector) ChooseFrom(vocab Snapshot, text, authorLabel string) string {
	chosen := s.heuristic(text)
	if vocab.Empty() || vocab.Has(chosen) {
		return chosen
	}
	for _, alt := range s.preferred {
		if vocab.Has(alt) {
			return alt
		}
	}
	if found := s.searchKeywords(keywordsFor(text, authorLabel), vocab); found != "" {
		return found
	}
	return vocab.Names()[0]
}

func (s *Selector) heuristic(text string) string {
	if text == "" {
		return s.pick(s.preferred)
	}
	lower := strings.ToLower(text)
	for _, b := range s.buckets {
		for _, kw := range b.Keywords {
			if strings.Contains(lower, kw) {
				return s.pick(b.Symbols)
			}
		}
	}
	return s.pick(s.preferred)
}

// searchKeywords tries each keyword, longest first: substring hits over the
// vocabulary, then fuzzy matches.
func (s *Selector) searchKeywords(keywords []string, vocab Snapshot) string {
	seen := make(map[string]struct{}, len(keywords))
	for _, raw := range keywords {
		k := keywordStripPattern.ReplaceAllString(strings.ToLower(raw), "")
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		var subs []string
		for _, name := range vocab.Names() {
			if strings.Contains(name, k) {
				subs = append(subs, name)
			}
		}
		if len(subs) > 0 {
			return s.pick(subs)
		}
		if close := CloseMatches(k, vocab.Names(), fuzzyMatches, fuzzyCutoff, s.sim); len(close) > 0 {
			return s.pick(close)
		}
	}
	return ""
}

func keywordsFor(text, authorLabel string) []string {
	var keywords []string
	if authorLabel != "" {
		keywords = append(keywords, authorLabel)
		keywords = append(keywords, strings.NewReplacer("<@", "", ">", "").Replace(authorLabel))
	}
	if text != "" {
		keywords = append(keywords, keywordTokenPattern.FindAllString(text, -1)...)
	}
	sort.SliceStable(keywords, func(i, j int) bool { return len(keywords[i]) > len(keywords[j]) })
	return keywords
}

func (s *Selector) pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return items[s.rand.Intn(len(items))]
}
