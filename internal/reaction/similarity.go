package reaction

import (
	"sort"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Similarity scores two strings in [0, 1].
type Similarity interface {
	Ratio(a, b string) float64
}

// DiffRatio scores 2*M/T, where M counts the runes in equal diff runs and T
// is the combined rune length.
type DiffRatio struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

func NewDiffRatio() *DiffRatio {
	return &DiffRatio{dmp: diffmatchpatch.New()}
}

func (d *DiffRatio) Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	if a == b {
		return 1
	}
	dmp := d.dmp
	if dmp == nil {
		dmp = diffmatchpatch.New()
	}
	matched := 0
	for _, diff := range dmp.DiffMain(a, b, false) {
		if diff.Type == diffmatchpatch.DiffEqual {
			matched += utf8.RuneCountInString(diff.Text)
		}
	}
	return 2 * float64(matched) / float64(total)
}

// CloseMatches returns up to n candidates scoring at least cutoff against
// word, best first. Ties keep candidate order.
func CloseMatches(word string, candidates []string, n int, cutoff float64, sim Similarity) []string {
	if n <= 0 || sim == nil {
		return nil
	}
	type scored struct {
		name  string
		score float64
	}
	hits := make([]scored, 0, n)
	for _, c := range candidates {
		if score := sim.Ratio(word, c); score >= cutoff {
			hits = append(hits, scored{name: c, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}
