package splitter

import (
	"math/rand"
	"strings"
)

const DefaultMaxLen = 300

// Split wraps text into lines of at most maxLen runes. More than three lines
// are regrouped into exactly two segments at a random boundary; otherwise
// each line is its own segment. Empty text yields no segments.
func Split(text string, maxLen int, rng *rand.Rand) []string {
	lines := Wrap(text, maxLen)
	if len(lines) <= 3 {
		return lines
	}
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	i := 1 + intn(len(lines)-1)
	return []string{
		strings.Join(lines[:i], "\n"),
		strings.Join(lines[i:], "\n"),
	}
}

// Wrap packs whitespace-separated words greedily into lines of at most maxLen
// runes. Runs of whitespace collapse to one space. Only words longer than
// maxLen are broken.
func Wrap(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	var (
		lines []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(w) <= maxLen {
			cur = append(cur, ' ')
			cur = append(cur, w...)
			continue
		}
		if len(w) <= maxLen {
			flush()
			cur = append(cur, w...)
			continue
		}
		// Fill the current line with the head of the long word, then
		// emit full-width pieces.
		if len(cur) > 0 {
			room := maxLen - len(cur) - 1
			if room > 0 {
				cur = append(cur, ' ')
				cur = append(cur, w[:room]...)
				w = w[room:]
			}
			flush()
		}
		for len(w) > maxLen {
			lines = append(lines, string(w[:maxLen]))
			w = w[maxLen:]
		}
		cur = append(cur, w...)
	}
	flush()
	return lines
}
