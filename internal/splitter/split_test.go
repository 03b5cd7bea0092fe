package splitter

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestSplitShortText(t *testing.T) {
	t.Parallel()

	got := Split("  oh   great,\n another  question ", 300, rand.New(rand.NewSource(1)))
	if diff := cmp.Diff([]string{"oh great, another question"}, got); diff != "" {
		t.Fatalf("Split() mismatch (-want +got):\n%s", diff)
	}
	if got := Split("   ", 300, nil); len(got) != 0 {
		t.Fatalf("Split(blank) = %v, want no segments", got)
	}
}

func TestSplitLongTextIntoTwoSegments(t *testing.T) {
	t.Parallel()

	words := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		words = append(words, "word")
	}
	text := strings.Join(words, " ") // 999 runes
	text += "s"

	for seed := int64(1); seed <= 20; seed++ {
		segments := Split(text, 300, rand.New(rand.NewSource(seed)))
		if len(segments) != 2 {
			t.Fatalf("seed %d: Split() returned %d segments, want 2", seed, len(segments))
		}
		for _, seg := range segments {
			for _, line := range strings.Split(seg, "\n") {
				if n := utf8.RuneCountInString(line); n > 300 {
					t.Fatalf("seed %d: line has %d runes, want <= 300", seed, n)
				}
			}
		}
		joined := strings.Join(segments, " ")
		if strings.Join(strings.Fields(joined), " ") != text {
			t.Fatalf("seed %d: content not preserved", seed)
		}
	}
}

func TestSplitThreeChunksStaySeparate(t *testing.T) {
	t.Parallel()

	got := Split("aaaa bbbb cccc", 4, rand.New(rand.NewSource(1)))
	if diff := cmp.Diff([]string{"aaaa", "bbbb", "cccc"}, got); diff != "" {
		t.Fatalf("Split() mismatch (-want +got):\n%s", diff)
	}
}

func TestWrapBreaksOnlyLongWords(t *testing.T) {
	t.Parallel()

	got := Wrap("ab cdefghij k", 4)
	want := []string{"ab c", "defg", "hij", "k"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Wrap() mismatch (-want +got):\n%s", diff)
	}

	got = Wrap("héllo wörld", 5)
	if diff := cmp.Diff([]string{"héllo", "wörld"}, got); diff != "" {
		t.Fatalf("Wrap(unicode) mismatch (-want +got):\n%s", diff)
	}
}

func TestWrapDefaultMaxLen(t *testing.T) {
	t.Parallel()

	got := Wrap(strings.Repeat("x", 301), 0)
	if len(got) != 2 || len(got[0]) != DefaultMaxLen {
		t.Fatalf("Wrap(maxLen=0) = %d lines, want 2 with default width", len(got))
	}
}
