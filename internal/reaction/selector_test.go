package reaction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestSelector() *Selector {
	return NewSelector(Options{Seed: 42})
}

func TestChooseBucketHit(t *testing.T) {
	t.Parallel()

	s := newTestSelector()
	vocab := StaticSnapshot("loll", "ultrafastparrot", "hehehe", "tradeoffer", "yay", "star")
	laugh := map[string]bool{"loll": true, "ultrafastparrot": true, "hehehe": true, "tradeoffer": true, "yay": true}
	for i := 0; i < 20; i++ {
		got := s.ChooseFrom(vocab, "LMAO greg you are useless", "")
		if !laugh[got] {
			t.Fatalf("ChooseFrom() = %q, want a laugh symbol", got)
		}
	}
}

func TestChooseFirstMatchingBucketWins(t *testing.T) {
	t.Parallel()

	s := NewSelector(Options{
		Seed: 1,
		Buckets: []Bucket{
			{Name: "a", Keywords: []string{"sorry"}, Symbols: []string{"first"}},
			{Name: "b", Keywords: []string{"lol"}, Symbols: []string{"second"}},
		},
	})
	got := s.ChooseFrom(StaticSnapshot("first", "second"), "lol sorry", "")
	if got != "first" {
		t.Fatalf("ChooseFrom() = %q, want %q", got, "first")
	}
}

func TestChooseFallsBackToPreferred(t *testing.T) {
	t.Parallel()

	s := NewSelector(Options{
		Seed:      7,
		Buckets:   []Bucket{{Name: "laugh", Keywords: []string{"lol"}, Symbols: []string{"missing"}}},
		Preferred: []string{"also-missing", "eyes", "zzz"},
	})
	got := s.ChooseFrom(StaticSnapshot("zzz", "eyes"), "lol", "")
	if got != "eyes" {
		t.Fatalf("ChooseFrom() = %q, want first valid preferred %q", got, "eyes")
	}
}

func TestChooseKeywordFallback(t *testing.T) {
	t.Parallel()

	s := NewSelector(Options{Seed: 3, Preferred: []string{"nothing-here"}})
	vocab := StaticSnapshot("aaa", "pizza-party", "zebra")
	for i := 0; i < 10; i++ {
		got := s.ChooseFrom(vocab, "i want pizza slave", "")
		if got != "pizza-party" {
			t.Fatalf("ChooseFrom() = %q, want %q", got, "pizza-party")
		}
	}
}

func TestChooseKeywordFallbackUsesAuthorLabel(t *testing.T) {
	t.Parallel()

	s := NewSelector(Options{Seed: 3, Preferred: []string{"nothing-here"}})
	vocab := StaticSnapshot("aaa", "u123-face")
	got := s.ChooseFrom(vocab, "", "<@U123>")
	if got != "u123-face" {
		t.Fatalf("ChooseFrom() = %q, want %q", got, "u123-face")
	}
}

func TestChooseFuzzyFallback(t *testing.T) {
	t.Parallel()

	s := NewSelector(Options{Seed: 5, Preferred: []string{"nothing-here"}})
	got := s.ChooseFrom(StaticSnapshot("aaa", "parrot"), "parot yes", "")
	if got != "parrot" {
		t.Fatalf("ChooseFrom() = %q, want fuzzy match %q", got, "parrot")
	}
}

func TestChooseArbitraryMember(t *testing.T) {
	t.Parallel()

	s := NewSelector(Options{Seed: 5, Preferred: []string{"nothing-here"}})
	got := s.ChooseFrom(StaticSnapshot("qqq", "bbb"), "", "")
	if got != "bbb" {
		t.Fatalf("ChooseFrom() = %q, want lexicographically first %q", got, "bbb")
	}
}

func TestChooseEmptyVocabularyReturnsHeuristic(t *testing.T) {
	t.Parallel()

	s := NewSelector(Options{
		Seed:    9,
		Buckets: []Bucket{{Name: "sad", Keywords: []string{"rip"}, Symbols: []string{"heavysob"}}},
	})
	if got := s.ChooseFrom(Snapshot{}, "rip my build", ""); got != "heavysob" {
		t.Fatalf("ChooseFrom() = %q, want %q", got, "heavysob")
	}
}

func TestVocabularyCachesForTTL(t *testing.T) {
	t.Parallel()

	calls := 0
	fail := false
	v := NewVocabulary(func(context.Context) ([]string, error) {
		calls++
		if fail {
			return nil, errors.New("emoji.list failed")
		}
		return []string{"yay", "star"}, nil
	}, time.Minute, nil)
	now := time.Unix(1700000000, 0)
	v.now = func() time.Time { return now }

	ctx := context.Background()
	if snap := v.Snapshot(ctx); !snap.Has("yay") {
		t.Fatalf("Snapshot() missing yay")
	}
	now = now.Add(30 * time.Second)
	v.Snapshot(ctx)
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1 within ttl", calls)
	}

	fail = true
	now = now.Add(time.Minute)
	if snap := v.Snapshot(ctx); !snap.Empty() {
		t.Fatalf("Snapshot() after failed refresh = %v, want empty", snap.Names())
	}
	if calls != 2 {
		t.Fatalf("loader calls = %d, want 2", calls)
	}

	// The failure is not cached: the very next call lists again.
	fail = false
	now = now.Add(time.Second)
	if snap := v.Snapshot(ctx); !snap.Has("star") {
		t.Fatalf("Snapshot() after recovery = %v, want star", snap.Names())
	}
	if calls != 3 {
		t.Fatalf("loader calls = %d, want 3 after retry", calls)
	}
	v.Snapshot(ctx)
	if calls != 3 {
		t.Fatalf("loader calls = %d, want recovered list cached", calls)
	}
}

func TestDiffRatio(t *testing.T) {
	t.Parallel()

	d := NewDiffRatio()
	if got := d.Ratio("parrot", "parrot"); got != 1 {
		t.Fatalf("Ratio(equal) = %v, want 1", got)
	}
	if got := d.Ratio("abc", "xyz"); got != 0 {
		t.Fatalf("Ratio(disjoint) = %v, want 0", got)
	}
	if got := d.Ratio("parot", "parrot"); got < 0.9 {
		t.Fatalf("Ratio(parot, parrot) = %v, want >= 0.9", got)
	}
}

func TestCloseMatchesOrdersByScore(t *testing.T) {
	t.Parallel()

	got := CloseMatches("parrot", []string{"carrot", "parrot", "xyz", "parrots"}, 2, 0.7, NewDiffRatio())
	if len(got) != 2 || got[0] != "parrot" {
		t.Fatalf("CloseMatches() = %v, want parrot first and two entries", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reactions.yaml")
	body := strings.Join([]string{
		"buckets:",
		"  - name: cheer",
		"    keywords: [GG, Nice]",
		"    symbols: [tada]",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if len(cfg.Buckets) != 1 || cfg.Buckets[0].Keywords[0] != "gg" {
		t.Fatalf("Buckets = %+v, want single lower-cased bucket", cfg.Buckets)
	}
	if len(cfg.Preferred) != len(DefaultPreferred()) {
		t.Fatalf("Preferred len = %d, want defaults", len(cfg.Preferred))
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("buckets:\n  - name: empty\n"), 0o600)
	if _, err := LoadConfigFile(bad); err == nil {
		t.Fatalf("LoadConfigFile(bucket without symbols) expected error")
	}
}
