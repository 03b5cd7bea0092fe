package relaycmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/quailyquaily/greg/internal/handled"
	"github.com/quailyquaily/greg/internal/trigger"
)

func TestOverviewReportsNormalizedTriggers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := handled.NewFileStore(filepath.Join(t.TempDir(), "handled.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	tracker := handled.Open(ctx, store, handled.TrackerOptions{})
	tracker.MarkHandled(ctx, "1700000000.000100")

	cfg := relayConfig{
		AllowedChannels: []string{"C1"},
		Triggers:        []string{" Greg ", "greg", "Slack Annoyance"},
		PollInterval:    30 * time.Second,
		HandledBackend:  handled.BackendFile,
	}
	got, err := overviewFunc(cfg, trigger.New(cfg.Triggers), tracker)(ctx)
	if err != nil {
		t.Fatalf("overview error = %v", err)
	}
	if diff := cmp.Diff([]string{"greg", "slack annoyance"}, got["triggers"]); diff != "" {
		t.Fatalf("triggers mismatch (-want +got):\n%s", diff)
	}
	if got["handled_count"] != 1 || got["poll_interval"] != "30s" {
		t.Fatalf("overview = %+v", got)
	}
}
