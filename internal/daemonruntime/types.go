package daemonruntime

import (
	"strings"
	"time"
)

type PassStatus string

const (
	PassRunning PassStatus = "running"
	PassDone    PassStatus = "done"
	PassFailed  PassStatus = "failed"
)

// PassSource says what started a pass.
type PassSource string

const (
	SourcePoll  PassSource = "poll"
	SourceEvent PassSource = "event"
)

// PassInfo summarizes one coordinator pass.
type PassInfo struct {
	ID         string     `json:"id"`
	Status     PassStatus `json:"status"`
	Source     PassSource `json:"source"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Channels   int        `json:"channels"`
	Seen       int        `json:"seen"`
	Triggered  int        `json:"triggered"`
	Answered   int        `json:"answered"`
	Declined   int        `json:"declined"`
	Skipped    int        `json:"skipped"`
	PostErrors int        `json:"post_errors"`
	Error      string     `json:"error,omitempty"`
}

func ParsePassStatus(raw string) (PassStatus, bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		return "", true
	case string(PassRunning):
		return PassRunning, true
	case string(PassDone):
		return PassDone, true
	case string(PassFailed):
		return PassFailed, true
	default:
		return "", false
	}
}
