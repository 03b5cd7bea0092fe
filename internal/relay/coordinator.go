package relay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quailyquaily/greg/internal/daemonruntime"
	"github.com/quailyquaily/greg/internal/handled"
	"github.com/quailyquaily/greg/internal/metrics"
	"github.com/quailyquaily/greg/internal/reply"
	"github.com/quailyquaily/greg/internal/splitter"
	"github.com/quailyquaily/greg/internal/trigger"
)

const (
	DefaultHistoryLimit     = 10
	DefaultRepliesLimit     = 200
	DefaultChannelListLimit = 200

	DefaultBannedNotice   = "You are banned. Please message an owner if you think this is a mistake."
	DefaultRedirectFormat = "You gotta be in %s to talk to me ay"

	logTextPreviewChars = 120
)

type Generator interface {
	Generate(ctx context.Context, text string, author reply.Author) string
}

type ReactionChooser interface {
	Choose(ctx context.Context, text, authorLabel string) string
}

type Config struct {
	AllowedChannels  []string
	BannedUsers      []string
	AdminUsers       []string
	HistoryLimit     int
	RepliesLimit     int
	ChannelListLimit int
	MaxSegmentChars  int
	BannedNotice     string
	// RedirectNotice is posted when a trigger appears outside the allowed
	// channels. Empty declines silently.
	RedirectNotice string
	Self           Identity
}

type Deps struct {
	Platform  Platform
	Tracker   *handled.Tracker
	Matcher   *trigger.Matcher
	Generator Generator
	Reactions ReactionChooser
	Passes    *daemonruntime.PassLog
	Metrics   *metrics.Relay
	Logger    *slog.Logger
	Rand      *rand.Rand
}

// Outcome is what the relay did with one message.
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDeclined Outcome = "declined"
	OutcomeAnswered Outcome = "answered"
	// OutcomeInterrupted leaves the message unmarked: the context ended
	// before the answer went out, so the next run picks it up again.
	OutcomeInterrupted Outcome = "interrupted"
)

// Coordinator runs the scan pipeline. Passes and pushed events are
// serialized by one mutex, so the handled set is only touched by one
// pipeline step at a time.
type Coordinator struct {
	mu sync.Mutex

	cfg       Config
	platform  Platform
	tracker   *handled.Tracker
	matcher   *trigger.Matcher
	generator Generator
	reactions ReactionChooser
	passes    *daemonruntime.PassLog
	metrics   *metrics.Relay
	logger    *slog.Logger
	rng       *rand.Rand

	allowed map[string]bool
	banned  map[string]bool
	admins  map[string]bool
}

func NewCoordinator(cfg Config, deps Deps) (*Coordinator, error) {
	if deps.Platform == nil {
		return nil, fmt.Errorf("relay: missing platform")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("relay: missing handled tracker")
	}
	if deps.Matcher == nil {
		return nil, fmt.Errorf("relay: missing trigger matcher")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("relay: missing reply generator")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.RepliesLimit <= 0 {
		cfg.RepliesLimit = DefaultRepliesLimit
	}
	if cfg.ChannelListLimit <= 0 {
		cfg.ChannelListLimit = DefaultChannelListLimit
	}
	if cfg.MaxSegmentChars <= 0 {
		cfg.MaxSegmentChars = splitter.DefaultMaxLen
	}
	if strings.TrimSpace(cfg.BannedNotice) == "" {
		cfg.BannedNotice = DefaultBannedNotice
	}
	cfg.AllowedChannels = uniqueTrimmed(cfg.AllowedChannels)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Coordinator{
		cfg:       cfg,
		platform:  deps.Platform,
		tracker:   deps.Tracker,
		matcher:   deps.Matcher,
		generator: deps.Generator,
		reactions: deps.Reactions,
		passes:    deps.Passes,
		metrics:   deps.Metrics,
		logger:    logger,
		rng:       rng,
		allowed:   toAllowlist(cfg.AllowedChannels),
		banned:    toUserSet(cfg.BannedUsers),
		admins:    toUserSet(cfg.AdminUsers),
	}, nil
}

type passStats struct {
	channels   int
	seen       int
	triggered  int
	answered   int
	declined   int
	skipped    int
	postErrors int
}

func (s *passStats) count(o Outcome) {
	switch o {
	case OutcomeAnswered:
		s.answered++
	case OutcomeDeclined:
		s.declined++
	case OutcomeSkipped:
		s.skipped++
	}
}

// RunPass scans every visible channel once, oldest message first, and then
// the threads hanging off each scanned message.
func (c *Coordinator) RunPass(ctx context.Context) daemonruntime.PassInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := c.beginPass(uuid.NewString(), daemonruntime.SourcePoll)
	stats := &passStats{}

	channels := c.channels(ctx)
	for _, channelID := range channels {
		if ctx.Err() != nil {
			break
		}
		stats.channels++
		c.scanChannel(ctx, channelID, stats)
	}
	return c.finishPass(ctx, info, stats)
}

// HandleEvent runs the pipeline for one pushed message.
func (c *Coordinator) HandleEvent(ctx context.Context, msg Message) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := c.beginPass(daemonruntime.BuildPassID("event", msg.ChannelID, msg.TS), daemonruntime.SourceEvent)
	stats := &passStats{channels: 1, seen: 1}
	outcome := c.process(ctx, msg, ReplyTarget(msg), stats)
	stats.count(outcome)
	c.finishPass(ctx, info, stats)
	return outcome
}

func (c *Coordinator) beginPass(id string, source daemonruntime.PassSource) daemonruntime.PassInfo {
	info := daemonruntime.PassInfo{
		ID:        id,
		Status:    daemonruntime.PassRunning,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	c.passes.Begin(info)
	return info
}

func (c *Coordinator) finishPass(ctx context.Context, info daemonruntime.PassInfo, stats *passStats) daemonruntime.PassInfo {
	finished := time.Now().UTC()
	complete := func(p *daemonruntime.PassInfo) {
		p.FinishedAt = &finished
		p.Status = daemonruntime.PassDone
		if err := ctx.Err(); err != nil {
			p.Status = daemonruntime.PassFailed
			p.Error = err.Error()
		}
		p.Channels = stats.channels
		p.Seen = stats.seen
		p.Triggered = stats.triggered
		p.Answered = stats.answered
		p.Declined = stats.declined
		p.Skipped = stats.skipped
		p.PostErrors = stats.postErrors
	}
	if logged, ok := c.passes.Finish(info.ID, complete); ok {
		info = logged
	} else {
		complete(&info)
	}

	elapsed := finished.Sub(info.CreatedAt)
	c.metrics.ObservePass(string(info.Source), string(info.Status), elapsed)
	c.metrics.SetHandled(c.tracker.Len())

	level := slog.LevelDebug
	if stats.triggered > 0 || info.Status != daemonruntime.PassDone {
		level = slog.LevelInfo
	}
	c.logger.Log(ctx, level, "relay_pass_done",
		"pass_id", info.ID,
		"source", info.Source,
		"status", info.Status,
		"channels", stats.channels,
		"seen", stats.seen,
		"triggered", stats.triggered,
		"answered", stats.answered,
		"declined", stats.declined,
		"skipped", stats.skipped,
		"post_errors", stats.postErrors,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return info
}

// channels is the listed workspace channels unioned with the allowed ones.
// A failed listing falls back to the allowed channels alone.
func (c *Coordinator) channels(ctx context.Context) []string {
	listed, err := c.platform.ListChannels(ctx, c.cfg.ChannelListLimit)
	if err != nil {
		c.logger.Warn("relay_list_channels_error", "error", err.Error())
		listed = nil
	}
	return uniqueTrimmed(append(listed, c.cfg.AllowedChannels...))
}

func (c *Coordinator) scanChannel(ctx context.Context, channelID string, stats *passStats) {
	msgs, err := c.platform.History(ctx, channelID, c.cfg.HistoryLimit)
	if err != nil {
		c.logger.Debug("relay_history_error", "channel_id", channelID, "error", err.Error())
		return
	}
	sortOldestFirst(msgs)
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return
		}
		if msg.ChannelID == "" {
			msg.ChannelID = channelID
		}
		stats.seen++
		stats.count(c.process(ctx, msg, ReplyTarget(msg), stats))
		if IsThreadParent(msg) {
			c.scanThread(ctx, msg, stats)
		}
	}
}

// scanThread runs the pipeline on the replies of parent. Replies answer into
// the parent's thread.
func (c *Coordinator) scanThread(ctx context.Context, parent Message, stats *passStats) {
	replies, err := c.platform.Replies(ctx, parent.ChannelID, parent.TS, c.cfg.RepliesLimit)
	if err != nil {
		c.logger.Debug("relay_thread_error", "channel_id", parent.ChannelID, "thread_ts", parent.TS, "error", err.Error())
		return
	}
	sortOldestFirst(replies)
	for _, r := range replies {
		if ctx.Err() != nil {
			return
		}
		if r.TS == parent.TS {
			continue
		}
		if r.ChannelID == "" {
			r.ChannelID = parent.ChannelID
		}
		stats.seen++
		stats.count(c.process(ctx, r, parent.TS, stats))
	}
}

func (c *Coordinator) process(ctx context.Context, msg Message, target string, stats *passStats) Outcome {
	outcome := c.decide(ctx, msg, target, stats)
	c.metrics.IncMessage(string(outcome))
	return outcome
}

func (c *Coordinator) decide(ctx context.Context, msg Message, target string, stats *passStats) Outcome {
	if strings.TrimSpace(msg.Text) == "" || strings.TrimSpace(msg.TS) == "" {
		return OutcomeIgnored
	}
	if !c.fromHuman(msg) {
		return OutcomeIgnored
	}
	if !c.matcher.Matches(msg.Text) {
		return OutcomeIgnored
	}
	stats.triggered++

	logger := c.logger.With("channel_id", msg.ChannelID, "ts", msg.TS, "user_id", msg.UserID)

	if c.tracker.Contains(ctx, msg.TS) {
		return OutcomeSkipped
	}
	if c.answeredInThread(ctx, msg, target) {
		logger.Info("relay_already_answered", "thread_ts", target)
		c.tracker.MarkHandled(ctx, msg.TS)
		return OutcomeSkipped
	}

	if !c.allowed[msg.ChannelID] {
		if notice := strings.TrimSpace(c.cfg.RedirectNotice); notice != "" {
			c.post(ctx, logger, "redirect", msg.ChannelID, target, notice, stats)
		}
		if c.interrupted(ctx, logger, "redirect") {
			return OutcomeInterrupted
		}
		logger.Info("relay_declined", "reason", "channel_not_allowed")
		c.tracker.MarkHandled(ctx, msg.TS)
		return OutcomeDeclined
	}
	if isListedUser(c.banned, msg.UserID) {
		c.post(ctx, logger, "banned", msg.ChannelID, target, c.cfg.BannedNotice, stats)
		if c.interrupted(ctx, logger, "banned") {
			return OutcomeInterrupted
		}
		logger.Info("relay_declined", "reason", "banned")
		c.tracker.MarkHandled(ctx, msg.TS)
		return OutcomeDeclined
	}

	label := c.platform.UserLabel(ctx, msg.UserID)
	author := reply.Author{ID: msg.UserID, Label: label, Admin: isListedUser(c.admins, msg.UserID)}
	logger.Info("relay_triggered",
		"thread_ts", target,
		"author", label,
		"text", daemonruntime.TruncateUTF8(msg.Text, logTextPreviewChars),
	)

	text := c.generator.Generate(ctx, msg.Text, author)
	if c.interrupted(ctx, logger, "generate") {
		return OutcomeInterrupted
	}
	segments := splitter.Split(text, c.cfg.MaxSegmentChars, c.rng)
	for _, seg := range segments {
		c.post(ctx, logger, "reply", msg.ChannelID, target, seg, stats)
	}
	// Segments that did go out are found by the thread check on the next run.
	if c.interrupted(ctx, logger, "post") {
		return OutcomeInterrupted
	}

	if c.reactions != nil {
		if name := c.reactions.Choose(ctx, msg.Text, label); name != "" {
			if err := c.platform.AddReaction(ctx, msg.ChannelID, msg.TS, name); err != nil {
				logger.Debug("relay_reaction_error", "reaction", name, "error", err.Error())
			}
		}
	}

	c.tracker.MarkHandled(ctx, msg.TS)
	logger.Info("relay_answered", "segments", len(segments))
	return OutcomeAnswered
}

// interrupted reports whether ctx ended during step. The message is then
// left unmarked.
func (c *Coordinator) interrupted(ctx context.Context, logger *slog.Logger, step string) bool {
	err := ctx.Err()
	if err == nil {
		return false
	}
	logger.Warn("relay_interrupted", "step", step, "error", err.Error())
	return true
}

func (c *Coordinator) fromHuman(msg Message) bool {
	if msg.BotID != "" {
		return false
	}
	if c.cfg.Self.UserID != "" && msg.UserID == c.cfg.Self.UserID {
		return false
	}
	switch msg.SubType {
	case "", "thread_broadcast", "file_share":
		return true
	default:
		return false
	}
}

func (c *Coordinator) answeredInThread(ctx context.Context, msg Message, target string) bool {
	replies, err := c.platform.Replies(ctx, msg.ChannelID, target, c.cfg.RepliesLimit)
	if err != nil {
		c.logger.Debug("relay_thread_check_error", "channel_id", msg.ChannelID, "thread_ts", target, "error", err.Error())
		return false
	}
	return AlreadyAnswered(replies, msg.TS, c.cfg.Self)
}

func (c *Coordinator) post(ctx context.Context, logger *slog.Logger, kind, channelID, threadTS, text string, stats *passStats) {
	err := c.platform.PostMessage(ctx, channelID, threadTS, text)
	c.metrics.IncPost(kind, err == nil)
	if err != nil {
		stats.postErrors++
		logger.Warn("relay_post_error", "kind", kind, "thread_ts", threadTS, "error", err.Error())
	}
}

// DefaultRedirectNotice points users at the first allowed channel.
func DefaultRedirectNotice(allowed []string) string {
	channels := uniqueTrimmed(allowed)
	if len(channels) == 0 {
		return ""
	}
	return fmt.Sprintf(DefaultRedirectFormat, "<#"+channels[0]+">")
}

func toAllowlist(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

// toUserSet accepts both bare ids and <@id> mention tokens.
func toUserSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		if id := bareUserID(item); id != "" {
			out[id] = true
		}
	}
	return out
}

func isListedUser(set map[string]bool, userID string) bool {
	id := bareUserID(userID)
	return id != "" && set[id]
}

func bareUserID(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<@")
	raw = strings.TrimSuffix(raw, ">")
	if i := strings.Index(raw, "|"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

func uniqueTrimmed(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
