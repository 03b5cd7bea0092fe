package slackapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/quailyquaily/greg/internal/relay"
	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL        = "https://slack.com/api"
	DefaultRequestTimeout = 15 * time.Second
	DefaultRateLimit      = 2.0
	DefaultRateBurst      = 4
	DefaultUserCacheSize  = 512
	DefaultUserCacheTTL   = 30 * time.Minute
)

type Config struct {
	BotToken       string
	AppToken       string
	BaseURL        string
	RequestTimeout time.Duration
	// RateLimit is the sustained Web API calls per second; RateBurst the
	// bucket size.
	RateLimit     float64
	RateBurst     int
	UserCacheSize int
	UserCacheTTL  time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client adapts the Slack Web API to relay.Platform. Every call waits on a
// shared rate limiter and runs under its own timeout.
type Client struct {
	api     *slack.Client
	hasApp  bool
	limiter *rate.Limiter
	timeout time.Duration
	users   *expirable.LRU[string, string]
	logger  *slog.Logger
}

func New(cfg Config) (*Client, error) {
	botToken := strings.TrimSpace(cfg.BotToken)
	if botToken == "" {
		return nil, fmt.Errorf("missing slack bot token")
	}
	baseURL := strings.TrimSpace(strings.TrimRight(cfg.BaseURL, "/"))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = DefaultRateBurst
	}
	cacheSize := cfg.UserCacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultUserCacheSize
	}
	cacheTTL := cfg.UserCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultUserCacheTTL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []slack.Option{
		slack.OptionAPIURL(baseURL + "/"),
		slack.OptionHTTPClient(httpClient),
	}
	appToken := strings.TrimSpace(cfg.AppToken)
	if appToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(appToken))
	}

	return &Client{
		api:     slack.New(botToken, opts...),
		hasApp:  appToken != "",
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		timeout: timeout,
		users:   expirable.NewLRU[string, string](cacheSize, nil, cacheTTL),
		logger:  logger,
	}, nil
}

// call waits for a rate-limit token and returns a context bounded by the
// per-request timeout.
func (c *Client) call(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	return callCtx, cancel, nil
}

// Identity resolves the bot's own user and bot ids via auth.test.
func (c *Client) Identity(ctx context.Context) (relay.Identity, error) {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return relay.Identity{}, err
	}
	defer cancel()
	resp, err := c.api.AuthTestContext(callCtx)
	if err != nil {
		return relay.Identity{}, fmt.Errorf("slack auth.test: %w", err)
	}
	return relay.Identity{
		UserID: strings.TrimSpace(resp.UserID),
		BotID:  strings.TrimSpace(resp.BotID),
	}, nil
}

// ListChannels returns the conversations the bot is a member of, one page
// of up to limit entries.
func (c *Client) ListChannels(ctx context.Context, limit int) ([]string, error) {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	channels, _, err := c.api.GetConversationsContext(callCtx, &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           limit,
		Types:           []string{"public_channel", "private_channel"},
	})
	if err != nil {
		return nil, fmt.Errorf("slack conversations.list: %w", err)
	}
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		if !ch.IsMember {
			continue
		}
		if id := strings.TrimSpace(ch.ID); id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, channelID string, limit int) ([]relay.Message, error) {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	resp, err := c.api.GetConversationHistoryContext(callCtx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("slack conversations.history %s: %w", channelID, err)
	}
	return toMessages(resp.Messages, channelID), nil
}

func (c *Client) Replies(ctx context.Context, channelID, threadTS string, limit int) ([]relay.Message, error) {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	msgs, _, _, err := c.api.GetConversationRepliesContext(callCtx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("slack conversations.replies %s/%s: %w", channelID, threadTS, err)
	}
	return toMessages(msgs, channelID), nil
}

func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if ts := strings.TrimSpace(threadTS); ts != "" {
		opts = append(opts, slack.MsgOptionTS(ts))
	}
	if _, _, err := c.api.PostMessageContext(callCtx, channelID, opts...); err != nil {
		return fmt.Errorf("slack chat.postMessage %s: %w", channelID, err)
	}
	return nil
}

// AddReaction treats an existing identical reaction as success.
func (c *Client) AddReaction(ctx context.Context, channelID, ts, name string) error {
	name = strings.Trim(strings.TrimSpace(name), ":")
	if name == "" {
		return fmt.Errorf("reaction name is required")
	}
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	err = c.api.AddReactionContext(callCtx, name, slack.NewRefToMessage(channelID, ts))
	if err != nil {
		if isSlackError(err, "already_reacted") {
			return nil
		}
		return fmt.Errorf("slack reactions.add %s: %w", name, err)
	}
	return nil
}

// ListEmoji returns the workspace's custom emoji names, sorted.
func (c *Client) ListEmoji(ctx context.Context) ([]string, error) {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	emoji, err := c.api.GetEmojiContext(callCtx)
	if err != nil {
		return nil, fmt.Errorf("slack emoji.list: %w", err)
	}
	names := make([]string, 0, len(emoji))
	for name := range emoji {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func toMessages(in []slack.Message, channelID string) []relay.Message {
	out := make([]relay.Message, 0, len(in))
	for _, m := range in {
		out = append(out, toMessage(m, channelID))
	}
	return out
}

func toMessage(m slack.Message, channelID string) relay.Message {
	ch := strings.TrimSpace(m.Channel)
	if ch == "" {
		ch = channelID
	}
	return relay.Message{
		TS:         strings.TrimSpace(m.Timestamp),
		ChannelID:  ch,
		UserID:     strings.TrimSpace(m.User),
		BotID:      strings.TrimSpace(m.BotID),
		SubType:    strings.TrimSpace(m.SubType),
		Text:       m.Text,
		ThreadTS:   strings.TrimSpace(m.ThreadTimestamp),
		ReplyCount: m.ReplyCount,
	}
}

func isSlackError(err error, code string) bool {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err == code
	}
	return strings.Contains(err.Error(), code)
}
