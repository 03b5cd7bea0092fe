package relaycmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/quailyquaily/greg/internal/configutil"
	"github.com/quailyquaily/greg/internal/relay"
	"github.com/quailyquaily/greg/internal/statepaths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	backendHTTP  = "http"
	backendUniAI = "uniai"
)

type slackConfig struct {
	BotToken       string
	AppToken       string
	BaseURL        string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	UserCacheSize  int
	UserCacheTTL   time.Duration
}

type replyConfig struct {
	Backend  string
	Endpoint string
	APIKey   string
	Model    string
	Provider string
	Persona  string
	Timeout  time.Duration
}

type relayConfig struct {
	Slack slackConfig
	Reply replyConfig

	Triggers         []string
	AllowedChannels  []string
	BannedUsers      []string
	AdminUsers       []string
	PollInterval     time.Duration
	HistoryLimit     int
	RepliesLimit     int
	ChannelListLimit int
	MaxSegmentChars  int
	BannedNotice     string
	RedirectNotice   string
	SocketMode       bool
	Once             bool

	ReactionsFile string
	VocabularyTTL time.Duration

	HandledBackend string
	HandledPath    string
	HandledDSN     string
	StateDir       string

	StatusListen    string
	StatusAuthToken string
}

func loadRelayConfig(cmd *cobra.Command) (relayConfig, error) {
	cfg := relayConfig{
		Slack: slackConfig{
			BotToken:       strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token")),
			AppToken:       strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-app-token", "slack.app_token")),
			BaseURL:        strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-base-url", "slack.base_url")),
			RequestTimeout: configutil.FlagOrViperDuration(cmd, "slack-request-timeout", "slack.request_timeout"),
			RateLimit:      configutil.FlagOrViperFloat64(cmd, "slack-rate-limit", "slack.rate_limit"),
			RateBurst:      viper.GetInt("slack.rate_burst"),
			UserCacheSize:  viper.GetInt("slack.user_cache_size"),
			UserCacheTTL:   viper.GetDuration("slack.user_cache_ttl"),
		},
		Reply: replyConfig{
			Backend:  strings.ToLower(strings.TrimSpace(configutil.FlagOrViperString(cmd, "reply-backend", "reply.backend"))),
			Endpoint: strings.TrimSpace(configutil.FlagOrViperString(cmd, "reply-endpoint", "reply.endpoint")),
			APIKey:   strings.TrimSpace(configutil.FlagOrViperString(cmd, "reply-api-key", "reply.api_key")),
			Model:    strings.TrimSpace(configutil.FlagOrViperString(cmd, "reply-model", "reply.model")),
			Provider: strings.TrimSpace(viper.GetString("reply.provider")),
			Persona:  strings.TrimSpace(viper.GetString("reply.persona")),
			Timeout:  configutil.FlagOrViperDuration(cmd, "reply-timeout", "reply.timeout"),
		},
		Triggers:         configutil.FlagOrViperStringArray(cmd, "trigger", "relay.triggers"),
		AllowedChannels:  configutil.FlagOrViperStringArray(cmd, "allowed-channel-id", "relay.allowed_channel_ids"),
		BannedUsers:      configutil.FlagOrViperStringArray(cmd, "banned-user-id", "relay.banned_user_ids"),
		AdminUsers:       configutil.FlagOrViperStringArray(cmd, "admin-user-id", "relay.admin_user_ids"),
		PollInterval:     configutil.FlagOrViperDuration(cmd, "poll-interval", "relay.poll_interval"),
		HistoryLimit:     configutil.FlagOrViperInt(cmd, "history-limit", "relay.history_limit"),
		RepliesLimit:     viper.GetInt("relay.replies_limit"),
		ChannelListLimit: viper.GetInt("relay.channel_list_limit"),
		MaxSegmentChars:  configutil.FlagOrViperInt(cmd, "max-segment-chars", "relay.max_segment_chars"),
		BannedNotice:     strings.TrimSpace(viper.GetString("relay.banned_notice")),
		SocketMode:       configutil.FlagOrViperBool(cmd, "socket-mode", "relay.socket_mode"),
		Once:             configutil.FlagOrViperBool(cmd, "once", ""),

		ReactionsFile: strings.TrimSpace(configutil.FlagOrViperString(cmd, "reactions-file", "reactions.file")),
		VocabularyTTL: viper.GetDuration("reactions.vocabulary_ttl"),

		HandledBackend: strings.TrimSpace(configutil.FlagOrViperString(cmd, "handled-backend", "handled.backend")),
		HandledPath:    statepaths.HandledPath(),
		HandledDSN:     strings.TrimSpace(viper.GetString("handled.dsn")),
		StateDir:       statepaths.FileStateDir(),

		StatusListen:    strings.TrimSpace(configutil.FlagOrViperString(cmd, "status-listen", "status.listen")),
		StatusAuthToken: strings.TrimSpace(configutil.FlagOrViperString(cmd, "status-auth-token", "status.auth_token")),
	}
	if cmd.Flags().Changed("handled-path") {
		p, _ := cmd.Flags().GetString("handled-path")
		cfg.HandledPath = statepaths.ExpandHomePath(p)
	}

	// An explicitly empty redirect notice declines silently.
	cfg.RedirectNotice = relay.DefaultRedirectNotice(cfg.AllowedChannels)
	if cmd.Flags().Changed("redirect-notice") || viper.IsSet("relay.redirect_notice") {
		cfg.RedirectNotice = strings.TrimSpace(configutil.FlagOrViperString(cmd, "redirect-notice", "relay.redirect_notice"))
	}

	if err := cfg.validate(); err != nil {
		return relayConfig{}, err
	}
	return cfg, nil
}

func (cfg relayConfig) validate() error {
	if cfg.Slack.BotToken == "" {
		return fmt.Errorf("missing slack.bot_token (set via --slack-bot-token, GREG_SLACK_BOT_TOKEN or SLACK_TOKEN)")
	}
	if cfg.SocketMode && cfg.Slack.AppToken == "" {
		return fmt.Errorf("socket mode requires slack.app_token (set via --slack-app-token, GREG_SLACK_APP_TOKEN or APP_TOKEN)")
	}
	if len(cfg.AllowedChannels) == 0 {
		return fmt.Errorf("missing relay.allowed_channel_ids (set via --allowed-channel-id)")
	}
	if len(cfg.Triggers) == 0 {
		return fmt.Errorf("missing relay.triggers")
	}
	switch cfg.Reply.Backend {
	case "", backendHTTP:
		if cfg.Reply.APIKey == "" {
			return fmt.Errorf("missing reply.api_key (set via --reply-api-key, GREG_REPLY_API_KEY or HACKCLUB_AI_KEY)")
		}
	case backendUniAI:
		if cfg.Reply.Model == "" {
			return fmt.Errorf("missing reply.model for the uniai backend")
		}
	default:
		return fmt.Errorf("unknown reply.backend %q (want http or uniai)", cfg.Reply.Backend)
	}
	if cfg.PollInterval < 0 {
		return fmt.Errorf("invalid relay.poll_interval: %s", cfg.PollInterval)
	}
	return nil
}
