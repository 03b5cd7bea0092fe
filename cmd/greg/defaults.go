package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global
	viper.SetDefault("file_state_dir", "~/.greg")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)

	// Slack
	viper.SetDefault("slack.base_url", "https://slack.com/api")
	viper.SetDefault("slack.request_timeout", 15*time.Second)
	viper.SetDefault("slack.rate_limit", 2.0)
	viper.SetDefault("slack.rate_burst", 4)
	viper.SetDefault("slack.user_cache_size", 512)
	viper.SetDefault("slack.user_cache_ttl", 30*time.Minute)

	// Relay
	viper.SetDefault("relay.triggers", []string{
		"assistant",
		"slave",
		"servant",
		"unwanted ai",
		"clanker",
		"clanka",
		"grok is this true",
		"slack annoyance",
		"greg",
	})
	viper.SetDefault("relay.allowed_channel_ids", []string{})
	viper.SetDefault("relay.banned_user_ids", []string{})
	viper.SetDefault("relay.admin_user_ids", []string{})
	viper.SetDefault("relay.poll_interval", 10*time.Second)
	viper.SetDefault("relay.history_limit", 10)
	viper.SetDefault("relay.replies_limit", 200)
	viper.SetDefault("relay.channel_list_limit", 200)
	viper.SetDefault("relay.max_segment_chars", 300)
	viper.SetDefault("relay.banned_notice", "")
	viper.SetDefault("relay.socket_mode", false)

	// Reply generation
	viper.SetDefault("reply.backend", "http")
	viper.SetDefault("reply.endpoint", "https://ai.hackclub.com/proxy/v1/chat/completions")
	viper.SetDefault("reply.model", "google/gemini-2.5-flash")
	viper.SetDefault("reply.timeout", 15*time.Second)
	viper.SetDefault("reply.provider", "openai")

	// Reactions
	viper.SetDefault("reactions.vocabulary_ttl", 5*time.Minute)

	// Handled set
	viper.SetDefault("handled.backend", "file")

	// Status server
	viper.SetDefault("status.listen", "")
	viper.SetDefault("status.auth_token", "")

	// Quotes
	viper.SetDefault("quote.channel_id", "")
	viper.SetDefault("quote.cron", "")
}
