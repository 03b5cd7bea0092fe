package relaycmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quailyquaily/greg/internal/daemonruntime"
	"github.com/quailyquaily/greg/internal/handled"
	"github.com/quailyquaily/greg/internal/metrics"
	"github.com/quailyquaily/greg/internal/reaction"
	"github.com/quailyquaily/greg/internal/relay"
	"github.com/quailyquaily/greg/internal/reply"
	"github.com/quailyquaily/greg/internal/slackapi"
	"github.com/quailyquaily/greg/internal/trigger"
	"github.com/quailyquaily/greg/providers/uniai"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const passLogSize = 200

func newRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Watch Slack for trigger phrases and answer each one once",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			cfg, err := loadRelayConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRelay(ctx, logger, cfg)
		},
	}

	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-app-token", "", "Slack app-level token for Socket Mode (xapp-...).")
	cmd.Flags().String("slack-base-url", "https://slack.com/api", "Slack Web API base URL.")
	cmd.Flags().Duration("slack-request-timeout", 15*time.Second, "Timeout for each Slack Web API call.")
	cmd.Flags().Float64("slack-rate-limit", 2, "Sustained Slack Web API calls per second.")
	cmd.Flags().StringArray("trigger", nil, "Trigger phrase (repeatable). Replaces relay.triggers.")
	cmd.Flags().StringArray("allowed-channel-id", nil, "Channel id the relay answers in (repeatable).")
	cmd.Flags().StringArray("banned-user-id", nil, "User id that only receives the banned notice (repeatable).")
	cmd.Flags().StringArray("admin-user-id", nil, "User id that gets the admin persona prefix (repeatable).")
	cmd.Flags().Duration("poll-interval", relay.DefaultPollInterval, "Delay between polling passes.")
	cmd.Flags().Int("history-limit", relay.DefaultHistoryLimit, "Messages fetched per channel per pass.")
	cmd.Flags().Int("max-segment-chars", 300, "Maximum characters per wrapped reply line.")
	cmd.Flags().String("redirect-notice", "", "Notice posted for triggers outside the allowed channels (empty: silent).")
	cmd.Flags().Bool("socket-mode", false, "Also receive message events over Socket Mode.")
	cmd.Flags().Bool("once", false, "Run a single polling pass and exit.")
	cmd.Flags().String("reply-backend", backendHTTP, "Reply backend: http|uniai.")
	cmd.Flags().String("reply-endpoint", reply.DefaultEndpoint, "Chat completion endpoint.")
	cmd.Flags().String("reply-api-key", "", "API key for the reply endpoint.")
	cmd.Flags().String("reply-model", reply.DefaultModel, "Model name sent to the reply endpoint.")
	cmd.Flags().Duration("reply-timeout", reply.DefaultTimeout, "Timeout for one reply generation.")
	cmd.Flags().String("reactions-file", "", "YAML file with reaction buckets and preferred symbols.")
	cmd.Flags().String("handled-backend", handled.BackendFile, "Handled-set backend: file|sqlite.")
	cmd.Flags().String("handled-path", "", "Handled-set JSON file (file backend).")
	cmd.Flags().String("status-listen", "", "Status server listen address, e.g. 127.0.0.1:8788 (empty: disabled).")
	cmd.Flags().String("status-auth-token", "", "Bearer token for the pass and handled-set status routes.")

	return cmd
}

type relayRuntime struct {
	coordinator *relay.Coordinator
	matcher     *trigger.Matcher
	loop        *relay.Loop
	slack       *slackapi.Client
	tracker     *handled.Tracker
	passes      *daemonruntime.PassLog
	metrics     *metrics.Relay
	store       handled.Store
}

func (rt *relayRuntime) Close() error {
	if rt == nil || rt.store == nil {
		return nil
	}
	return rt.store.Close()
}

func runRelay(ctx context.Context, logger *slog.Logger, cfg relayConfig) error {
	rt, err := buildRuntime(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if cfg.Once {
		info := rt.coordinator.RunPass(ctx)
		logger.Info("relay_once_done", "pass_id", info.ID, "answered", info.Answered, "declined", info.Declined)
		return nil
	}

	if cfg.StatusListen != "" {
		_, err := daemonruntime.StartServer(ctx, logger, daemonruntime.ServerOptions{
			Listen: cfg.StatusListen,
			Routes: daemonruntime.RoutesOptions{
				Mode:          "relay",
				AuthToken:     cfg.StatusAuthToken,
				Passes:        rt.passes,
				Handled:       rt.tracker,
				Overview:      overviewFunc(cfg, rt.matcher, rt.tracker),
				Metrics:       rt.metrics.Handler(),
				HealthEnabled: true,
			},
		})
		if err != nil {
			return fmt.Errorf("start status server: %w", err)
		}
	}

	logger.Info("relay_start",
		"channels", len(cfg.AllowedChannels),
		"triggers", rt.matcher.Phrases(),
		"poll_interval", cfg.PollInterval.String(),
		"socket_mode", cfg.SocketMode,
		"handled_backend", cfg.HandledBackend,
		"reply_backend", cfg.Reply.Backend,
		"handled", rt.tracker.Len(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.loop.Run(gctx)
	})
	if cfg.SocketMode {
		g.Go(func() error {
			return rt.slack.RunSocketMode(gctx, func(ctx context.Context, msg relay.Message) {
				rt.coordinator.HandleEvent(ctx, msg)
			})
		})
	}
	err = g.Wait()
	logger.Info("relay_stop")
	return err
}

func buildRuntime(ctx context.Context, logger *slog.Logger, cfg relayConfig) (*relayRuntime, error) {
	m := metrics.New()

	store, err := handled.OpenStore(handled.StoreConfig{
		Backend:  cfg.HandledBackend,
		Path:     cfg.HandledPath,
		DSN:      cfg.HandledDSN,
		StateDir: cfg.StateDir,
	})
	if err != nil {
		return nil, err
	}
	if c, ok := store.(handled.Claimer); ok {
		if err := c.Claim(); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	tracker := handled.Open(ctx, store, handled.TrackerOptions{
		Logger:         logger,
		OnPersistError: func(error) { m.IncPersistError() },
	})
	m.SetHandled(tracker.Len())

	slackClient, err := slackapi.New(slackapi.Config{
		BotToken:       cfg.Slack.BotToken,
		AppToken:       cfg.Slack.AppToken,
		BaseURL:        cfg.Slack.BaseURL,
		RequestTimeout: cfg.Slack.RequestTimeout,
		RateLimit:      cfg.Slack.RateLimit,
		RateBurst:      cfg.Slack.RateBurst,
		UserCacheSize:  cfg.Slack.UserCacheSize,
		UserCacheTTL:   cfg.Slack.UserCacheTTL,
		Logger:         logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	self, err := slackClient.Identity(ctx)
	if err != nil {
		// The thread check still recognizes bot replies without an identity.
		logger.Warn("slack_auth_test_error", "error", err.Error())
	}

	backend, err := buildBackend(cfg.Reply)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	generator := reply.NewGenerator(reply.Options{
		Backend:   backend,
		Persona:   cfg.Reply.Persona,
		Logger:    logger,
		OnFailure: m.IncGenerationFailure,
	})

	reactionCfg := reaction.DefaultConfig()
	if cfg.ReactionsFile != "" {
		reactionCfg, err = reaction.LoadConfigFile(cfg.ReactionsFile)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	selector := reaction.NewSelector(reaction.Options{
		Buckets:    reactionCfg.Buckets,
		Preferred:  reactionCfg.Preferred,
		Vocabulary: reaction.NewVocabulary(slackClient.ListEmoji, cfg.VocabularyTTL, logger),
	})

	matcher := trigger.New(cfg.Triggers)
	passes := daemonruntime.NewPassLog(passLogSize)
	coordinator, err := relay.NewCoordinator(relay.Config{
		AllowedChannels:  cfg.AllowedChannels,
		BannedUsers:      cfg.BannedUsers,
		AdminUsers:       cfg.AdminUsers,
		HistoryLimit:     cfg.HistoryLimit,
		RepliesLimit:     cfg.RepliesLimit,
		ChannelListLimit: cfg.ChannelListLimit,
		MaxSegmentChars:  cfg.MaxSegmentChars,
		BannedNotice:     cfg.BannedNotice,
		RedirectNotice:   cfg.RedirectNotice,
		Self:             self,
	}, relay.Deps{
		Platform:  slackClient,
		Tracker:   tracker,
		Matcher:   matcher,
		Generator: generator,
		Reactions: selector,
		Passes:    passes,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &relayRuntime{
		coordinator: coordinator,
		matcher:     matcher,
		loop:        relay.NewLoop(coordinator, cfg.PollInterval, logger),
		slack:       slackClient,
		tracker:     tracker,
		passes:      passes,
		metrics:     m,
		store:       store,
	}, nil
}

func buildBackend(cfg replyConfig) (reply.Backend, error) {
	switch cfg.Backend {
	case "", backendHTTP:
		return reply.NewHTTPBackend(reply.HTTPConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		}), nil
	case backendUniAI:
		client := uniai.New(uniai.Config{
			Provider:       cfg.Provider,
			Endpoint:       cfg.Endpoint,
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			RequestTimeout: cfg.Timeout,
		})
		return reply.NewUniAIBackend(client, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown reply.backend %q", cfg.Backend)
	}
}

// overviewFunc reports the normalized trigger phrases the matcher actually
// uses, not the raw configured list.
func overviewFunc(cfg relayConfig, matcher *trigger.Matcher, tracker *handled.Tracker) daemonruntime.OverviewFunc {
	return func(context.Context) (map[string]any, error) {
		return map[string]any{
			"allowed_channels": cfg.AllowedChannels,
			"triggers":         matcher.Phrases(),
			"socket_mode":      cfg.SocketMode,
			"poll_interval":    cfg.PollInterval.String(),
			"handled_backend":  cfg.HandledBackend,
			"handled_count":    tracker.Len(),
			"reply_backend":    cfg.Reply.Backend,
		}, nil
	}
}
