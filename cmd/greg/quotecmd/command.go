package quotecmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/quailyquaily/greg/internal/configutil"
	"github.com/quailyquaily/greg/internal/slackapi"
	"github.com/spf13/cobra"
)

const cronRetryDelay = 30 * time.Second

type poster interface {
	PostMessage(ctx context.Context, channelID, threadTS, text string) error
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print or post a random quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			quotes, err := loadQuotes(configutil.FlagOrViperString(cmd, "quotes-file", "quote.file"))
			if err != nil {
				return err
			}
			if len(quotes) == 0 {
				return fmt.Errorf("no quotes available")
			}
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))

			post, _ := cmd.Flags().GetBool("post")
			cronExpr := strings.TrimSpace(configutil.FlagOrViperString(cmd, "cron", "quote.cron"))
			if !post && cronExpr == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), pickQuote(rng, quotes))
				return nil
			}

			channelID := strings.TrimSpace(configutil.FlagOrViperString(cmd, "channel", "quote.channel_id"))
			if channelID == "" {
				return fmt.Errorf("missing quote.channel_id (set via --channel)")
			}
			if cronExpr != "" && !gronx.IsValid(cronExpr) {
				return fmt.Errorf("invalid quote.cron expression: %s", cronExpr)
			}
			logger, err := loggerFromViper()
			if err != nil {
				return err
			}
			client, err := slackapi.New(slackapi.Config{
				BotToken:       configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"),
				BaseURL:        configutil.FlagOrViperString(cmd, "slack-base-url", "slack.base_url"),
				RequestTimeout: configutil.FlagOrViperDuration(cmd, "", "slack.request_timeout"),
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			if cronExpr == "" {
				text := pickQuote(rng, quotes)
				if err := client.PostMessage(cmd.Context(), channelID, "", text); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Posted: %s\n", text)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSchedule(ctx, logger, cronExpr, func(ctx context.Context) error {
				return postQuote(ctx, client, channelID, pickQuote(rng, quotes))
			})
		},
	}
	cmd.Flags().Bool("post", false, "Post one random quote to Slack instead of printing it.")
	cmd.Flags().String("channel", "", "Slack channel id to post to.")
	cmd.Flags().String("cron", "", "Post a quote on this cron schedule until interrupted.")
	cmd.Flags().String("quotes-file", "", "YAML file with a quotes list (default: built-in list).")
	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-base-url", "https://slack.com/api", "Slack Web API base URL.")
	return cmd
}

func postQuote(ctx context.Context, p poster, channelID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty quote")
	}
	return p.PostMessage(ctx, channelID, "", text)
}

// runSchedule sleeps until each cron tick and calls fire. Errors from fire
// are logged and the schedule continues.
func runSchedule(ctx context.Context, logger *slog.Logger, cronExpr string, fire func(context.Context) error) error {
	if !gronx.IsValid(cronExpr) {
		return fmt.Errorf("invalid cron expression: %s", cronExpr)
	}
	logger.Info("quote_schedule_start", "cron", cronExpr)
	for {
		next, err := gronx.NextTickAfter(cronExpr, time.Now(), false)
		if err != nil {
			logger.Error("quote_next_tick_error", "cron", cronExpr, "error", err.Error())
			if err := sleepWithContext(ctx, cronRetryDelay); err != nil {
				return nil
			}
			continue
		}
		if err := sleepWithContext(ctx, time.Until(next)); err != nil {
			logger.Info("quote_schedule_stop")
			return nil
		}
		if err := fire(ctx); err != nil {
			logger.Warn("quote_post_error", "error", err.Error())
			continue
		}
		logger.Info("quote_posted", "at", next.Format(time.RFC3339))
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
