package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quailyquaily/greg/internal/relay"
)

const socketReconnectDelay = 2 * time.Second

type socketEnvelope struct {
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type eventsAPIPayload struct {
	TeamID  string          `json:"team_id,omitempty"`
	EventID string          `json:"event_id,omitempty"`
	Event   json.RawMessage `json:"event"`
}

type messageEvent struct {
	Type       string `json:"type"`
	Subtype    string `json:"subtype,omitempty"`
	User       string `json:"user,omitempty"`
	Text       string `json:"text,omitempty"`
	Channel    string `json:"channel,omitempty"`
	TS         string `json:"ts,omitempty"`
	ThreadTS   string `json:"thread_ts,omitempty"`
	BotID      string `json:"bot_id,omitempty"`
	ReplyCount int    `json:"reply_count,omitempty"`
}

// ConnectSocket opens a Socket Mode websocket using the app-level token.
func (c *Client) ConnectSocket(ctx context.Context) (*websocket.Conn, error) {
	if !c.hasApp {
		return nil, fmt.Errorf("missing slack app token")
	}
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return nil, err
	}
	_, url, err := c.api.StartSocketModeContext(callCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("slack apps.connections.open: %w", err)
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("slack apps.connections.open returned empty url")
	}
	dialer := *websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RunSocketMode delivers channel message events to onMessage until ctx is
// canceled, reconnecting after connect or read failures.
func (c *Client) RunSocketMode(ctx context.Context, onMessage func(ctx context.Context, msg relay.Message)) error {
	for {
		if ctx.Err() != nil {
			c.logger.Info("slack_socket_stop", "reason", "context_canceled")
			return nil
		}
		conn, err := c.ConnectSocket(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("slack_socket_stop", "reason", "context_canceled")
				return nil
			}
			c.logger.Warn("slack_socket_connect_error", "error", err.Error())
			if err := sleepWithContext(ctx, socketReconnectDelay); err != nil {
				return nil
			}
			continue
		}
		c.logger.Info("slack_socket_connected")

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		readErr := consumeSocket(ctx, conn, func(env socketEnvelope) error {
			msg, ok, err := parseMessageEvent(env)
			if err != nil {
				c.logger.Warn("slack_socket_event_error", "error", err.Error())
				return nil
			}
			if ok && onMessage != nil {
				onMessage(ctx, msg)
			}
			return nil
		})
		stop()
		_ = conn.Close()
		if ctx.Err() != nil {
			c.logger.Info("slack_socket_stop", "reason", "context_canceled")
			return nil
		}
		if readErr != nil {
			c.logger.Warn("slack_socket_read_error", "error", readErr.Error())
		}
		if err := sleepWithContext(ctx, socketReconnectDelay); err != nil {
			return nil
		}
	}
}

// consumeSocket acknowledges every envelope before handing it on.
func consumeSocket(ctx context.Context, conn *websocket.Conn, onEnvelope func(env socketEnvelope) error) error {
	if conn == nil {
		return fmt.Errorf("slack websocket connection is nil")
	}
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env socketEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if strings.TrimSpace(env.EnvelopeID) != "" {
			if err := conn.WriteJSON(map[string]string{"envelope_id": env.EnvelopeID}); err != nil {
				return err
			}
		}
		if strings.TrimSpace(env.Type) == "disconnect" {
			return fmt.Errorf("slack requested disconnect")
		}
		if onEnvelope == nil {
			continue
		}
		if err := onEnvelope(env); err != nil {
			return err
		}
	}
}

// parseMessageEvent extracts a channel message from an events_api envelope.
// Bot and self filtering is left to the coordinator, which applies the same
// rules to polled history.
func parseMessageEvent(env socketEnvelope) (relay.Message, bool, error) {
	if strings.TrimSpace(env.Type) != "events_api" || len(env.Payload) == 0 {
		return relay.Message{}, false, nil
	}
	var payload eventsAPIPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return relay.Message{}, false, err
	}
	if len(payload.Event) == 0 {
		return relay.Message{}, false, nil
	}
	var event messageEvent
	if err := json.Unmarshal(payload.Event, &event); err != nil {
		return relay.Message{}, false, err
	}
	if strings.TrimSpace(event.Type) != "message" {
		return relay.Message{}, false, nil
	}
	channelID := strings.TrimSpace(event.Channel)
	ts := strings.TrimSpace(event.TS)
	if channelID == "" || ts == "" {
		return relay.Message{}, false, nil
	}
	return relay.Message{
		TS:         ts,
		ChannelID:  channelID,
		UserID:     strings.TrimSpace(event.User),
		BotID:      strings.TrimSpace(event.BotID),
		SubType:    strings.TrimSpace(event.Subtype),
		Text:       event.Text,
		ThreadTS:   strings.TrimSpace(event.ThreadTS),
		ReplyCount: event.ReplyCount,
	}, true, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
