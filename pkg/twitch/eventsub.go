package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nicklaw5/helix/v2"

	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/ws"
)

const eventSubURL = "wss://eventsub.wss.twitch.tv/ws"

// EventSink is what the event source drives. The engine satisfies it.
type EventSink interface {
	OnRedemption(ctx context.Context, r *redeems.Redemption) redeems.RedemptionResult
	OnStreamOnline(game string)
	OnStreamOffline()
	OnChannelUpdate(game string)
}

// EventSource keeps an EventSub websocket session alive and feeds
// redemption and stream-state notifications to the sink. Redemptions are
// delivered synchronously from the read loop, which preserves arrival order.
type EventSource struct {
	logger *slog.Logger

	client        *helix.Client
	broadcasterID string
	sink          EventSink

	lastGame string
}

func NewEventSource(logger *slog.Logger, client *helix.Client, broadcasterID string, sink EventSink) *EventSource {
	return &EventSource{
		logger: logger,

		client:        client,
		broadcasterID: broadcasterID,
		sink:          sink,
	}
}

// Run connects and reconnects until ctx is done.
func (es *EventSource) Run(ctx context.Context) error {
	es.seedStreamState(ctx)

	backoff := time.Second

	for {
		if err := es.runSession(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			es.logger.Error("eventsub session ended", "err", err, "retry_in", backoff)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// seedStreamState primes the sink with the current live/game status so the
// activation policy is right before the first EventSub notification.
func (es *EventSource) seedStreamState(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if resp, err := es.client.GetChannelInformation(&helix.GetChannelInformationParams{
		BroadcasterIDs: []string{es.broadcasterID},
	}); err != nil {
		es.logger.Warn("failed to fetch channel information", "err", err)
	} else if len(resp.Data.Channels) > 0 {
		es.lastGame = resp.Data.Channels[0].GameName
		es.sink.OnChannelUpdate(es.lastGame)
	}

	if resp, err := es.client.GetStreams(&helix.StreamsParams{
		UserIDs: []string{es.broadcasterID},
	}); err != nil {
		es.logger.Warn("failed to fetch stream status", "err", err)
	} else if len(resp.Data.Streams) > 0 {
		es.sink.OnStreamOnline(es.lastGame)
	} else {
		es.sink.OnStreamOffline()
	}
}

func (es *EventSource) runSession(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, eventSubURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial eventsub ws: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wsClient, done := ws.NewWsClient(conn)

	go func() {
		<-ctx.Done()
		wsClient.Close()
	}()

	go func() {
		<-done
		cancel()
	}()

	sessionID, keepaliveTimeout, err := es.readWelcome(wsClient)
	if err != nil {
		return err
	}

	if err := es.subscribe(sessionID); err != nil {
		return err
	}

	es.logger.Info("eventsub connected", "session_id", sessionID)

	// written by the read loop, read by the watchdog
	var lastMsgNano atomic.Int64
	lastMsgNano.Store(time.Now().UnixNano())

	go func() {
		for ctx.Err() == nil {
			if time.Since(time.Unix(0, lastMsgNano.Load())) > keepaliveTimeout {
				es.logger.Warn("eventsub keepalive timeout")
				wsClient.Close()
				return
			}

			time.Sleep(time.Second)
		}
	}()

	for {
		msg, err := wsClient.Read()
		if err != nil {
			return fmt.Errorf("eventsub read: %w", err)
		}

		lastMsgNano.Store(time.Now().UnixNano())

		meta := &struct {
			Metadata struct {
				MessageType string `json:"message_type"`
			} `json:"metadata"`
		}{}

		if err := json.Unmarshal(msg.Message, &meta); err != nil {
			return fmt.Errorf("eventsub meta unmarshal: %w", err)
		}

		switch meta.Metadata.MessageType {
		case "session_keepalive":
		case "session_reconnect":
			// tear the session down, Run redials
			return fmt.Errorf("eventsub requested reconnect")
		case "notification":
			if err := es.handleNotification(ctx, msg.Message); err != nil {
				es.logger.Error("failed to handle eventsub notification", "err", err)
			}
		}
	}
}

func (es *EventSource) readWelcome(wsClient *ws.Client) (sessionID string, keepalive time.Duration, err error) {
	msg, err := wsClient.Read()
	if err != nil {
		return "", 0, fmt.Errorf("failed to read welcome message: %w", err)
	}

	resp := &struct {
		Payload struct {
			Session struct {
				ID string `json:"id"`

				KeepaliveTimeoutSeconds int `json:"keepalive_timeout_seconds"`
			} `json:"session"`
		} `json:"payload"`
	}{}

	if err = json.Unmarshal(msg.Message, &resp); err != nil {
		return "", 0, fmt.Errorf("failed to unmarshal welcome message: %w", err)
	}

	// grace over the nominal timeout, twitch is not punctual
	keepalive = time.Duration(resp.Payload.Session.KeepaliveTimeoutSeconds+5) * time.Second

	return resp.Payload.Session.ID, keepalive, nil
}

type eventSubSubscription struct {
	eventType string
	version   string
}

func eventSubSubscriptions() []eventSubSubscription {
	return []eventSubSubscription{
		{"channel.channel_points_custom_reward_redemption.add", "1"},
		{"channel.channel_points_custom_reward_redemption.update", "1"},
		{"stream.online", "1"},
		{"stream.offline", "1"},
		{"channel.update", "2"},
	}
}

func subscriptionTypes() []string {
	subs := eventSubSubscriptions()

	types := make([]string, 0, len(subs))
	for _, sub := range subs {
		types = append(types, sub.eventType)
	}

	return types
}

func (es *EventSource) subscribe(sessionID string) error {
	transport := helix.EventSubTransport{
		Method:    "websocket",
		SessionID: sessionID,
	}

	for _, sub := range eventSubSubscriptions() {
		if _, err := es.client.CreateEventSubSubscription(&helix.EventSubSubscription{
			Type:    sub.eventType,
			Version: sub.version,
			Condition: helix.EventSubCondition{
				BroadcasterUserID: es.broadcasterID,
			},
			Transport: transport,
		}); err != nil {
			return fmt.Errorf("failed to create %s subscription: %w", sub.eventType, err)
		}
	}

	return nil
}

func (es *EventSource) handleNotification(ctx context.Context, raw []byte) error {
	payload := &struct {
		Payload struct {
			Subscription struct {
				Type string `json:"type"`
			} `json:"subscription"`
			Event struct {
				ID                string `json:"id"`
				BroadcasterUserID string `json:"broadcaster_user_id"`
				UserID            string `json:"user_id"`
				UserName          string `json:"user_name"`
				UserInput         string `json:"user_input"`
				Status            string `json:"status"`
				Reward            struct {
					ID    string `json:"id"`
					Title string `json:"title"`
				} `json:"reward"`

				CategoryName string `json:"category_name"` // channel.update
			} `json:"event"`
		} `json:"payload"`
	}{}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("payload unmarshal: %w", err)
	}

	event := payload.Payload.Event

	switch payload.Payload.Subscription.Type {
	case "channel.channel_points_custom_reward_redemption.add":
		result := es.sink.OnRedemption(ctx, &redeems.Redemption{
			ID:            event.ID,
			BroadcasterID: event.BroadcasterUserID,
			RewardID:      event.Reward.ID,
			RewardTitle:   event.Reward.Title,
			UserID:        event.UserID,
			UserName:      event.UserName,
			UserInput:     event.UserInput,
			Status:        redeems.StatusUnfulfilled,
		})
		if !result.Success {
			es.logger.Warn("redemption rejected", "reward", event.Reward.Title, "user", event.UserName, "msg", result.Message)
		}
	case "channel.channel_points_custom_reward_redemption.update":
		// terminal statuses, including operator-side completions from the
		// dashboard; the dispatcher already settled or deliberately left these
		es.logger.Info("redemption settled upstream",
			"reward", event.Reward.Title, "user", event.UserName, "id", event.ID, "status", event.Status)
	case "stream.online":
		es.sink.OnStreamOnline(es.lastGame)
	case "stream.offline":
		es.sink.OnStreamOffline()
	case "channel.update":
		es.lastGame = event.CategoryName
		es.sink.OnChannelUpdate(event.CategoryName)
	}

	return nil
}
