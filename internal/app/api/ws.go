package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/ws"
)

// wsHandler streams redemption outcomes to the dashboard as JSON frames.
// Slow consumers get dropped rather than backing up the bus.
func (api *API) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.logger.Error("ws upgrade failed", "err", err)
		return
	}

	wsClient, done := ws.NewWsClient(conn)

	unsub := api.events.Subscribe(redeems.TopicOutcomes, func(message any) {
		outcome, ok := message.(redeems.Outcome)
		if !ok {
			return
		}

		data, err := json.Marshal(outcome)
		if err != nil {
			api.logger.Error("failed to marshal outcome", "err", err)
			return
		}

		if err := wsClient.Send(&ws.Message{
			MsgType: websocket.TextMessage,
			Message: data,
		}); err != nil {
			wsClient.Close()
		}
	})
	defer unsub()

	go wsClient.DrainRead()

	select {
	case <-done:
	case <-r.Context().Done():
		wsClient.Close()
		<-done
	}
}
