package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"wordplay/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	actionTimeout  = 15 * time.Second
)

// Manager accepts socket connections, subscribes them to their game's room
// and turns inbound frames into engine actions.
type Manager struct {
	hub    *Hub
	engine *game.Engine
	rate   rate.Limit
	burst  int
}

func NewManager(engine *game.Engine, hub *Hub, perSecond float64, burst int) *Manager {
	return &Manager{
		hub:    hub,
		engine: engine,
		rate:   rate.Limit(perSecond),
		burst:  burst,
	}
}

func (m *Manager) Hub() *Hub {
	return m.hub
}

// HandleConnection serves one socket. An empty gameID subscribes to the
// lobby, which only receives game list updates.
func (m *Manager) HandleConnection(conn *websocket.Conn, gameID, userID, ip string) {
	client := &Client{
		conn:    conn,
		userID:  userID,
		ip:      ip,
		send:    make(chan []byte, 256),
		limiter: rate.NewLimiter(m.rate, m.burst),
	}

	channel := gameID
	if channel == "" {
		channel = LobbyChannel
	}
	room := m.hub.Room(channel)
	room.AddClient(client)

	log.Debug().Str("channel", channel).Str("userId", userID).Msg("websocket connected")

	go m.writePump(client)
	go m.readPump(client, room)
}

func (m *Manager) readPump(client *Client, room *Room) {
	defer func() {
		m.hub.leave(room, client)
		client.conn.Close()
	}()

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("userId", client.userID).Msg("websocket error")
			}
			break
		}

		if room.channel == LobbyChannel {
			continue
		}

		var inMsg IncomingMessage
		if err := json.Unmarshal(message, &inMsg); err != nil {
			client.reply(OutgoingMessage{
				Type:    TypeError,
				Payload: ErrorPayload{Kind: string(game.KindValidation), Message: "invalid message"},
			})
			continue
		}

		m.handleMessage(client, room, &inMsg)
	}
}

func (m *Manager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message so clients can parse each as JSON.
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) handleMessage(client *Client, room *Room, msg *IncomingMessage) {
	if !client.limiter.Allow() {
		client.reply(OutgoingMessage{
			Type:      string(game.KindRateLimit),
			RequestID: msg.RequestID,
			Payload:   ErrorPayload{Kind: string(game.KindRateLimit), Message: "slow down"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	result, err := m.engine.Apply(ctx, &game.Action{
		Type:           msg.Type,
		GameID:         room.channel,
		UserID:         client.userID,
		IP:             client.ip,
		TargetID:       msg.TargetID,
		GuessText:      msg.GuessText,
		Content:        msg.Content,
		IdempotencyKey: msg.IdempotencyKey,
	})
	if err != nil {
		client.reply(ErrorReply(msg.RequestID, err))
		return
	}

	// Events already went to the room; the ack carries the caller's view.
	result.Events = nil
	client.reply(OutgoingMessage{Type: TypeAck, RequestID: msg.RequestID, Payload: result})
}

// ErrorReply builds the reply for a rejected action. Validation failures
// are errors, authorization failures are warnings, conflicts and rate
// limits keep their own type so clients can refresh or back off.
func ErrorReply(requestID string, err error) OutgoingMessage {
	kind := game.KindOf(err)
	payload := ErrorPayload{Kind: string(kind), Message: err.Error()}

	var ge *game.Error
	if errors.As(err, &ge) {
		payload.Scope = ge.Scope
	}

	msgType := TypeError
	switch kind {
	case game.KindAuthorization:
		msgType = TypeWarning
	case game.KindConflict:
		msgType = TypeConflict
	case game.KindRateLimit:
		msgType = string(game.KindRateLimit)
	case game.KindDependency:
		log.Error().Err(err).Msg("action failed")
		payload.Message = "something went wrong, try again"
	}

	return OutgoingMessage{Type: msgType, RequestID: requestID, Payload: payload}
}

func (c *Client) reply(message OutgoingMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal reply")
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
