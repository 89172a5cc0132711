package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"wordplay/game"
)

type Client struct {
	conn    *websocket.Conn
	userID  string
	ip      string
	send    chan []byte
	limiter *rate.Limiter
}

// Room is the change feed of one game channel.
type Room struct {
	channel string
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewRoom(channel string) *Room {
	return &Room{
		channel: channel,
		clients: make(map[*Client]bool),
	}
}

func (r *Room) AddClient(client *Client) {
	r.mu.Lock()
	r.clients[client] = true
	r.mu.Unlock()
}

// RemoveClient drops the client and reports how many remain.
func (r *Room) RemoveClient(client *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[client]; ok {
		delete(r.clients, client)
		close(client.send)
	}
	return len(r.clients)
}

func (r *Room) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("channel", r.channel).Msg("failed to marshal broadcast")
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		select {
		case client.send <- data:
		default:
			// Slow client; it will refetch state on reconnect.
			log.Warn().Str("channel", r.channel).Str("userId", client.userID).Msg("client send buffer full")
		}
	}
}

func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Hub owns every room and is the engine's Notifier.
type Hub struct {
	rooms map[string]*Room
	mu    sync.Mutex
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*Room)}
}

func (h *Hub) Room(channel string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[channel]
	if !exists {
		room = NewRoom(channel)
		h.rooms[channel] = room
	}
	return room
}

func (h *Hub) leave(room *Room, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room.RemoveClient(client) == 0 && h.rooms[room.channel] == room {
		delete(h.rooms, room.channel)
	}
}

// Publish sends events to everyone subscribed to the game.
func (h *Hub) Publish(gameID string, events []*game.Event) {
	h.mu.Lock()
	room, ok := h.rooms[gameID]
	h.mu.Unlock()
	if !ok {
		return
	}

	for _, ev := range events {
		room.Broadcast(OutgoingMessage{Type: ev.Type, Payload: ev.Payload})
	}
}

// PublishLobby pushes the current list of open games to lobby watchers.
func (h *Hub) PublishLobby(games []*game.GameState) {
	h.mu.Lock()
	room, ok := h.rooms[LobbyChannel]
	h.mu.Unlock()
	if !ok {
		return
	}
	room.Broadcast(OutgoingMessage{Type: "games_update", Payload: games})
}
