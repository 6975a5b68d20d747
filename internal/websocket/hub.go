package websocket

import "github.com/rs/zerolog/log"

const publishBuffer = 256

type userMessage struct {
	userID string
	data   []byte
}

// Hub maintains the set of active clients, grouped by the user they
// authenticated as, and delivers messages to one user's clients.
type Hub struct {
	// Registered clients by user id.
	users map[string]map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	publish chan userMessage
	done    chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		publish:    make(chan userMessage, publishBuffer),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for _, clients := range h.users {
				for client := range clients {
					client.closeSend()
				}
			}
			h.users = make(map[string]map[*Client]bool)
			return
		case client := <-h.Register:
			if h.users[client.UserID] == nil {
				h.users[client.UserID] = make(map[*Client]bool)
			}
			h.users[client.UserID][client] = true
			log.Info().Str("user_id", client.UserID).Int("user_clients", len(h.users[client.UserID])).Msg("Client connected")
		case client := <-h.Unregister:
			if h.remove(client) {
				log.Info().Str("user_id", client.UserID).Msg("Client disconnected")
			}
		case msg := <-h.publish:
			for client := range h.users[msg.userID] {
				if !client.trySend(msg.data) {
					// Slow client; drop it rather than block everyone else.
					h.remove(client)
				}
			}
		}
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// NotifyUser queues a message for all connections of userID. It never
// blocks the caller; messages are dropped if the hub is saturated.
func (h *Hub) NotifyUser(userID, action string, payload interface{}) {
	data, err := Encode(action, payload)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Error marshalling websocket message")
		return
	}
	select {
	case h.publish <- userMessage{userID: userID, data: data}:
	default:
		log.Warn().Str("user_id", userID).Str("action", action).Msg("Websocket hub saturated, dropping message")
	}
}

func (h *Hub) remove(client *Client) bool {
	clients, ok := h.users[client.UserID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	client.closeSend()
	if len(clients) == 0 {
		delete(h.users, client.UserID)
	}
	return true
}
