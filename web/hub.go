package web

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"idlebot/game"
)

// BotController defines the interface that the web package uses to interact with the bot.
// This is used to avoid circular dependencies between the web and main packages.
type BotController interface {
	// State returns a JSON-encoded representation of the current bot state.
	State() ([]byte, error)
	Pause()
	Resume()
	// UpdateSetting persists one bot setting; it applies from the next session.
	UpdateSetting(key string, value any) error
}

// Message is the envelope pushed to dashboard clients.
type Message struct {
	Type    string         `json:"type"`
	Time    time.Time      `json:"time"`
	Message string         `json:"message,omitempty"`
	Stats   []game.Stat    `json:"stats,omitempty"`
	State   map[string]any `json:"state,omitempty"`
}

const (
	MessageNotice = "notice"
	MessageError  = "error"
	MessageStats  = "stats"
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients.
// It also implements game.StatusSink so the scheduler can report through it.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages for all clients.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns; nobody reads register or unregister after that.
	done     chan struct{}
	doneOnce sync.Once

	// bot is a reference to the bot, used to fetch state.
	bot BotController
}

// NewHub creates a new Hub.
func NewHub(bot BotController) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		bot:        bot,
	}
}

// SetBot attaches the controller once it exists.
func (h *Hub) SetBot(bot BotController) {
	h.bot = bot
}

// Run starts the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.doneOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// publish queues msg for all clients. Messages are dropped while the queue is full.
func (h *Hub) publish(msg Message) {
	if h == nil {
		return
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Web] failed to encode %s message: %v", msg.Type, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

func (h *Hub) Notify(message string) {
	h.publish(Message{Type: MessageNotice, Message: message})
}

func (h *Hub) Error(message string) {
	h.publish(Message{Type: MessageError, Message: message})
}

func (h *Hub) Stats(stats game.StatsSnapshot) {
	h.publish(Message{Type: MessageStats, Stats: stats})
}

// BroadcastFullState fetches the current state from the bot and broadcasts it to all clients.
func (h *Hub) BroadcastFullState() {
	if h == nil || h.bot == nil {
		return
	}
	state, err := h.bot.State()
	if err != nil {
		log.Printf("[Web] error getting bot state for broadcast: %v", err)
		return
	}
	var decoded map[string]any
	if err := json.Unmarshal(state, &decoded); err != nil {
		log.Printf("[Web] bot state is not a JSON object: %v", err)
		return
	}
	h.publish(Message{Type: "state", State: decoded})
}
