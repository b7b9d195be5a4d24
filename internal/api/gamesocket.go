package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eyalm/folio/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin enforcement happens at the proxy
	},
}

// frame is the wire format on the game socket, both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// gameClient is one connected game socket.
type gameClient struct {
	hub  *GameHub
	id   string
	conn *websocket.Conn
	send chan []byte
}

// GameHub fans game events out to WebSocket connections and feeds
// incoming frames into the game service. It implements game.Gateway;
// per that contract its methods never block, a client whose send
// buffer is full gets dropped.
type GameHub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*gameClient
	rooms   map[string]map[string]*gameClient

	svc *game.Service
}

func NewGameHub(logger *slog.Logger) *GameHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameHub{
		logger:  logger,
		clients: make(map[string]*gameClient),
		rooms:   make(map[string]map[string]*gameClient),
	}
}

// Bind attaches the game service. The hub and the service reference
// each other, so the service is constructed second and bound here.
func (h *GameHub) Bind(svc *game.Service) {
	h.svc = svc
}

// Subscribe implements game.Gateway.
func (h *GameHub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[string]*gameClient)
		h.rooms[roomID] = set
	}
	set[connID] = c
}

// Unsubscribe implements game.Gateway.
func (h *GameHub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.rooms[roomID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// ToRoom implements game.Gateway.
func (h *GameHub) ToRoom(roomID, event string, data any) {
	msg, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error("encoding game frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomID] {
		c.trySend(msg)
	}
}

// ToAll implements game.Gateway.
func (h *GameHub) ToAll(event string, data any) {
	msg, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error("encoding game frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.trySend(msg)
	}
}

// ToConn implements game.Gateway.
func (h *GameHub) ToConn(connID, event string, data any) {
	msg, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error("encoding game frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		c.trySend(msg)
	}
}

// ClientCount returns the number of connected game sockets.
func (h *GameHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Event: event, Data: raw})
}

// trySend queues msg without blocking. Caller holds at least the read
// lock, so the channel cannot be closed concurrently.
func (c *gameClient) trySend(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.hub.logger.Warn("dropping frame for slow game client", "conn", c.id)
	}
}

// handleGameSocket upgrades the connection and runs the pumps.
func (r *Router) handleGameSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("game socket upgrade failed", "error", err)
		return
	}

	c := &gameClient{
		hub:  r.gameHub,
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}

	r.gameHub.mu.Lock()
	r.gameHub.clients[c.id] = c
	total := len(r.gameHub.clients)
	r.gameHub.mu.Unlock()
	r.logger.Info("game client connected", "conn", c.id, "ip", getClientIP(req), "total", total)

	go c.writePump()
	go c.readPump()
}

func (h *GameHub) drop(c *gameClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for roomID, set := range h.rooms {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
	close(c.send)
	h.mu.Unlock()

	h.svc.Disconnect(c.id)
	h.logger.Info("game client disconnected", "conn", c.id)
}

// readPump parses frames and dispatches them to the game service.
func (c *gameClient) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Warn("game socket read error", "conn", c.id, "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.hub.logger.Debug("ignoring malformed game frame", "conn", c.id)
			continue
		}
		c.dispatch(f)
	}
}

func (c *gameClient) dispatch(f frame) {
	switch f.Event {
	case game.EventRooms:
		c.hub.svc.SendLobby(c.id)

	case game.EventJoin:
		var req game.JoinRequest
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &req); err != nil {
				c.hub.logger.Debug("bad join payload", "conn", c.id)
				return
			}
		}
		c.hub.svc.Join(c.id, req.Name)

	case game.EventAnswer:
		var req game.AnswerRequest
		if err := json.Unmarshal(f.Data, &req); err != nil {
			c.hub.logger.Debug("bad answer payload", "conn", c.id)
			return
		}
		c.hub.svc.Answer(c.id, req.Answer)

	default:
		c.hub.logger.Debug("unknown game event", "conn", c.id, "event", f.Event)
	}
}

// writePump drains the send channel and keeps the connection alive.
func (c *gameClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
