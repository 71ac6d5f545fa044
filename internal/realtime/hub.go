package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub tracks live connections and their room bindings and fans room events
// out. It satisfies service.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // connID -> client
	rooms   map[string]map[string]*Client // roomID -> connID -> client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[c.ID]; !ok || existing != c {
		return
	}
	delete(h.clients, c.ID)
	h.dropFromRoomLocked(c)
	c.closeSend()
}

// BindRoom moves the client into a room's broadcast group. A client belongs
// to at most one room; rebinding drops the old membership.
func (h *Hub) BindRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropFromRoomLocked(c)
	c.roomID = roomID
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][c.ID] = c
}

func (h *Hub) UnbindRoom(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropFromRoomLocked(c)
}

func (h *Hub) dropFromRoomLocked(c *Client) {
	if c.roomID == "" {
		return
	}
	if members, ok := h.rooms[c.roomID]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	c.roomID = ""
}

// BroadcastToRoom sends one event to every connection bound to roomID. A
// client whose send buffer is full is dropped rather than letting one slow
// reader stall the room.
func (h *Hub) BroadcastToRoom(roomID string, event string, payload interface{}) {
	data, err := json.Marshal(outEnvelope{Type: event, Payload: payload})
	if err != nil {
		log.Printf("ERROR: failed to marshal %s broadcast: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[roomID] {
		if !client.trySend(data) {
			log.Printf("WARN: dropping slow connection %s in room %s", client.ID, roomID)
			go client.conn.Close()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
