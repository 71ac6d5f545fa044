package arena

import (
	"strings"
	"sync"
	"duel_arena/internal/common"

	"github.com/google/uuid"
)

// Registry is the in-memory directory of active rooms. It is an owned object
// constructed once at process start, not a package global, so tests can run
// independent registries in one process.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	conns map[string]string // connID -> roomID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		conns: make(map[string]string),
	}
}

// Create allocates a room with the host as first participant. A caller-picked
// id must be unique among active rooms; an empty id gets a generated code.
func (g *Registry) Create(requestedID string, host Participant, cfg RoomConfig) (*Room, error) {
	id := strings.TrimSpace(requestedID)

	g.mu.Lock()
	defer g.mu.Unlock()

	if id == "" {
		id = generateRoomCode()
		for _, taken := g.rooms[id]; taken; _, taken = g.rooms[id] {
			id = generateRoomCode()
		}
	} else if _, taken := g.rooms[id]; taken {
		return nil, common.ErrRoomIDTaken
	}

	room := newRoom(id, host, cfg)
	g.rooms[id] = room
	g.conns[host.ConnID] = id
	return room, nil
}

// Join attaches a participant to an existing waiting room.
func (g *Registry) Join(roomID string, p Participant) (*Room, error) {
	g.mu.RLock()
	room := g.rooms[roomID]
	g.mu.RUnlock()

	if room == nil {
		return nil, common.ErrRoomNotFound
	}
	if err := room.addParticipant(p); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.conns[p.ConnID] = roomID
	g.mu.Unlock()
	return room, nil
}

// Leave detaches the connection from its room, destroying a waiting room that
// empties out. The caller handles forfeit when an in-progress room is left
// with a single participant.
func (g *Registry) Leave(connID string) (room *Room, left Participant, remaining int, status RoomStatus, ok bool) {
	g.mu.Lock()
	roomID, bound := g.conns[connID]
	if bound {
		delete(g.conns, connID)
	}
	room = g.rooms[roomID]
	g.mu.Unlock()

	if !bound || room == nil {
		return nil, Participant{}, 0, "", false
	}

	left, remaining, status, found := room.removeParticipant(connID)
	if !found {
		return nil, Participant{}, 0, "", false
	}

	if remaining == 0 && status == StatusWaiting {
		g.Destroy(roomID)
	}
	return room, left, remaining, status, true
}

func (g *Registry) Get(roomID string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rooms[roomID]
}

// RoomByConn resolves the room a connection is currently joined to.
func (g *Registry) RoomByConn(connID string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rooms[g.conns[connID]]
}

// Destroy removes the room and every connection binding pointing at it.
func (g *Registry) Destroy(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room := g.rooms[roomID]
	if room == nil {
		return
	}
	room.StopTimer()
	for conn, id := range g.conns {
		if id == roomID {
			delete(g.conns, conn)
		}
	}
	delete(g.rooms, roomID)
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// generateRoomCode returns a short human-shareable code.
func generateRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
