package realtime

import "sync"

// Conn is the minimal connection surface the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
}

// ChatRoom and UserRoom name the two room namespaces.
func ChatRoom(chatID string) string { return "chat:" + chatID }
func UserRoom(userID string) string { return "user:" + userID }

// Hub tracks which connections have joined which rooms. Membership is
// process-local only; cross-process delivery rides the fan-out channel.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]struct{})}
}

// Join adds a connection to a room. Joining twice is a no-op.
func (h *Hub) Join(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

// Leave removes a connection from one room.
func (h *Hub) Leave(room string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// LeaveAll removes a connection from every room it joined. Called on
// disconnect; session state elsewhere is untouched (a socket drop is not
// a logout).
func (h *Hub) LeaveAll(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends v to every member of the room, best effort.
func (h *Hub) Broadcast(room string, v interface{}) {
	h.BroadcastExcept(room, v, nil)
}

// BroadcastExcept sends v to every member of the room but the excluded
// connection (the typing sender should not echo to itself).
func (h *Hub) BroadcastExcept(room string, v interface{}, except Conn) {
	h.mu.RLock()
	members := make([]Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range members {
		_ = c.WriteJSON(v)
	}
}

// RoomSize reports current membership, mainly for tests and diagnostics.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
