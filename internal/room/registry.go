// Package room tracks which live connections are joined to which chat room
// and fans events out to them. Membership is derived state: it exists only
// while connections are up and is cleared on disconnect.
package room

import "sync"

// Conn is a live connection the registry can deliver events to.
type Conn interface {
	ID() string
	Send(event string, data any)
}

// Registry is a concurrency-safe mapping from chat id to the set of
// connections currently joined to it. It also tracks every live connection
// so events can be broadcast process-wide.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
	rooms map[int64]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		rooms: make(map[int64]map[string]Conn),
	}
}

// Register adds a live connection. Idempotent.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

// Unregister removes the connection entirely, including from every room it
// joined.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.removeFromRoomsLocked(connID)
	r.mu.Unlock()
}

// Join adds the connection to the room's membership set. Idempotent: joining
// twice never causes duplicate delivery.
func (r *Registry) Join(roomID int64, c Conn) {
	r.mu.Lock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]Conn)
		r.rooms[roomID] = members
	}
	members[c.ID()] = c
	r.mu.Unlock()
}

// Leave removes the connection from the room. No-op if absent.
func (r *Registry) Leave(roomID int64, connID string) {
	r.mu.Lock()
	if members, ok := r.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	r.mu.Unlock()
}

// LeaveAll removes the connection from every room it was a member of.
// Called on disconnect.
func (r *Registry) LeaveAll(connID string) {
	r.mu.Lock()
	r.removeFromRoomsLocked(connID)
	r.mu.Unlock()
}

func (r *Registry) removeFromRoomsLocked(connID string) {
	for roomID, members := range r.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// IsMember reports whether the connection is currently joined to the room.
func (r *Registry) IsMember(roomID int64, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[connID]
	return ok
}

// Members returns a snapshot of the connections joined to the room.
func (r *Registry) Members(roomID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]Conn, 0, len(r.rooms[roomID]))
	for _, c := range r.rooms[roomID] {
		members = append(members, c)
	}
	return members
}

// Conns returns a snapshot of every live connection.
func (r *Registry) Conns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// BroadcastToRoom delivers the event to every connection joined to roomID,
// skipping exceptID if non-empty. Each member receives the event at most
// once.
func (r *Registry) BroadcastToRoom(roomID int64, event string, data any, exceptID string) {
	for _, c := range r.Members(roomID) {
		if exceptID != "" && c.ID() == exceptID {
			continue
		}
		c.Send(event, data)
	}
}

// BroadcastToAll delivers the event to every live connection.
func (r *Registry) BroadcastToAll(event string, data any) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		c.Send(event, data)
	}
}
