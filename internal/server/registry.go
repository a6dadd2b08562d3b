package server

import (
	"sync"
)

type binding struct {
	userId   string
	username string
	roomId   string
}

// ConnectionRegistry maps live connections to the (user, room) identity
// each represents. A user holds at most one connection at a time; a
// connection holds at most one binding. Registration and binding are
// separate steps: a connection exists from the websocket upgrade, a
// binding only after a successful join.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	conns   map[*Client]binding
	users   map[string]*Client
	rooms   map[string]map[*Client]struct{}
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		clients: make(map[*Client]struct{}),
		conns:   make(map[*Client]binding),
		users:   make(map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (r *ConnectionRegistry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c] = struct{}{}
}

// Deregister removes the connection and any binding it still holds.
func (r *ConnectionRegistry) Deregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unbindLocked(c)
	delete(r.clients, c)
}

func (r *ConnectionRegistry) Bind(c *Client, userId, username, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unbindLocked(c)

	r.conns[c] = binding{userId: userId, username: username, roomId: roomId}
	r.users[userId] = c

	if r.rooms[roomId] == nil {
		r.rooms[roomId] = make(map[*Client]struct{})
	}
	r.rooms[roomId][c] = struct{}{}
}

func (r *ConnectionRegistry) Unbind(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unbindLocked(c)
}

func (r *ConnectionRegistry) unbindLocked(c *Client) {
	b, ok := r.conns[c]
	if !ok {
		return
	}

	delete(r.conns, c)
	if r.users[b.userId] == c {
		delete(r.users, b.userId)
	}
	if clients, ok := r.rooms[b.roomId]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(r.rooms, b.roomId)
		}
	}
}

func (r *ConnectionRegistry) BindingFor(c *Client) (binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.conns[c]
	return b, ok
}

// ConnectionFor returns the live connection a user owns, or nil. Callers
// routing by user identity must additionally check the room store: a row
// here may be stale if the user record was already removed.
func (r *ConnectionRegistry) ConnectionFor(userId string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.users[userId]
}

func (r *ConnectionRegistry) ClientsInRoom(roomId string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.rooms[roomId]))
	for c := range r.rooms[roomId] {
		clients = append(clients, c)
	}
	return clients
}

func (r *ConnectionRegistry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}
