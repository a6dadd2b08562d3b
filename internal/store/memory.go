package store

import (
	"sync"

	"github.com/zerochat/zerochat/internal/types"
)

// MemoryStore keeps all room state in process memory. It owns its maps
// exclusively and only ever hands out copies.
type MemoryStore struct {
	mu         sync.RWMutex
	rooms      map[string]types.Room
	messages   map[string][]types.Message
	fileShares map[string][]types.FileShare
	users      map[string]types.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:      make(map[string]types.Room),
		messages:   make(map[string][]types.Message),
		fileShares: make(map[string][]types.FileShare),
		users:      make(map[string]types.User),
	}
}

func (s *MemoryStore) CreateRoom(room types.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[room.Id] = room
	s.messages[room.Id] = nil
	s.fileShares[room.Id] = nil
}

func (s *MemoryStore) GetRoom(roomId string) (types.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomId]
	return room, ok
}

func (s *MemoryStore) UpdateRoomPassphrase(roomId, passphraseHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomId]
	if !ok {
		return
	}

	room.PassphraseHash = passphraseHash
	s.rooms[roomId] = room
	s.messages[roomId] = nil
}

func (s *MemoryStore) DeleteRoom(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomId)
	delete(s.messages, roomId)
	delete(s.fileShares, roomId)

	for userId, user := range s.users {
		if user.RoomId == roomId {
			delete(s.users, userId)
		}
	}
}

func (s *MemoryStore) AddMessage(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.RoomId] = append(s.messages[msg.RoomId], msg)
}

// GetMessages returns the room's messages in insertion order.
func (s *MemoryStore) GetMessages(roomId string) []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[roomId]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (s *MemoryStore) DeleteMessage(roomId, messageId string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.messages[roomId]
	if !ok {
		return false
	}

	for i, msg := range msgs {
		if msg.Id == messageId {
			s.messages[roomId] = append(msgs[:i:i], msgs[i+1:]...)
			return true
		}
	}

	return false
}

func (s *MemoryStore) AddFileShare(fs types.FileShare) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fileShares[fs.RoomId] = append(s.fileShares[fs.RoomId], fs)
}

func (s *MemoryStore) GetFileShares(roomId string) []types.FileShare {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shares := s.fileShares[roomId]
	out := make([]types.FileShare, len(shares))
	copy(out, shares)
	return out
}

func (s *MemoryStore) AddUser(user types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.Id] = user
}

func (s *MemoryStore) GetUser(userId string) (types.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userId]
	return user, ok
}

func (s *MemoryStore) GetUsersInRoom(roomId string) []types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []types.User
	for _, user := range s.users {
		if user.RoomId == roomId {
			users = append(users, user)
		}
	}
	return users
}

func (s *MemoryStore) RemoveUser(userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userId)
}
