package store

import (
	"log"
	"sync"

	"github.com/zerochat/zerochat/internal/database"
	"github.com/zerochat/zerochat/internal/types"
)

// DualStore layers a durable replica behind a MemoryStore. Rooms created
// with the persistent storage mode have their mutations mirrored into the
// repository; ephemeral rooms never touch it. The memory store remains the
// source of truth for live traffic: a failed durable write is logged and
// the in-memory operation still counts as a success.
//
// Deleting a room does NOT delete the durable replica. A persistent room
// purged from memory when its last member leaves reappears intact the next
// time anything references its id and triggers hydration.
type DualStore struct {
	mem  *MemoryStore
	repo database.ChatRepository
	log  *log.Logger

	// one hydration per room at a time; entries are never reaped, the
	// leak is bounded by distinct room ids seen
	hydrateLocks sync.Map
}

// NewDualStore wraps mem with write-through mirroring into repo. A nil
// repo disables the durable replica entirely (ephemeral-only server).
func NewDualStore(mem *MemoryStore, repo database.ChatRepository, logger *log.Logger) *DualStore {
	return &DualStore{
		mem:  mem,
		repo: repo,
		log:  logger,
	}
}

func (s *DualStore) CreateRoom(room types.Room) {
	s.mem.CreateRoom(room)

	if s.repo == nil || !room.Persistent() {
		return
	}

	if err := s.repo.CreateRoom(room); err != nil {
		s.log.Printf("durable create room %q: %v", room.Id, err)
	}
}

// GetRoom answers from memory, hydrating the room and its messages and
// file shares from the durable replica on a cache miss. Concurrent
// misses on the same room serialize through a per-room mutex so history
// is installed exactly once.
func (s *DualStore) GetRoom(roomId string) (types.Room, bool) {
	if room, ok := s.mem.GetRoom(roomId); ok {
		return room, true
	}

	if s.repo == nil {
		return types.Room{}, false
	}

	mu, _ := s.hydrateLocks.LoadOrStore(roomId, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	// a hydration that won the lock first may have filled the cache
	if room, ok := s.mem.GetRoom(roomId); ok {
		return room, true
	}

	room, err := s.repo.GetRoom(roomId)
	if err != nil {
		if err != database.ErrNotFound {
			s.log.Printf("durable get room %q: %v", roomId, err)
		}
		return types.Room{}, false
	}

	s.mem.CreateRoom(room)

	msgs, err := s.repo.GetMessages(roomId)
	if err != nil {
		s.log.Printf("durable get messages for room %q: %v", roomId, err)
	}
	for _, msg := range msgs {
		s.mem.AddMessage(msg)
	}

	shares, err := s.repo.GetFileShares(roomId)
	if err != nil {
		s.log.Printf("durable get file shares for room %q: %v", roomId, err)
	}
	for _, fs := range shares {
		s.mem.AddFileShare(fs)
	}

	return room, true
}

// UpdateRoomPassphrase clears message history in both stores but leaves
// the durable room row in place, mirroring the in-memory behavior.
func (s *DualStore) UpdateRoomPassphrase(roomId, passphraseHash string) {
	persistent := s.roomPersistent(roomId)
	s.mem.UpdateRoomPassphrase(roomId, passphraseHash)

	if s.repo == nil || !persistent {
		return
	}

	if err := s.repo.UpdateRoomPassphrase(roomId, passphraseHash); err != nil {
		s.log.Printf("durable update passphrase for room %q: %v", roomId, err)
	}
	if err := s.repo.DeleteMessages(roomId); err != nil {
		s.log.Printf("durable clear history for room %q: %v", roomId, err)
	}
}

// DeleteRoom is a memory-only purge; the durable replica is kept on
// purpose so persistent rooms survive going empty.
func (s *DualStore) DeleteRoom(roomId string) {
	s.mem.DeleteRoom(roomId)
}

func (s *DualStore) AddMessage(msg types.Message) {
	persistent := s.roomPersistent(msg.RoomId)
	s.mem.AddMessage(msg)

	if s.repo == nil || !persistent {
		return
	}

	if err := s.repo.CreateMessage(msg); err != nil {
		s.log.Printf("durable create message %q: %v", msg.Id, err)
	}
}

func (s *DualStore) GetMessages(roomId string) []types.Message {
	return s.mem.GetMessages(roomId)
}

// DeleteMessage removes from memory only: expired messages are not part
// of the durable mirror set.
func (s *DualStore) DeleteMessage(roomId, messageId string) bool {
	return s.mem.DeleteMessage(roomId, messageId)
}

func (s *DualStore) AddFileShare(fs types.FileShare) {
	persistent := s.roomPersistent(fs.RoomId)
	s.mem.AddFileShare(fs)

	if s.repo == nil || !persistent {
		return
	}

	if err := s.repo.CreateFileShare(fs); err != nil {
		s.log.Printf("durable create file share %q: %v", fs.Id, err)
	}
}

func (s *DualStore) GetFileShares(roomId string) []types.FileShare {
	return s.mem.GetFileShares(roomId)
}

func (s *DualStore) AddUser(user types.User) {
	s.mem.AddUser(user)
}

func (s *DualStore) GetUser(userId string) (types.User, bool) {
	return s.mem.GetUser(userId)
}

func (s *DualStore) GetUsersInRoom(roomId string) []types.User {
	return s.mem.GetUsersInRoom(roomId)
}

func (s *DualStore) RemoveUser(userId string) {
	s.mem.RemoveUser(userId)
}

func (s *DualStore) roomPersistent(roomId string) bool {
	room, ok := s.mem.GetRoom(roomId)
	return ok && room.Persistent()
}
