package store

import (
	"github.com/zerochat/zerochat/internal/types"
)

// RoomStore is the authoritative state of rooms, their members, messages
// and file shares. All operations are synchronous; callers mutating the
// same room concurrently must serialize per room (the chat server holds a
// per-room lock around every mutating event).
type RoomStore interface {
	CreateRoom(room types.Room)
	// GetRoom reports ok=false on a miss rather than returning an error.
	GetRoom(roomId string) (types.Room, bool)
	// UpdateRoomPassphrase also clears the room's message history:
	// history is void once the shared secret changes.
	UpdateRoomPassphrase(roomId, passphraseHash string)
	DeleteRoom(roomId string)

	AddMessage(msg types.Message)
	GetMessages(roomId string) []types.Message
	// DeleteMessage reports whether a message was actually removed, so
	// timer-driven deletes can stay idempotent without re-notifying.
	DeleteMessage(roomId, messageId string) bool

	AddFileShare(fs types.FileShare)
	GetFileShares(roomId string) []types.FileShare

	AddUser(user types.User)
	GetUser(userId string) (types.User, bool)
	GetUsersInRoom(roomId string) []types.User
	RemoveUser(userId string)
}
