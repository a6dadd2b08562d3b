package database

import (
	"errors"

	"github.com/zerochat/zerochat/internal/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ChatRepository is the durable replica behind the in-memory room store.
// It never owns live state; it mirrors persistent-mode rooms and serves
// lazy hydration after a cache miss.
type ChatRepository interface {
	CreateRoom(room types.Room) error
	GetRoom(roomId string) (types.Room, error)
	UpdateRoomPassphrase(roomId, passphraseHash string) error

	CreateMessage(msg types.Message) error
	// GetMessages returns a room's messages in insertion order.
	GetMessages(roomId string) ([]types.Message, error)
	// DeleteMessages clears a room's durable message history.
	DeleteMessages(roomId string) error

	CreateFileShare(fs types.FileShare) error
	GetFileShares(roomId string) ([]types.FileShare, error)
}
