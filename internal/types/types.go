package types

import (
	"time"
)

const (
	StorageModeEphemeral  = "ephemeral"
	StorageModePersistent = "persistent"
)

type Room struct {
	Id             string    `json:"id"`
	Name           string    `json:"name"`
	PassphraseHash string    `json:"-"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	StorageMode    string    `json:"storageMode"`
}

func (r Room) Persistent() bool {
	return r.StorageMode == StorageModePersistent
}

// Message content, signature and public key are opaque to the server:
// encryption and verification happen on the client side.
type Message struct {
	Id         string `json:"id"`
	RoomId     string `json:"roomId"`
	UserId     string `json:"userId"`
	Username   string `json:"username"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	IsSystem   bool   `json:"isSystem"`
	TtlSeconds int    `json:"ttl,omitempty"`
	Signature  string `json:"signature,omitempty"`
	PublicKey  string `json:"publicKey,omitempty"`
	Verified   bool   `json:"verified"`
}

type User struct {
	Id        string    `json:"id"`
	Username  string    `json:"username"`
	RoomId    string    `json:"roomId"`
	IsAdmin   bool      `json:"isAdmin"`
	PublicKey string    `json:"publicKey,omitempty"`
	JoinedAt  time.Time `json:"joinedAt"`
}

type FileShare struct {
	Id            string `json:"id"`
	RoomId        string `json:"roomId"`
	UserId        string `json:"userId"`
	Username      string `json:"username"`
	Filename      string `json:"filename"`
	EncryptedData string `json:"encryptedData"`
	MimeType      string `json:"mimeType"`
	FileSize      int64  `json:"fileSize"`
	Timestamp     int64  `json:"timestamp"`
	Signature     string `json:"signature,omitempty"`
}
