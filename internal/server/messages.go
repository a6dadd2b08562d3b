package server

import (
	"encoding/json"
	"time"

	"github.com/zerochat/zerochat/internal/types"
)

// Inbound event names.
const (
	EventJoin             = "join"
	EventSendMessage      = "send_message"
	EventChangePassphrase = "change_passphrase"
	EventLeaveRoom        = "leave_room"
	EventShareFile        = "share_file"
	EventWebRTCSignal     = "webrtc_signal"
)

// Outbound event names.
const (
	EventError             = "error"
	EventMessageBroadcast  = "message_broadcast"
	EventMessageDeleted    = "message_deleted"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventUserListUpdate    = "user_list_update"
	EventFileShared        = "file_shared"
	EventClearHistory      = "clear_history"
	EventPassphraseChanged = "passphrase_changed"
)

// ClientEvent is the envelope every inbound frame arrives in.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRequest struct {
	RoomId     string `json:"roomId"`
	Username   string `json:"username"`
	Passphrase string `json:"passphrase"`
	UserId     string `json:"userId"`
	IsAdmin    bool   `json:"isAdmin"`
	PublicKey  string `json:"publicKey"`
}

type SendMessageRequest struct {
	Id        string `json:"id"`
	RoomId    string `json:"roomId"`
	UserId    string `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Ttl       int    `json:"ttl"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

type ChangePassphraseRequest struct {
	RoomId        string `json:"roomId"`
	UserId        string `json:"userId"`
	NewPassphrase string `json:"newPassphrase"`
}

type LeaveRoomRequest struct {
	RoomId string `json:"roomId"`
	UserId string `json:"userId"`
}

type ShareFileRequest struct {
	RoomId        string `json:"roomId"`
	UserId        string `json:"userId"`
	Username      string `json:"username"`
	Filename      string `json:"filename"`
	EncryptedData string `json:"encryptedData"`
	MimeType      string `json:"mimeType"`
	FileSize      int64  `json:"fileSize"`
	Signature     string `json:"signature"`
}

type WebRTCSignalRequest struct {
	TargetUserId string          `json:"targetUserId"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data"`
	SenderId     string          `json:"senderId"`
}

// ServerEvent is the envelope every outbound frame is sent in.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal,omitempty"`
}

type UserRef struct {
	UserId   string `json:"userId"`
	Username string `json:"username"`
}

type UserListPayload struct {
	Users []types.User `json:"users"`
}

type MessageDeletedPayload struct {
	MessageId string `json:"messageId"`
}

type WebRTCSignalPayload struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
	SenderId string          `json:"senderId"`
}

func errRoomNotFound() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: "Room not found", Fatal: true},
	}
}

func errInvalidPassphrase() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: "Invalid passphrase", Fatal: true},
	}
}

func errUsernameTaken() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: "Username already taken in this room"},
	}
}

func errUnauthorized() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: "Unauthorized - Admin only"},
	}
}

func errInvalidEvent() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: "Invalid event format"},
	}
}

func messageBroadcast(msg types.Message) *ServerEvent {
	return &ServerEvent{Event: EventMessageBroadcast, Data: msg}
}

func messageDeleted(messageId string) *ServerEvent {
	return &ServerEvent{Event: EventMessageDeleted, Data: MessageDeletedPayload{MessageId: messageId}}
}

func userJoined(user types.User) *ServerEvent {
	return &ServerEvent{Event: EventUserJoined, Data: UserRef{UserId: user.Id, Username: user.Username}}
}

func userLeft(userId, username string) *ServerEvent {
	return &ServerEvent{Event: EventUserLeft, Data: UserRef{UserId: userId, Username: username}}
}

func userListUpdate(users []types.User) *ServerEvent {
	if users == nil {
		users = []types.User{}
	}
	return &ServerEvent{Event: EventUserListUpdate, Data: UserListPayload{Users: users}}
}

func fileShared(fs types.FileShare) *ServerEvent {
	return &ServerEvent{Event: EventFileShared, Data: fs}
}

func clearHistory() *ServerEvent {
	return &ServerEvent{Event: EventClearHistory, Data: struct{}{}}
}

func passphraseChanged() *ServerEvent {
	return &ServerEvent{Event: EventPassphraseChanged, Data: struct{}{}}
}

func webrtcSignal(signalType string, data json.RawMessage, senderId string) *ServerEvent {
	return &ServerEvent{
		Event: EventWebRTCSignal,
		Data:  WebRTCSignalPayload{Type: signalType, Data: data, SenderId: senderId},
	}
}

// Now returns the current time as epoch milliseconds, the wire format for
// message and file share timestamps.
func Now() int64 {
	return time.Now().UTC().UnixMilli()
}
