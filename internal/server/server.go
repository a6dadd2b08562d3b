package server

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zerochat/zerochat/internal/stats"
	"github.com/zerochat/zerochat/internal/store"
	"github.com/zerochat/zerochat/internal/types"
)

// evictionNoticeDelay is the pause between delivering a passphrase_changed
// notice and force-disconnecting the evicted member, so the write pump can
// flush the notice first.
const evictionNoticeDelay = 200 * time.Millisecond

const (
	statConnections = "NumConnections"
	statActiveRooms = "NumActiveRooms"
	statMessages    = "NumMessages"
	statFileShares  = "NumFileShares"
)

// ChatServer dispatches the room event protocol. Every mutating operation
// on a room runs under that room's lock, so join/send/rotate/leave on one
// room never interleave their state changes; distinct rooms proceed in
// parallel.
type ChatServer struct {
	log       *log.Logger
	store     store.RoomStore
	registry  *ConnectionRegistry
	scheduler *ExpiryScheduler
	stats     stats.StatsProvider
	roomLocks sync.Map
}

func NewChatServer(logger *log.Logger, st store.RoomStore, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:      logger,
		store:    st,
		registry: NewConnectionRegistry(),
		stats:    su,
	}
	cs.scheduler = NewExpiryScheduler(cs.expireMessage)

	for _, name := range []string{statConnections, statActiveRooms, statMessages, statFileShares} {
		su.RegisterMetric(name)
	}

	return cs, nil
}

// roomLock returns the mutex serializing all mutations on roomId. Locks
// are never reaped; the leak is bounded by distinct room ids seen.
func (cs *ChatServer) roomLock(roomId string) *sync.Mutex {
	mu, _ := cs.roomLocks.LoadOrStore(roomId, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// RegisterClient records a new, room-less connection.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.log.Printf("connection %q established", c.id)
	cs.registry.Register(c)
	cs.stats.Incr(statConnections)
}

func (cs *ChatServer) handleJoin(c *Client, req *JoinRequest) {
	mu := cs.roomLock(req.RoomId)
	mu.Lock()
	defer mu.Unlock()

	room, ok := cs.store.GetRoom(req.RoomId)
	if !ok {
		c.queueEvent(errRoomNotFound())
		c.close()
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(room.PassphraseHash), []byte(req.Passphrase)) != nil {
		c.queueEvent(errInvalidPassphrase())
		c.close()
		return
	}

	members := cs.store.GetUsersInRoom(req.RoomId)
	for _, u := range members {
		if u.Username == req.Username && u.Id != req.UserId {
			c.queueEvent(errUsernameTaken())
			return
		}
	}

	user := types.User{
		Id:        req.UserId,
		Username:  req.Username,
		RoomId:    req.RoomId,
		IsAdmin:   req.IsAdmin,
		PublicKey: req.PublicKey,
		JoinedAt:  time.Now().UTC(),
	}
	cs.store.AddUser(user)
	cs.registry.Bind(c, user.Id, user.Username, user.RoomId)

	// History replays to the joiner before it becomes visible to others,
	// so a broadcast racing the join is never lost or duplicated for it.
	for _, msg := range cs.store.GetMessages(req.RoomId) {
		c.queueEvent(messageBroadcast(msg))
	}

	cs.broadcast(req.RoomId, userJoined(user), c)
	cs.broadcast(req.RoomId, userListUpdate(cs.store.GetUsersInRoom(req.RoomId)), nil)

	if len(members) == 0 {
		cs.stats.Incr(statActiveRooms)
	}

	cs.log.Printf("user %q joined room %q", user.Username, room.Id)
}

func (cs *ChatServer) handleSendMessage(c *Client, req *SendMessageRequest) {
	mu := cs.roomLock(req.RoomId)
	mu.Lock()
	defer mu.Unlock()

	msg := types.Message{
		Id:         req.Id,
		RoomId:     req.RoomId,
		UserId:     req.UserId,
		Username:   req.Username,
		Content:    req.Content,
		Timestamp:  Now(),
		TtlSeconds: req.Ttl,
		Signature:  req.Signature,
		PublicKey:  req.PublicKey,
	}
	if msg.Id == "" {
		msg.Id = uuid.NewString()
	}

	cs.store.AddMessage(msg)
	cs.broadcast(req.RoomId, messageBroadcast(msg), nil)
	cs.stats.Incr(statMessages)

	if req.Ttl > 0 {
		cs.scheduler.Schedule(req.RoomId, msg.Id, time.Duration(req.Ttl)*time.Second)
	}
}

// expireMessage is the scheduler callback. Deletion is idempotent: a
// message already removed by a clear or room deletion is a silent no-op
// and never re-notifies.
func (cs *ChatServer) expireMessage(roomId, messageId string) {
	mu := cs.roomLock(roomId)
	mu.Lock()
	defer mu.Unlock()

	if cs.store.DeleteMessage(roomId, messageId) {
		cs.broadcast(roomId, messageDeleted(messageId), nil)
	}
}

func (cs *ChatServer) handleChangePassphrase(c *Client, req *ChangePassphraseRequest) {
	mu := cs.roomLock(req.RoomId)
	mu.Lock()
	defer mu.Unlock()

	user, ok := cs.store.GetUser(req.UserId)
	if !ok || !user.IsAdmin || user.RoomId != req.RoomId {
		c.queueEvent(errUnauthorized())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassphrase), bcrypt.DefaultCost)
	if err != nil {
		cs.log.Println("hash passphrase:", err)
		c.queueEvent(errInvalidEvent())
		return
	}

	cs.store.UpdateRoomPassphrase(req.RoomId, string(hash))
	cs.log.Printf("passphrase rotated for room %q, evicting members", req.RoomId)

	for _, u := range cs.store.GetUsersInRoom(req.RoomId) {
		target := cs.registry.ConnectionFor(u.Id)
		if target == nil {
			continue
		}

		target.queueEvent(clearHistory())

		if u.Id == req.UserId {
			continue
		}

		// Evicted members hear why before the connection drops.
		target.queueEvent(passphraseChanged())
		time.Sleep(evictionNoticeDelay)

		cs.store.RemoveUser(u.Id)
		cs.registry.Unbind(target)
		target.close()
	}

	cs.broadcast(req.RoomId, userListUpdate(cs.store.GetUsersInRoom(req.RoomId)), nil)
}

func (cs *ChatServer) handleLeaveRoom(c *Client, req *LeaveRoomRequest) {
	mu := cs.roomLock(req.RoomId)
	mu.Lock()
	defer mu.Unlock()

	user, ok := cs.store.GetUser(req.UserId)
	if !ok || user.RoomId != req.RoomId {
		return
	}

	cs.removeUserLocked(c, user)
}

// handleDisconnect runs when a connection's read pump exits, whether the
// peer left cleanly or the socket died.
func (cs *ChatServer) handleDisconnect(c *Client) {
	defer func() {
		cs.registry.Deregister(c)
		cs.stats.Decr(statConnections)
	}()

	b, ok := cs.registry.BindingFor(c)
	if !ok {
		return
	}

	mu := cs.roomLock(b.roomId)
	mu.Lock()
	defer mu.Unlock()

	// The user record may already be gone if this disconnect was a
	// rotation eviction; nothing left to do then.
	user, ok := cs.store.GetUser(b.userId)
	if !ok || user.RoomId != b.roomId {
		return
	}

	cs.removeUserLocked(c, user)
}

// removeUserLocked removes a member and deletes the room once empty. The
// caller holds the room lock. Room deletion only purges memory: the
// durable replica of a persistent room deliberately survives so the room
// can rehydrate later.
func (cs *ChatServer) removeUserLocked(c *Client, user types.User) {
	cs.store.RemoveUser(user.Id)
	cs.registry.Unbind(c)

	cs.broadcast(user.RoomId, userLeft(user.Id, user.Username), nil)
	cs.broadcast(user.RoomId, userListUpdate(cs.store.GetUsersInRoom(user.RoomId)), nil)

	if len(cs.store.GetUsersInRoom(user.RoomId)) == 0 {
		cs.log.Printf("room %q is empty, deleting", user.RoomId)
		cs.store.DeleteRoom(user.RoomId)
		cs.scheduler.CancelRoom(user.RoomId)
		cs.stats.Decr(statActiveRooms)
	}
}

func (cs *ChatServer) handleShareFile(c *Client, req *ShareFileRequest) {
	mu := cs.roomLock(req.RoomId)
	mu.Lock()
	defer mu.Unlock()

	fs := types.FileShare{
		Id:            uuid.NewString(),
		RoomId:        req.RoomId,
		UserId:        req.UserId,
		Username:      req.Username,
		Filename:      req.Filename,
		EncryptedData: req.EncryptedData,
		MimeType:      req.MimeType,
		FileSize:      req.FileSize,
		Timestamp:     Now(),
		Signature:     req.Signature,
	}

	cs.store.AddFileShare(fs)
	cs.broadcast(req.RoomId, fileShared(fs), nil)
	cs.stats.Incr(statFileShares)
}

// handleWebRTCSignal relays point-to-point. An unreachable target is a
// silent drop: the sender cannot tell "not yet joined" from "already
// left", so there is nothing useful to report.
func (cs *ChatServer) handleWebRTCSignal(c *Client, req *WebRTCSignalRequest) {
	target := cs.connForUser(req.TargetUserId)
	if target == nil {
		return
	}

	target.queueEvent(webrtcSignal(req.Type, req.Data, req.SenderId))
}

// connForUser resolves a user's live connection, treating a registry row
// whose user record is gone from the store as already dead.
func (cs *ChatServer) connForUser(userId string) *Client {
	if _, ok := cs.store.GetUser(userId); !ok {
		return nil
	}

	return cs.registry.ConnectionFor(userId)
}

func (cs *ChatServer) broadcast(roomId string, ev *ServerEvent, skip *Client) {
	for _, c := range cs.registry.ClientsInRoom(roomId) {
		if c == skip {
			continue
		}

		c.queueEvent(ev)
	}
}

// Shutdown closes every live connection and stops pending TTL timers.
func (cs *ChatServer) Shutdown() {
	cs.log.Println("closing client connections")
	for _, c := range cs.registry.Clients() {
		c.close()
	}

	cs.scheduler.Stop()
}
