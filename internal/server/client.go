package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// base64-encoded file shares ride the same connection
	maxMessageSize = 8 << 20
)

type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	send       chan *ServerEvent
	stop       chan struct{}
	closeOnce  sync.Once
}

func NewClient(id string, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:         id,
		conn:       conn,
		chatServer: cs,
		log:        l,
		send:       make(chan *ServerEvent, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting for connection %q", c.id)
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.drainQueue()
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// drainQueue flushes events still queued at teardown. Final notices,
// fatal errors and eviction reasons among them, must reach the peer
// before the socket drops.
func (c *Client) drainQueue() {
	for {
		select {
		case ev := <-c.send:
			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.close()
		c.chatServer.handleDisconnect(c)
		c.log.Printf("read exiting for connection %q", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var ev ClientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.log.Println("error parsing event:", err)
		c.queueEvent(errInvalidEvent())
		return
	}

	switch ev.Event {
	case EventJoin:
		var req JoinRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.queueEvent(errInvalidEvent())
			return
		}
		c.chatServer.handleJoin(c, &req)
	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.queueEvent(errInvalidEvent())
			return
		}
		c.chatServer.handleSendMessage(c, &req)
	case EventChangePassphrase:
		var req ChangePassphraseRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.queueEvent(errInvalidEvent())
			return
		}
		c.chatServer.handleChangePassphrase(c, &req)
	case EventLeaveRoom:
		var req LeaveRoomRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.queueEvent(errInvalidEvent())
			return
		}
		c.chatServer.handleLeaveRoom(c, &req)
	case EventShareFile:
		var req ShareFileRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.queueEvent(errInvalidEvent())
			return
		}
		c.chatServer.handleShareFile(c, &req)
	case EventWebRTCSignal:
		var req WebRTCSignalRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.queueEvent(errInvalidEvent())
			return
		}
		c.chatServer.handleWebRTCSignal(c, &req)
	default:
		c.log.Printf("unknown event %q from connection %q", ev.Event, c.id)
		c.queueEvent(errInvalidEvent())
	}
}

// queueEvent enqueues an event for the write pump. It never blocks: a
// full queue or a torn-down connection drops the event.
func (c *Client) queueEvent(ev *ServerEvent) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- ev:
	default:
		c.log.Printf("send queue full for connection %q, dropping event", c.id)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// close tears the connection down. The write pump drains queued events
// and closes the socket on its way out; the timer only covers a pump
// that never gets there. Safe to call more than once, and from a handler
// evicting the connection's own user.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		if c.conn != nil {
			time.AfterFunc(writeWait, func() { c.conn.Close() })
		}
	})
}
