package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/zerochat/zerochat/internal/store"
	"github.com/zerochat/zerochat/internal/testutil"
	"github.com/zerochat/zerochat/internal/types"
)

func TestDispatch(t *testing.T) {
	t.Run("malformed frame yields an error event", func(t *testing.T) {
		cs := newTestChatServer(t, store.NewMemoryStore())
		c := newTestClient(t, cs, "conn-1")

		c.dispatch([]byte("not json"))

		evs := receivedEvents(c)
		assert.Len(t, evs, 1, "expected a single error event")
		assert.Equal(t, ErrorPayload{Message: "Invalid event format"}, evs[0].Data, "expected invalid event error")
	})

	t.Run("unknown event name yields an error event", func(t *testing.T) {
		cs := newTestChatServer(t, store.NewMemoryStore())
		c := newTestClient(t, cs, "conn-1")

		c.dispatch([]byte(`{"event":"no_such_event","data":{}}`))

		evs := receivedEvents(c)
		assert.Len(t, evs, 1, "expected a single error event")
		assert.Equal(t, EventError, evs[0].Event, "expected an error event")
	})

	t.Run("well-formed frame reaches the handler", func(t *testing.T) {
		st := store.NewMemoryStore()
		createTestRoom(t, st, "room-1", "secret")
		cs := newTestChatServer(t, st)

		c := newTestClient(t, cs, "conn-1")
		cs.registry.Register(c)

		frame := `{"event":"join","data":{"roomId":"room-1","userId":"u1","username":"alice","passphrase":"secret"}}`
		c.dispatch([]byte(frame))

		assert.Len(t, st.GetUsersInRoom("room-1"), 1, "expected the join to be handled")
	})

	t.Run("send_message frame stores the message", func(t *testing.T) {
		st := store.NewMemoryStore()
		createTestRoom(t, st, "room-1", "secret")
		cs := newTestChatServer(t, st)

		c := newTestClient(t, cs, "conn-1")
		joinTestUser(cs, c, "u1", "alice", "room-1", false)

		c.dispatch([]byte(`{"event":"send_message","data":{"roomId":"room-1","userId":"u1","username":"alice","content":"ciphertext","ttl":15}}`))

		msgs := st.GetMessages("room-1")
		assert.Len(t, msgs, 1, "expected the message stored")
		assert.Equal(t, 15, msgs[0].TtlSeconds, "expected the ttl carried through")
		assert.Equal(t, 1, cs.scheduler.pending(), "expected an expiry timer armed")
	})
}

func TestQueueEvent(t *testing.T) {
	t.Run("drops once the connection is torn down", func(t *testing.T) {
		cs := newTestChatServer(t, store.NewMemoryStore())
		c := newTestClient(t, cs, "conn-1")

		assert.True(t, c.queueEvent(messageDeleted("msg-1")), "expected enqueue on a live connection")

		c.close()
		assert.False(t, c.queueEvent(messageDeleted("msg-2")), "expected drop after close")
	})

	t.Run("drops instead of blocking on a full queue", func(t *testing.T) {
		cs := newTestChatServer(t, store.NewMemoryStore())
		c := newTestClient(t, cs, "conn-1")

		for i := 0; i < cap(c.send); i++ {
			assert.True(t, c.queueEvent(messageBroadcast(types.Message{Id: "msg"})), "expected enqueue below capacity")
		}
		assert.False(t, c.queueEvent(messageBroadcast(types.Message{Id: "overflow"})), "expected drop at capacity")
	})
}

// dialTestClient stands up a real websocket pair with both pumps
// running and returns the peer side of the connection.
func dialTestClient(t *testing.T, cs *ChatServer) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error("upgrade:", err)
			return
		}

		client := NewClient("conn-1", conn, cs, testutil.TestLogger(t))
		cs.RegisterClient(client)
		go client.Write()
		go client.Read()
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err, "expected the dial to succeed")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestFatalErrorDeliveredBeforeClose(t *testing.T) {
	cs := newTestChatServer(t, store.NewMemoryStore())
	conn := dialTestClient(t, cs)

	join := `{"event":"join","data":{"roomId":"no-such-room","userId":"u1","username":"alice","passphrase":"secret"}}`
	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(join)), "expected the join frame to send")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	assert.NoError(t, err, "expected the fatal error frame before the socket dropped")

	var ev struct {
		Event string       `json:"event"`
		Data  ErrorPayload `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(raw, &ev), "expected the frame to decode")
	assert.Equal(t, EventError, ev.Event, "expected an error event")
	assert.Equal(t, ErrorPayload{Message: "Room not found", Fatal: true}, ev.Data, "expected the fatal room error")

	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "expected the connection closed after delivery")
}

func TestClientClose(t *testing.T) {
	cs := newTestChatServer(t, store.NewMemoryStore())
	c := newTestClient(t, cs, "conn-1")

	c.close()
	c.close()

	assert.True(t, isClosed(c), "expected stop channel closed")
}
