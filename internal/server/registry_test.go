package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionRegistry_RegisterDeregister(t *testing.T) {
	r := NewConnectionRegistry()

	c := &Client{id: "conn-1"}
	r.Register(c)
	assert.Equal(t, 1, r.Len(), "expected one registered connection")

	r.Deregister(c)
	assert.Equal(t, 0, r.Len(), "expected no connections after deregister")
}

func TestConnectionRegistry_Bind(t *testing.T) {
	r := NewConnectionRegistry()

	c := &Client{id: "conn-1"}
	r.Register(c)

	_, ok := r.BindingFor(c)
	assert.False(t, ok, "expected no binding before join")

	r.Bind(c, "u1", "alice", "room-1")

	b, ok := r.BindingFor(c)
	assert.True(t, ok, "expected binding after join")
	assert.Equal(t, binding{userId: "u1", username: "alice", roomId: "room-1"}, b, "expected binding fields to match")
	assert.Equal(t, c, r.ConnectionFor("u1"), "expected user lookup to resolve the connection")
	assert.Len(t, r.ClientsInRoom("room-1"), 1, "expected one member in room")
}

func TestConnectionRegistry_Rebind(t *testing.T) {
	r := NewConnectionRegistry()

	c := &Client{id: "conn-1"}
	r.Register(c)
	r.Bind(c, "u1", "alice", "room-1")
	r.Bind(c, "u1", "alice", "room-2")

	b, _ := r.BindingFor(c)
	assert.Equal(t, "room-2", b.roomId, "expected binding replaced")
	assert.Empty(t, r.ClientsInRoom("room-1"), "expected old room membership dropped")
	assert.Len(t, r.ClientsInRoom("room-2"), 1, "expected new room membership")
}

func TestConnectionRegistry_Unbind(t *testing.T) {
	r := NewConnectionRegistry()

	c := &Client{id: "conn-1"}
	r.Register(c)
	r.Bind(c, "u1", "alice", "room-1")

	r.Unbind(c)

	_, ok := r.BindingFor(c)
	assert.False(t, ok, "expected binding removed")
	assert.Nil(t, r.ConnectionFor("u1"), "expected user lookup to miss")
	assert.Empty(t, r.ClientsInRoom("room-1"), "expected room emptied")
	assert.Equal(t, 1, r.Len(), "expected connection itself to remain registered")

	// double unbind is a no-op
	r.Unbind(c)
	assert.Equal(t, 1, r.Len(), "expected no-op on second unbind")
}

func TestConnectionRegistry_DeregisterUnbinds(t *testing.T) {
	r := NewConnectionRegistry()

	c1 := &Client{id: "conn-1"}
	c2 := &Client{id: "conn-2"}
	r.Register(c1)
	r.Register(c2)
	r.Bind(c1, "u1", "alice", "room-1")
	r.Bind(c2, "u2", "bob", "room-1")

	r.Deregister(c1)

	assert.Nil(t, r.ConnectionFor("u1"), "expected binding removed with the connection")
	assert.Len(t, r.ClientsInRoom("room-1"), 1, "expected remaining member only")
	assert.Equal(t, c2, r.ClientsInRoom("room-1")[0], "expected the other connection to remain")
}
