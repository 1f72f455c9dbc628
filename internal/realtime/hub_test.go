package realtime

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn captures everything written to it.
type recordingConn struct {
	writes []interface{}
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.writes = append(c.writes, v)
	return nil
}

func TestHub_JoinAndBroadcast(t *testing.T) {
	hub := NewHub()
	a, b := &recordingConn{}, &recordingConn{}

	hub.Join(ChatRoom("c1"), a)
	hub.Join(ChatRoom("c1"), b)
	hub.Join(ChatRoom("c2"), b)

	hub.Broadcast(ChatRoom("c1"), "hello")

	assert.Equal(t, []interface{}{"hello"}, a.writes)
	assert.Equal(t, []interface{}{"hello"}, b.writes)
	assert.Equal(t, 2, hub.RoomSize(ChatRoom("c1")))
	assert.Equal(t, 1, hub.RoomSize(ChatRoom("c2")))
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	a := &recordingConn{}

	hub.Join(ChatRoom("c1"), a)
	hub.Join(ChatRoom("c1"), a)

	assert.Equal(t, 1, hub.RoomSize(ChatRoom("c1")))
	hub.Broadcast(ChatRoom("c1"), "once")
	assert.Len(t, a.writes, 1)
}

func TestHub_BroadcastExceptSkipsSender(t *testing.T) {
	hub := NewHub()
	sender, other := &recordingConn{}, &recordingConn{}
	hub.Join(ChatRoom("c1"), sender)
	hub.Join(ChatRoom("c1"), other)

	hub.BroadcastExcept(ChatRoom("c1"), "typing", sender)

	assert.Empty(t, sender.writes)
	assert.Equal(t, []interface{}{"typing"}, other.writes)
}

func TestHub_LeaveRemovesOnlyThatRoom(t *testing.T) {
	hub := NewHub()
	a := &recordingConn{}
	hub.Join(ChatRoom("c1"), a)
	hub.Join(UserRoom("u1"), a)

	hub.Leave(ChatRoom("c1"), a)

	assert.Equal(t, 0, hub.RoomSize(ChatRoom("c1")))
	assert.Equal(t, 1, hub.RoomSize(UserRoom("u1")))
}

func TestHub_LeaveAllOnDisconnect(t *testing.T) {
	hub := NewHub()
	a, b := &recordingConn{}, &recordingConn{}
	hub.Join(ChatRoom("c1"), a)
	hub.Join(ChatRoom("c2"), a)
	hub.Join(ChatRoom("c1"), b)

	hub.LeaveAll(a)

	assert.Equal(t, 1, hub.RoomSize(ChatRoom("c1")))
	assert.Equal(t, 0, hub.RoomSize(ChatRoom("c2")))

	hub.Broadcast(ChatRoom("c1"), "still here")
	assert.Empty(t, a.writes)
	assert.Equal(t, []interface{}{"still here"}, b.writes)
}

func TestHub_BroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() { hub.Broadcast(ChatRoom("nobody"), "hello") })
}

func TestGatewayRelay_ReachesChatRoomOnly(t *testing.T) {
	hub := NewHub()
	g := NewGateway(nil, hub, nil, nil, zerolog.Nop())

	inRoom, elsewhere := &recordingConn{}, &recordingConn{}
	hub.Join(ChatRoom("c1"), inRoom)
	hub.Join(ChatRoom("c2"), elsewhere)

	evt := Event{EventType: EventNewMessage, ChatID: "c1"}
	g.Relay("c1", evt)

	require.Len(t, inRoom.writes, 1)
	assert.Equal(t, evt, inRoom.writes[0])
	assert.Empty(t, elsewhere.writes)
}
