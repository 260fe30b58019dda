package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	mu     sync.Mutex
	frames []Message
	closed bool
	fail   bool
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.frames = append(f.frames, m)
	return nil
}

func (f *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSocket) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	for i, m := range f.frames {
		out[i] = m.Event
	}
	return out
}

func (f *fakeSocket) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type capturePublisher struct {
	mu   sync.Mutex
	envs []Envelope
}

func (c *capturePublisher) Publish(_ context.Context, env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
	return nil
}

func TestHub_EmitToAttached(t *testing.T) {
	hub := NewHub(0)
	defer hub.Close()
	sock := &fakeSocket{}
	conn := hub.Attach(sock, "actor-1", "captain")

	assert.True(t, hub.Connected(conn.ID))
	assert.True(t, hub.Emit(conn.ID, "ride-request", map[string]string{"ride": "r1"}))

	require.Eventually(t, func() bool { return len(sock.events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ride-request"}, sock.events())

	sock.mu.Lock()
	var data map[string]string
	require.NoError(t, json.Unmarshal(sock.frames[0].Data, &data))
	sock.mu.Unlock()
	assert.Equal(t, "r1", data["ride"])
}

func TestHub_EmitUnknownChannelIsDropped(t *testing.T) {
	hub := NewHub(0)
	assert.False(t, hub.Emit("nobody", "ride-request", nil))
}

func TestHub_BroadcastReachesAll(t *testing.T) {
	hub := NewHub(0)
	defer hub.Close()
	a, b := &fakeSocket{}, &fakeSocket{}
	hub.Attach(a, "a", "rider")
	hub.Attach(b, "b", "captain")

	hub.Broadcast("captain-location-update", map[string]any{"userId": "b"})

	require.Eventually(t, func() bool {
		return len(a.events()) == 1 && len(b.events()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHub_DetachStopsDelivery(t *testing.T) {
	hub := NewHub(0)
	sock := &fakeSocket{}
	conn := hub.Attach(sock, "a", "rider")

	hub.Detach(conn)
	hub.Detach(conn)

	assert.False(t, hub.Connected(conn.ID))
	assert.False(t, hub.Emit(conn.ID, "x", nil))
	assert.False(t, conn.Send("x", nil))
	require.Eventually(t, sock.isClosed, time.Second, 5*time.Millisecond)
}

func TestHub_WriteFailureClosesSocket(t *testing.T) {
	hub := NewHub(0)
	defer hub.Close()
	sock := &fakeSocket{fail: true}
	conn := hub.Attach(sock, "a", "rider")

	conn.Send("x", nil)
	require.Eventually(t, sock.isClosed, time.Second, 5*time.Millisecond)
}

func TestConn_RateLimit(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()
	conn := hub.Attach(&fakeSocket{}, "a", "captain")

	assert.True(t, conn.Allow())
	assert.True(t, conn.Allow())
	assert.False(t, conn.Allow(), "burst of two exhausted")

	unlimited := NewHub(0).Attach(&fakeSocket{}, "b", "captain")
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow())
	}
}

func TestHub_RelayPublishesAndReceives(t *testing.T) {
	hub := NewHub(0)
	defer hub.Close()
	pub := &capturePublisher{}
	hub.SetRelay(pub)
	sock := &fakeSocket{}
	conn := hub.Attach(sock, "a", "rider")

	assert.True(t, hub.Emit("remote-channel", "ride-request", nil), "unknown channel goes to the relay")
	hub.Broadcast("captain-location-update", nil)

	pub.mu.Lock()
	require.Len(t, pub.envs, 2)
	assert.Equal(t, "remote-channel", pub.envs[0].Channel)
	assert.Equal(t, hub.Origin(), pub.envs[0].Origin)
	assert.Empty(t, pub.envs[1].Channel)
	pub.mu.Unlock()

	frame, err := encode("from-peer", map[string]int{"n": 1})
	require.NoError(t, err)

	// own envelopes are ignored
	hub.Receive(Envelope{Origin: hub.Origin(), Channel: conn.ID, Frame: frame})
	hub.Receive(Envelope{Origin: "peer", Channel: conn.ID, Frame: frame})
	hub.Receive(Envelope{Origin: "peer", Frame: frame})

	require.Eventually(t, func() bool { return len(sock.events()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"captain-location-update", "from-peer", "from-peer"}, sock.events())
}
