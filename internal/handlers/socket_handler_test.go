package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftaar/raftaar-backend/internal/directory"
	"github.com/raftaar/raftaar-backend/internal/models"
	"github.com/raftaar/raftaar-backend/internal/presence"
	"github.com/raftaar/raftaar-backend/internal/realtime"
)

type recordedFrame struct {
	Event string
	Data  map[string]any
}

type fakeSocket struct {
	mu     sync.Mutex
	frames []recordedFrame
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var m realtime.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var payload map[string]any
	_ = json.Unmarshal(m.Data, &payload)

	f.mu.Lock()
	f.frames = append(f.frames, recordedFrame{Event: m.Event, Data: payload})
	f.mu.Unlock()
	return nil
}

func (f *fakeSocket) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeSocket) Close() error                     { return nil }

func (f *fakeSocket) waitFor(t *testing.T, n int) []recordedFrame {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.frames) >= n
	}, time.Second, 5*time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedFrame(nil), f.frames...)
}

type socketFixture struct {
	handler  *SocketHandler
	hub      *realtime.Hub
	captains *directory.MemoryStore[*models.Captain]
	captain  *models.Captain
	conn     *realtime.Conn
	sock     *fakeSocket
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	users := directory.NewUserMemoryStore()
	captains := directory.NewCaptainMemoryStore()
	hub := realtime.NewHub(0)
	t.Cleanup(hub.Close)

	c := &models.Captain{}
	c.ID = uuid.New()
	c.Email = "cap@example.com"
	c.MobileNumber = "+919000000001"
	require.NoError(t, captains.Save(context.Background(), c))

	sock := &fakeSocket{}
	return &socketFixture{
		handler:  NewSocketHandler(hub, presence.New(hub, []presence.Binder{users, captains}, captains)),
		hub:      hub,
		captains: captains,
		captain:  c,
		conn:     hub.Attach(sock, c.ID.String(), string(models.KindCaptain)),
		sock:     sock,
	}
}

func (f *socketFixture) send(raw string) {
	f.handler.dispatch(context.Background(), f.conn, []byte(raw))
}

func TestSocket_JoinBindsChannel(t *testing.T) {
	f := newSocketFixture(t)

	f.send(fmt.Sprintf(`{"event":"join","data":{"userId":%q,"userType":"captain"}}`, f.captain.ID))

	frames := f.sock.waitFor(t, 1)
	assert.Equal(t, EventJoined, frames[0].Event)
	assert.Equal(t, f.conn.ID, frames[0].Data["channelId"])

	bound, err := f.captains.FindByChannel(context.Background(), f.conn.ID)
	require.NoError(t, err)
	assert.Equal(t, f.captain.ID, bound.ID)
}

func TestSocket_JoinRejectsForeignActor(t *testing.T) {
	f := newSocketFixture(t)

	f.send(fmt.Sprintf(`{"event":"join","data":{"userId":%q,"userType":"captain"}}`, uuid.New()))
	f.send(fmt.Sprintf(`{"event":"join","data":{"userId":%q,"userType":"rider"}}`, f.captain.ID))

	frames := f.sock.waitFor(t, 2)
	assert.Equal(t, EventError, frames[0].Event)
	assert.Equal(t, EventError, frames[1].Event)
	_, err := f.captains.FindByChannel(context.Background(), f.conn.ID)
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestSocket_UpdateLocationBroadcasts(t *testing.T) {
	f := newSocketFixture(t)
	other := &fakeSocket{}
	f.hub.Attach(other, uuid.NewString(), string(models.KindRider))

	f.send(fmt.Sprintf(`{"event":"update-location-captain","data":{"userId":%q,"location":{"ltd":12.97,"lng":77.59}}}`, f.captain.ID))

	for _, s := range []*fakeSocket{f.sock, other} {
		frames := s.waitFor(t, 1)
		assert.Equal(t, presence.EventCaptainLocation, frames[0].Event)
		assert.Equal(t, f.captain.ID.String(), frames[0].Data["userId"])
		loc := frames[0].Data["location"].(map[string]any)
		assert.Equal(t, 12.97, loc["ltd"])
		assert.Equal(t, 77.59, loc["lng"])
	}

	stored, err := f.captains.FindByID(context.Background(), f.captain.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Location)
	assert.Equal(t, 77.59, stored.Location.Coordinates[0])
}

func TestSocket_InvalidLocation(t *testing.T) {
	f := newSocketFixture(t)

	f.send(fmt.Sprintf(`{"event":"update-location-captain","data":{"userId":%q,"location":{"lng":77.59}}}`, f.captain.ID))

	frames := f.sock.waitFor(t, 1)
	assert.Equal(t, EventError, frames[0].Event)
	assert.Equal(t, "Invalid location data", frames[0].Data["message"])
}

func TestSocket_MalformedAndUnknown(t *testing.T) {
	f := newSocketFixture(t)

	f.send(`not json`)
	f.send(`{"event":"dance","data":{}}`)

	frames := f.sock.waitFor(t, 2)
	assert.Equal(t, "Malformed message", frames[0].Data["message"])
	assert.Equal(t, "Unknown event: dance", frames[1].Data["message"])
}
