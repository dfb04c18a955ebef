package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tobyn/chatline/internal/logging"
	"github.com/tobyn/chatline/internal/models"
	"github.com/tobyn/chatline/internal/room"
	"github.com/tobyn/chatline/internal/session"
	"github.com/tobyn/chatline/internal/store/sqlstore"
)

type testEnv struct {
	hub      *Hub
	store    *sqlstore.SQLStore
	sessions *session.Store
	rooms    *room.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessions := session.NewStore()
	rooms := room.NewRegistry()
	hub := NewHub(st, sessions, rooms, logging.New(io.Discard, "error"))
	return &testEnv{hub: hub, store: st, sessions: sessions, rooms: rooms}
}

// newClient returns a connection without a real socket; outbound frames are
// read straight from the send channel.
func (e *testEnv) newClient(id, token string) *Client {
	c := &Client{id: id, hub: e.hub, send: make(chan []byte, 256), token: token}
	e.hub.connect(c)
	return c
}

// login creates a user and a live session, returning the user and its token.
func (e *testEnv) login(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), username, "hash")
	require.NoError(t, err)
	token := e.sessions.Create(session.Identity{UserID: user.ID, Username: username})
	return user, token
}

type frame struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

// recv pops the next queued outbound frame, or nil if nothing was sent or
// the connection has been closed.
func recv(t *testing.T, c *Client) *frame {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if !ok {
			return nil
		}
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return &f
	default:
		return nil
	}
}

// assertDisconnected fails unless the connection's outbound channel has been
// closed, which is how a forced disconnect reaches the write pump.
func assertDisconnected(t *testing.T, c *Client) {
	t.Helper()
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("Expected the connection to be closed, but a frame was still queued")
		}
	default:
		t.Error("Expected the connection to be closed, but it is still open")
	}
}

func event(name string, data string) []byte {
	if data == "" {
		return []byte(fmt.Sprintf(`{"event":%q}`, name))
	}
	return []byte(fmt.Sprintf(`{"event":%q,"data":%s}`, name, data))
}
