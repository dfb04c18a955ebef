// Package ws carries the live side of the chat system: the WebSocket
// connections, the per-event session re-validation, and the dispatch of
// named events to their handlers.
package ws

import (
	"context"
	"encoding/json"

	"github.com/tobyn/chatline/internal/apperr"
	"github.com/tobyn/chatline/internal/logging"
	"github.com/tobyn/chatline/internal/room"
	"github.com/tobyn/chatline/internal/session"
	"github.com/tobyn/chatline/internal/store"
)

// eventHandler processes one validated inbound event. me is the identity
// freshly resolved for this event; it is the zero value when the handler is
// registered without requireAuth and the connection is unauthenticated.
type eventHandler func(h *Hub, ctx context.Context, c *Client, me session.Identity, p params)

type handlerEntry struct {
	requireAuth bool
	fn          eventHandler
}

// Hub owns the dispatch table and the collaborators event handlers need.
// Clients register with it on connect and are detached on disconnect.
type Hub struct {
	store    store.Store
	sessions *session.Store
	rooms    *room.Registry
	log      logging.Logger

	handlers map[string]handlerEntry
}

func NewHub(st store.Store, sessions *session.Store, rooms *room.Registry, log logging.Logger) *Hub {
	h := &Hub{
		store:    st,
		sessions: sessions,
		rooms:    rooms,
		log:      log,
	}
	h.handlers = map[string]handlerEntry{
		"ping":                    {false, (*Hub).handlePing},
		"request_chats":           {false, (*Hub).handleRequestChats},
		"request_chat_messages":   {false, (*Hub).handleRequestChatMessages},
		"create_chat":             {false, (*Hub).handleCreateChat},
		"join_chat":               {true, (*Hub).handleJoinChat},
		"leave_chat":              {true, (*Hub).handleLeaveChat},
		"currently_typing":        {true, (*Hub).handleCurrentlyTyping},
		"send_message":            {true, (*Hub).handleSendMessage},
		"request_connected_users": {true, (*Hub).handleRequestConnectedUsers},
	}
	return h
}

func (h *Hub) connect(c *Client) {
	h.rooms.Register(c)
	h.log.Debug("socket connected", "conn", c.id)
}

// disconnect removes the connection from the registry and from every room
// it joined. Runs exactly once, from the read pump's exit path.
func (h *Hub) disconnect(c *Client) {
	h.rooms.Unregister(c.id)
	h.log.Debug("socket disconnected", "conn", c.id)
}

// Shutdown closes every live connection. Each read pump then runs its own
// disconnect cleanup.
func (h *Hub) Shutdown() {
	for _, conn := range h.rooms.Conns() {
		if c, ok := conn.(*Client); ok {
			c.Close()
		}
	}
}

// dispatch routes one raw inbound frame. The session is re-resolved here,
// before every event: a logout on the HTTP side must take effect on the very
// next event, not at the next connect. When the session no longer resolves,
// the client gets a 401 error event and the connection is forcibly closed,
// with the error frame flushed before the socket goes down.
func (h *Hub) dispatch(c *Client, raw []byte) {
	var ev inbound
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.SendError("400", "You need to send a valid event")
		return
	}

	entry, ok := h.handlers[ev.Event]
	if !ok {
		h.log.Debug("ignoring unknown event", "event", ev.Event, "conn", c.id)
		return
	}

	// A connection that presented a token whose session has since died is
	// rejected on its next event no matter what the event is. Connections
	// that never had a token only lose the events that require auth.
	me, authed := h.sessions.Resolve(c.token)
	if !authed && (entry.requireAuth || c.token != "") {
		c.SendError("401", "You are not authenticated")
		c.closeAfterDrain()
		return
	}

	var p params
	if len(ev.Data) > 0 {
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.SendError("400", "You need to send a valid event")
			return
		}
	}

	entry.fn(h, context.Background(), c, me, p)
}

// sendFailure turns err into an error event for the offending client.
// Internal detail stays in the server log.
func (h *Hub) sendFailure(c *Client, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		h.log.Error("event handler failed", "conn", c.id, "err", err)
	}
	c.SendError(statusString(status), apperr.ClientMessage(err))
}

func statusString(code int) string {
	switch code {
	case 400:
		return "400"
	case 401:
		return "401"
	default:
		return "500"
	}
}
