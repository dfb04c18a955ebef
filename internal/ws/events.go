package ws

import (
	"context"

	"github.com/tobyn/chatline/internal/session"
)

func (h *Hub) handlePing(ctx context.Context, c *Client, me session.Identity, p params) {
	c.Send("pong", "I got your ping")
}

func (h *Hub) handleRequestChats(ctx context.Context, c *Client, me session.Identity, p params) {
	chats, err := h.store.ListChatsWithLastMessage(ctx)
	if err != nil {
		h.sendFailure(c, err)
		return
	}
	c.Send("update_chats", chats)
}

func (h *Hub) handleRequestChatMessages(ctx context.Context, c *Client, me session.Identity, p params) {
	if p.ChatID == 0 {
		c.SendError("400", "You need to send down a valid chatId")
		return
	}
	messages, err := h.store.ListMessagesByChatID(ctx, p.ChatID)
	if err != nil {
		h.sendFailure(c, err)
		return
	}
	c.Send("update_chat_messages", messages)
}

func (h *Hub) handleJoinChat(ctx context.Context, c *Client, me session.Identity, p params) {
	if p.ChatID == 0 {
		c.SendError("400", "You need to send a valid chatId")
		return
	}
	if _, err := h.store.FindChatByID(ctx, p.ChatID); err != nil {
		h.sendFailure(c, err)
		return
	}

	h.rooms.Join(p.ChatID, c)

	c.Send("request_clientside_chat_messages", p.ChatID)
	h.rooms.BroadcastToRoom(p.ChatID, "update_successful_join",
		map[string]string{"username": me.Username}, c.id)
}

func (h *Hub) handleLeaveChat(ctx context.Context, c *Client, me session.Identity, p params) {
	if p.ChatID == 0 {
		c.SendError("400", "You need to send a valid chatId")
		return
	}
	if _, err := h.store.FindChatByID(ctx, p.ChatID); err != nil {
		h.sendFailure(c, err)
		return
	}

	h.rooms.Leave(p.ChatID, c.id)

	// The whole room hears about the departure, the leaver included.
	data := map[string]string{"username": me.Username}
	h.rooms.BroadcastToRoom(p.ChatID, "update_successful_leave", data, "")
	c.Send("update_successful_leave", data)
}

func (h *Hub) handleCreateChat(ctx context.Context, c *Client, me session.Identity, p params) {
	if p.Name == "" {
		c.SendError("400", "You need to send up a valid name")
		return
	}
	chat, err := h.store.CreateChat(ctx, p.Name)
	if err != nil {
		h.sendFailure(c, err)
		return
	}
	h.rooms.BroadcastToAll("request_clientside_chats", map[string]int64{"id": chat.ID})
}

func (h *Hub) handleCurrentlyTyping(ctx context.Context, c *Client, me session.Identity, p params) {
	if p.ChatID == 0 {
		c.SendError("400", "You must send down a valid chatId")
		return
	}
	h.rooms.BroadcastToRoom(p.ChatID, "update_currently_typing",
		map[string]string{"username": me.Username + " is typing"}, "")
}

func (h *Hub) handleSendMessage(ctx context.Context, c *Client, me session.Identity, p params) {
	if p.ChatID == 0 {
		c.SendError("400", "You must send down a valid chatId")
		return
	}
	if p.Message == "" {
		c.SendError("400", "You need to send a valid message")
		return
	}

	// Persist before fan-out so a message every room member saw also shows
	// up in the chat history, same as the HTTP send route.
	if _, err := h.store.CreateMessage(ctx, me.UserID, p.ChatID, p.Message); err != nil {
		h.sendFailure(c, err)
		return
	}

	h.rooms.BroadcastToRoom(p.ChatID, "request_sent_message",
		map[string]string{"username": me.Username, "message": p.Message}, "")
}

func (h *Hub) handleRequestConnectedUsers(ctx context.Context, c *Client, me session.Identity, p params) {
	if p.ChatID == 0 {
		c.SendError("400", "You must send down a valid chatId")
		return
	}

	// Resolve each member's session at enumeration time; connections whose
	// sessions have since been destroyed are skipped.
	usernames := []string{}
	for _, member := range h.rooms.Members(p.ChatID) {
		client, ok := member.(*Client)
		if !ok {
			continue
		}
		if identity, ok := h.sessions.Resolve(client.token); ok {
			usernames = append(usernames, identity.Username)
		}
	}

	h.rooms.BroadcastToRoom(p.ChatID, "update_connected_users",
		map[string][]string{"clients": usernames}, "")
}
