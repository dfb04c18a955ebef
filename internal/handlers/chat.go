package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tobyn/chatline/internal/apperr"
	"github.com/tobyn/chatline/internal/logging"
	"github.com/tobyn/chatline/internal/middleware"
	"github.com/tobyn/chatline/internal/store"
)

type ChatHandler struct {
	Store store.Store
	Log   logging.Logger
}

type createChatRequest struct {
	Name string `json:"name"`
}

type removeChatRequest struct {
	ChatID int64 `json:"chatId"`
}

type sendMessageRequest struct {
	ChatID  int64  `json:"chatId"`
	Message string `json:"message"`
}

type updateChatRequest struct {
	ChatID int64  `json:"chatId"`
	Name   string `json:"name"`
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid request body"))
		return
	}

	chat, err := h.Store.CreateChat(r.Context(), req.Name)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}
	writeSuccess(w, chat)
}

// Remove deletes the chat and cascades to its messages. The deleted chat is
// echoed back, matching the original response shape.
func (h *ChatHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req removeChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid request body"))
		return
	}
	if req.ChatID == 0 {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid chatId"))
		return
	}

	chat, err := h.Store.FindChatByID(r.Context(), req.ChatID)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}

	if err := h.Store.DeleteChat(r.Context(), req.ChatID); err != nil {
		writeFailure(h.Log, w, err)
		return
	}
	writeSuccess(w, chat)
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	me, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeFailure(h.Log, w, apperr.New(apperr.KindUnauthenticated, "You are not logged in"))
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid request body"))
		return
	}
	if req.ChatID == 0 {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid chatId"))
		return
	}

	msg, err := h.Store.CreateMessage(r.Context(), me.UserID, req.ChatID, req.Message)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}
	writeSuccess(w, msg)
}

func (h *ChatHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid request body"))
		return
	}
	if req.ChatID == 0 {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid chatId"))
		return
	}

	chat, err := h.Store.RenameChat(r.Context(), req.ChatID, req.Name)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}
	writeSuccess(w, chat)
}

func (h *ChatHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Store.ListChatsWithLastMessage(r.Context())
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}
	writeSuccess(w, chats)
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chatId"), 10, 64)
	if err != nil || chatID == 0 {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You must provide a valid chat id"))
		return
	}

	messages, err := h.Store.ListMessagesByChatID(r.Context(), chatID)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}
	writeSuccess(w, messages)
}
