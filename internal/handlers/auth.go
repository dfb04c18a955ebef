package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tobyn/chatline/internal/apperr"
	"github.com/tobyn/chatline/internal/auth"
	"github.com/tobyn/chatline/internal/logging"
	"github.com/tobyn/chatline/internal/session"
	"github.com/tobyn/chatline/internal/store"
)

type AuthHandler struct {
	Store    store.Store
	Sessions *session.Store
	Hasher   *auth.Hasher
	Signer   *auth.Signer
	Log      logging.Logger
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid request body"))
		return
	}

	if req.Username == "" {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid username"))
		return
	}
	if req.Password == "" || req.Password != req.Password2 {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "Your passwords do not match"))
		return
	}

	hash, err := h.Hasher.Hash(r.Context(), req.Password)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}

	user, err := h.Store.CreateUser(r.Context(), req.Username, hash)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}

	writeSuccess(w, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid request body"))
		return
	}

	if req.Username == "" {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid username"))
		return
	}
	if req.Password == "" {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "You need to send a valid password"))
		return
	}

	user, err := h.Store.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "Incorrect username or password"))
			return
		}
		writeFailure(h.Log, w, err)
		return
	}

	match, err := h.Hasher.Verify(r.Context(), req.Password, user.Password)
	if err != nil {
		writeFailure(h.Log, w, err)
		return
	}
	if !match {
		writeFailure(h.Log, w, apperr.New(apperr.KindValidation, "Incorrect username or password"))
		return
	}

	token := h.Sessions.Create(session.Identity{UserID: user.ID, Username: user.Username})
	h.Signer.SetSessionCookie(w, token)

	writeSuccess(w, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := h.Signer.TokenFromRequest(r); err == nil {
		h.Sessions.Destroy(token)
	}
	h.Signer.ClearSessionCookie(w)

	writeSuccess(w, nil)
}
