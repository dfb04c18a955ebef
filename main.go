package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/tobyn/chatline/internal/auth"
	"github.com/tobyn/chatline/internal/config"
	"github.com/tobyn/chatline/internal/handlers"
	"github.com/tobyn/chatline/internal/logging"
	"github.com/tobyn/chatline/internal/middleware"
	"github.com/tobyn/chatline/internal/room"
	"github.com/tobyn/chatline/internal/session"
	"github.com/tobyn/chatline/internal/store/sqlstore"
	"github.com/tobyn/chatline/internal/ws"
)

func main() {
	cfg := config.Load()

	logDest := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logging.New(os.Stderr, cfg.LogLevel).Error("failed to open log file", "file", cfg.LogFile, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		logDest = f
	}
	log := logging.New(logDest, cfg.LogLevel)

	// The store handle is created once here and shared by every component.
	st, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Error("failed to open record store", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	sessions := session.NewStore()
	rooms := room.NewRegistry()
	signer := auth.NewSigner(cfg.SessionSecret)
	hasher := auth.NewHasher(cfg.HashWorkers)
	hub := ws.NewHub(st, sessions, rooms, log)

	authHandler := &handlers.AuthHandler{Store: st, Sessions: sessions, Hasher: hasher, Signer: signer, Log: log}
	chatHandler := &handlers.ChatHandler{Store: st, Log: log}

	requireLogin := middleware.RequireLogin(signer, sessions)

	r := mux.NewRouter()
	r.Use(middleware.Logging(log))

	r.HandleFunc("/user/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/user/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/user/logout", authHandler.Logout).Methods("POST")

	chat := r.PathPrefix("/chat").Subrouter()
	chat.Use(requireLogin)
	chat.HandleFunc("/create", chatHandler.Create).Methods("POST")
	chat.HandleFunc("/remove", chatHandler.Remove).Methods("DELETE")
	chat.HandleFunc("/send", chatHandler.Send).Methods("POST")
	chat.HandleFunc("/update", chatHandler.Update).Methods("PUT")
	chat.HandleFunc("/get/all", chatHandler.GetAll).Methods("GET")
	chat.HandleFunc("/get/messages", chatHandler.GetMessages).Methods("GET")

	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		// A missing cookie is fine: unauthenticated sockets may still use
		// the public events. A cookie that fails verification is not.
		token := ""
		if _, err := req.Cookie(auth.CookieName); err == nil {
			token, err = signer.TokenFromRequest(req)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		ws.ServeWS(hub, w, req, token)
	})

	server := &http.Server{Addr: cfg.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server started", "addr", cfg.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown did not finish cleanly", "err", err)
	}

	// Shutdown only waits for plain HTTP requests; hijacked socket
	// connections are closed here.
	hub.Shutdown()
}
