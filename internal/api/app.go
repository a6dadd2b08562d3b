package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/zerochat/zerochat/internal/config"
	"github.com/zerochat/zerochat/internal/server"
	"github.com/zerochat/zerochat/internal/store"
)

// App is the thin HTTP collaborator in front of the room runtime: room
// creation and verification plus the websocket upgrade. Everything
// stateful happens in the store and the chat server.
type App struct {
	log            *log.Logger
	store          store.RoomStore
	cs             *server.ChatServer
	srv            *http.Server
	allowedOrigins []string
}

func NewApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, st store.RoomStore, cfg *config.Config) *App {
	a := &App{
		log:            logger,
		store:          st,
		cs:             cs,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/rooms/create", a.createRoom)
	mux.HandleFunc("POST /api/rooms/verify", a.verifyRoom)
	mux.HandleFunc("GET /ws", a.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = a.errorHandler(h)

	a.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return a
}

func (a *App) Start() error {
	a.log.Printf("starting server on %s\n", a.srv.Addr)
	return a.srv.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Println("shutting down HTTP server...")
	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
