package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zerochat/zerochat/internal/server"
	"github.com/zerochat/zerochat/internal/types"
)

const minPassphraseLength = 6

type CreateRoomRequest struct {
	RoomName    string `json:"roomName"`
	Passphrase  string `json:"passphrase"`
	CreatedBy   string `json:"createdBy"`
	StorageMode string `json:"storageMode"`
}

type CreateRoomResponse struct {
	RoomId   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

type VerifyRoomRequest struct {
	RoomId     string `json:"roomId"`
	Passphrase string `json:"passphrase"`
}

type VerifyRoomResponse struct {
	Valid    bool   `json:"valid"`
	RoomName string `json:"roomName"`
}

func (a *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Printf("json encode: %v", err)
	}
}

func (a *App) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.RoomName == "" || len(req.Passphrase) < minPassphraseLength {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.StorageMode == "" {
		req.StorageMode = types.StorageModeEphemeral
	}
	if req.StorageMode != types.StorageModeEphemeral && req.StorageMode != types.StorageModePersistent {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Passphrase), bcrypt.DefaultCost)
	if err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room := types.Room{
		Id:             uuid.NewString(),
		Name:           req.RoomName,
		PassphraseHash: string(hash),
		CreatedBy:      req.CreatedBy,
		CreatedAt:      time.Now().UTC(),
		StorageMode:    req.StorageMode,
	}

	a.store.CreateRoom(room)
	a.log.Printf("created %s room %q (%s)", room.StorageMode, room.Name, room.Id)

	a.writeJson(w, http.StatusCreated, CreateRoomResponse{
		RoomId:   room.Id,
		RoomName: room.Name,
	})
}

func (a *App) verifyRoom(w http.ResponseWriter, r *http.Request) {
	var req VerifyRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, ok := a.store.GetRoom(req.RoomId)
	if !ok {
		errResp := NewNotFoundError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	valid := bcrypt.CompareHashAndPassword([]byte(room.PassphraseHash), []byte(req.Passphrase)) == nil

	a.writeJson(w, http.StatusOK, VerifyRoomResponse{
		Valid:    valid,
		RoomName: room.Name,
	})
}

func (a *App) serveWs(w http.ResponseWriter, r *http.Request) {
	connId, err := shortid.Generate()
	if err != nil {
		a.log.Println("generate connection id:", err)
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(a.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(connId, conn, a.cs, a.log)

	a.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
