package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/zerochat/zerochat/internal/config"
	"github.com/zerochat/zerochat/internal/store"
	"github.com/zerochat/zerochat/internal/testutil"
	"github.com/zerochat/zerochat/internal/types"
)

func newTestApp(t *testing.T, st store.RoomStore) *App {
	t.Helper()
	return NewApp(http.NewServeMux(), testutil.TestLogger(t), nil, st, &config.Config{
		ServerAddr: "localhost:0",
	})
}

func postJson(t *testing.T, body any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	assert.NoError(t, json.NewEncoder(buf).Encode(body), "expected request body to encode")
	return buf
}

func TestCreateRoomHandler(t *testing.T) {
	tcases := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{
			name: "creates an ephemeral room by default",
			body: CreateRoomRequest{
				RoomName:   "general",
				Passphrase: "hunter22",
				CreatedBy:  "alice",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "creates a persistent room",
			body: CreateRoomRequest{
				RoomName:    "archive",
				Passphrase:  "hunter22",
				CreatedBy:   "alice",
				StorageMode: types.StorageModePersistent,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "rejects a missing room name",
			body:           CreateRoomRequest{Passphrase: "hunter22"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejects a short passphrase",
			body:           CreateRoomRequest{RoomName: "general", Passphrase: "abc"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "rejects an unknown storage mode",
			body: CreateRoomRequest{
				RoomName:    "general",
				Passphrase:  "hunter22",
				StorageMode: "glacial",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejects a malformed body",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			app := newTestApp(t, st)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/rooms/create", postJson(t, tc.body))
			app.createRoom(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code, "expected status code to match")
			if tc.expectedStatus != http.StatusCreated {
				return
			}

			var resp CreateRoomResponse
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "expected response to decode")
			assert.NotEmpty(t, resp.RoomId, "expected a generated room id")

			room, ok := st.GetRoom(resp.RoomId)
			assert.True(t, ok, "expected room stored")
			assert.Equal(t, resp.RoomName, room.Name, "expected response name to match the room")
			assert.NoError(t,
				bcrypt.CompareHashAndPassword([]byte(room.PassphraseHash), []byte("hunter22")),
				"expected the stored hash to match the passphrase")

			expectedMode := types.StorageModeEphemeral
			if reqBody, ok := tc.body.(CreateRoomRequest); ok && reqBody.StorageMode != "" {
				expectedMode = reqBody.StorageMode
			}
			assert.Equal(t, expectedMode, room.StorageMode, "expected storage mode recorded")
		})
	}
}

func TestVerifyRoomHandler(t *testing.T) {
	st := store.NewMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	assert.NoError(t, err, "expected passphrase to hash")
	st.CreateRoom(types.Room{
		Id:             "room-1",
		Name:           "general",
		PassphraseHash: string(hash),
		StorageMode:    types.StorageModeEphemeral,
	})

	tcases := []struct {
		name           string
		body           VerifyRoomRequest
		expectedStatus int
		expectedValid  bool
	}{
		{
			name:           "correct passphrase verifies",
			body:           VerifyRoomRequest{RoomId: "room-1", Passphrase: "hunter22"},
			expectedStatus: http.StatusOK,
			expectedValid:  true,
		},
		{
			name:           "wrong passphrase does not verify",
			body:           VerifyRoomRequest{RoomId: "room-1", Passphrase: "wrong"},
			expectedStatus: http.StatusOK,
			expectedValid:  false,
		},
		{
			name:           "unknown room is not found",
			body:           VerifyRoomRequest{RoomId: "no-such-room", Passphrase: "hunter22"},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, st)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/rooms/verify", postJson(t, tc.body))
			app.verifyRoom(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code, "expected status code to match")
			if tc.expectedStatus != http.StatusOK {
				return
			}

			var resp VerifyRoomResponse
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "expected response to decode")
			assert.Equal(t, tc.expectedValid, resp.Valid, "expected validity to match")
			assert.Equal(t, "general", resp.RoomName, "expected the room name echoed")
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := newTestApp(t, store.NewMemoryStore())

	h := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected a 500 from a panicking handler")

	var resp ApiError
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "expected error body to decode")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, "expected status in the body")
}
