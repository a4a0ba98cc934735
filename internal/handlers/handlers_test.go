package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatcore "github.com/jaskrrish/Go-QChat/internal/chat"
	"github.com/jaskrrish/Go-QChat/internal/models/chat"
	"github.com/jaskrrish/Go-QChat/internal/models/teleport"
	"github.com/jaskrrish/Go-QChat/internal/ratelimit"
	"github.com/jaskrrish/Go-QChat/internal/store"
	teleportcore "github.com/jaskrrish/Go-QChat/internal/teleport"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

type testServer struct {
	handler http.Handler
	logFile string
}

func newTestServer(t *testing.T, limiter ratelimit.Limiter) *testServer {
	t.Helper()

	logFile := filepath.Join(t.TempDir(), "app.log")
	tp := teleportcore.NewTeleporter(quantum.ManualGenerator{}, quantum.NewSimulatorBackend(0, 1),
		teleportcore.Options{MaxMessageLength: 20}, zerolog.Nop())
	svc := chatcore.NewService(store.NewMemoryStore(), tp, zerolog.Nop())

	return &testServer{
		handler: NewRouter(RouterConfig{
			Chat:       svc,
			Teleporter: tp,
			Limiter:    limiter,
			LogFile:    logFile,
			Logger:     zerolog.Nop(),
		}),
		logFile: logFile,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["error"]
}

// TestSystemEndpoints tests home, health and logs
func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode[map[string]interface{}](t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "statevector_simulator", health["backend"])

	require.NoError(t, os.WriteFile(s.logFile, []byte("one\ntwo\n"), 0o600))
	rec = s.do(t, http.MethodGet, "/logs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	logs := decode[struct {
		Logs  []string `json:"logs"`
		Count int      `json:"count"`
	}](t, rec)
	assert.Equal(t, []string{"one", "two"}, logs.Logs)

	rec = s.do(t, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestLegacyTeleport tests POST /teleport
func TestLegacyTeleport(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"zero", map[string]string{"state": "0"}, http.StatusOK},
		{"one", map[string]string{"state": "1"}, http.StatusOK},
		{"invalid", map[string]string{"state": "2"}, http.StatusBadRequest},
		{"text", map[string]string{"state": "hello"}, http.StatusBadRequest},
		{"leading space", map[string]string{"state": " 1"}, http.StatusBadRequest},
		{"trailing space", map[string]string{"state": "1 "}, http.StatusBadRequest},
		{"surrounding whitespace", map[string]string{"state": "\t0\n"}, http.StatusBadRequest},
		{"malformed", "{", http.StatusBadRequest},
		{"trailing data", `{"state":"1"}garbage`, http.StatusBadRequest},
		{"two documents", `{"state":"1"} {"state":"0"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/teleport", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				outcome := decode[teleport.Outcome](t, rec)
				assert.True(t, outcome.Success)
				assert.Equal(t, outcome.SentBit, outcome.ReceivedBit)
				assert.NotNil(t, outcome.Circuit)
			}
		})
	}
}

// TestSendAndReceiveMessage tests the legacy text routes
func TestSendAndReceiveMessage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/send-message", map[string]string{"message": "Hi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decode[teleport.SendMessageResponse](t, rec)
	assert.Equal(t, "success", sent.Status)
	assert.Equal(t, teleport.DefaultSender, sent.Sender)
	assert.Equal(t, teleport.DefaultReceiver, sent.Receiver)
	require.NotNil(t, sent.TeleportationData)
	assert.Equal(t, "0100100001101001", sent.TeleportationData.BinaryMessage)
	assert.Len(t, sent.TeleportationData.TeleportationResults, 16)
	assert.Equal(t, "Hi", sent.TeleportationData.ReconstructedMessage)

	rec = s.do(t, http.MethodPost, "/receive-message", map[string]interface{}{
		"teleportation_data": sent.TeleportationData,
		"receiver":           "Bob",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	received := decode[teleport.ReceiveMessageResponse](t, rec)
	assert.Equal(t, "Hi", received.ReceivedMessage)
	assert.Equal(t, "Bob", received.Receiver)

	rec = s.do(t, http.MethodPost, "/send-message", map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request: message cannot be empty", errorMessage(t, rec))

	rec = s.do(t, http.MethodPost, "/send-message", map[string]string{"message": "this message is far too long"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/send-message", map[string]string{"message": "π"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestChatFlow tests users, rooms, messages and room teleportation
func TestChatFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/chat/users", map[string]string{"username": "alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alice := decode[chat.User](t, rec)

	rec = s.do(t, http.MethodPost, "/api/v1/chat/users", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already exists", errorMessage(t, rec))

	rec = s.do(t, http.MethodPost, "/api/v1/chat/users", map[string]string{"username": "bob"})
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decode[chat.User](t, rec)

	rec = s.do(t, http.MethodPost, "/api/v1/chat/users", map[string]string{"username": "eve"})
	require.Equal(t, http.StatusCreated, rec.Code)
	eve := decode[chat.User](t, rec)

	rec = s.do(t, http.MethodPost, "/api/v1/chat/rooms", map[string]interface{}{
		"name":            "lab",
		"created_by":      alice.ID.String(),
		"participant_ids": []string{bob.ID.String()},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[chat.RoomResponse](t, rec)
	assert.Len(t, room.Participants, 2)
	roomPath := "/api/v1/chat/rooms/" + room.ID.String()

	rec = s.do(t, http.MethodPost, "/api/v1/chat/messages", map[string]string{
		"room_id": room.ID.String(), "sender_id": alice.ID.String(), "content": "hello",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msg := decode[chat.MessageResponse](t, rec)
	assert.Equal(t, "alice", msg.SenderUsername)

	rec = s.do(t, http.MethodPost, "/api/v1/chat/messages", map[string]string{
		"room_id": room.ID.String(), "sender_id": eve.ID.String(), "content": "intrude",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, roomPath+"/messages?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[chat.MessageListResponse](t, rec)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, 10, page.Limit)

	rec = s.do(t, http.MethodGet, roomPath+"/messages?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/chat/messages/"+msg.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/teleport", map[string]interface{}{
		"sender_id": alice.ID.String(), "receiver_id": bob.ID.String(), "room_id": room.ID.String(), "classical_bit": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tp := decode[teleport.QuantumTeleportResponse](t, rec)
	assert.True(t, tp.Success)
	assert.Equal(t, 1, tp.ReceivedBit)
	assert.NotEmpty(t, tp.MessageID)

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/teleport", map[string]interface{}{
		"sender_id": eve.ID.String(), "receiver_id": bob.ID.String(), "room_id": room.ID.String(), "classical_bit": 0,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/chat/rooms/join", map[string]string{"room_id": room.ID.String(), "user_id": eve.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[chat.RoomResponse](t, rec).Participants, 3)

	rec = s.do(t, http.MethodGet, roomPath+"/participants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]chat.User](t, rec), 3)

	rec = s.do(t, http.MethodDelete, roomPath+"/participants/"+eve.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/chat/rooms/leave", map[string]string{"room_id": room.ID.String(), "user_id": eve.ID.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/chat/users/"+bob.ID.String()+"/status", map[string]bool{"is_online": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[chat.User](t, rec).IsOnline)

	rec = s.do(t, http.MethodGet, "/api/v1/chat/users/online", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]chat.User](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/v1/chat/users/"+alice.ID.String()+"/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]chat.Room](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/v1/chat/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]chat.Room](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/v1/chat/users/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/chat/rooms/"+alice.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "room not found", errorMessage(t, rec))
}

// TestQuantumEndpoints tests the stateless quantum API
func TestQuantumEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/quantum/circuit/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[teleport.CircuitView](t, rec)
	assert.Equal(t, 3, view.NumQubits)
	assert.Equal(t, 2, view.GateCount["x"])

	for _, bit := range []string{"7", "%201", "1%20"} {
		rec = s.do(t, http.MethodGet, "/api/v1/quantum/circuit/"+bit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bit)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/simulate", map[string]int{"classical_bit": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[teleport.Outcome](t, rec).ReceivedBit)

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/simulate", map[string]int{"classical_bit": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/teleport-text", map[string]string{"text": "A"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[teleport.MessageResult](t, rec)
	assert.Equal(t, "01000001", result.BinaryMessage)
	assert.Equal(t, "A", result.ReconstructedMessage)

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/teleport-text", map[string]string{"text": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[teleport.MessageResult](t, rec).TeleportationResults)

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/teleport-sequence", map[string][]string{"qubit_sequence": {"0", "1", "1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"0", "1", "1"}, decode[teleport.SequenceResult](t, rec).TeleportedSequence)

	rec = s.do(t, http.MethodPost, "/api/v1/quantum/teleport-sequence", map[string][]string{"qubit_sequence": {"0", "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

// TestRateLimit tests 429 responses
func TestRateLimit(t *testing.T) {
	s := newTestServer(t, ratelimit.NewMemoryLimiter(2, time.Minute))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	s = newTestServer(t, denyAll{})
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodGet, "/", nil).Code)
}

// TestStatusFor tests error to status mapping
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{chat.ErrUserNotFound, http.StatusNotFound},
		{chat.ErrMessageNotFound, http.StatusNotFound},
		{chat.ErrSenderNotInRoom, http.StatusForbidden},
		{chat.ErrEmailTaken, http.StatusBadRequest},
		{teleport.ErrEmptyMessage, http.StatusBadRequest},
		{quantum.ErrInvalidBit, http.StatusBadRequest},
		{teleport.ErrTeleportationFailed, http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
