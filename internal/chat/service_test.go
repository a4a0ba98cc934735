package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/Go-QChat/internal/models"
	"github.com/jaskrrish/Go-QChat/internal/models/chat"
	"github.com/jaskrrish/Go-QChat/internal/models/teleport"
	"github.com/jaskrrish/Go-QChat/internal/store"
	teleportcore "github.com/jaskrrish/Go-QChat/internal/teleport"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

type brokenBackend struct{}

func (brokenBackend) Name() string        { return "broken" }
func (brokenBackend) NoiseLevel() float64 { return 0 }
func (brokenBackend) IsSimulator() bool   { return true }
func (brokenBackend) Execute(context.Context, string, int) (*quantum.ExecutionResult, error) {
	return nil, errors.New("backend unavailable")
}

func newTestService(t *testing.T, backend quantum.Backend) *Service {
	t.Helper()
	if backend == nil {
		backend = quantum.NewSimulatorBackend(0, 7)
	}
	tp := teleportcore.NewTeleporter(quantum.ManualGenerator{}, backend, teleportcore.Options{}, zerolog.Nop())
	return NewService(store.NewMemoryStore(), tp, zerolog.Nop())
}

func mustUser(t *testing.T, s *Service, name string) *chat.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &chat.UserCreateRequest{Username: name})
	require.NoError(t, err)
	return u
}

func mustRoom(t *testing.T, s *Service, creator *chat.User, others ...*chat.User) *chat.RoomResponse {
	t.Helper()
	room, err := s.CreateRoom(context.Background(), &chat.RoomCreateRequest{
		Name:           "quantum lab",
		CreatedBy:      creator.ID.String(),
		ParticipantIDs: lo.Map(others, func(u *chat.User, _ int) string { return u.ID.String() }),
	})
	require.NoError(t, err)
	return room
}

// TestCreateUser tests registration and duplicate detection
func TestCreateUser(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, &chat.UserCreateRequest{Username: "  alice ", Email: lo.ToPtr("alice@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsOnline)

	_, err = s.CreateUser(ctx, &chat.UserCreateRequest{Username: "alice"})
	assert.ErrorIs(t, err, chat.ErrUsernameTaken)

	tests := []struct {
		name string
		req  chat.UserCreateRequest
	}{
		{"empty username", chat.UserCreateRequest{Username: "  "}},
		{"long username", chat.UserCreateRequest{Username: string(make([]byte, 51))}},
		{"bad email", chat.UserCreateRequest{Username: "bob", Email: lo.ToPtr("not-an-email")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateUser(ctx, &tt.req)
			assert.ErrorIs(t, err, models.ErrInvalidRequest)
		})
	}

	_, err = s.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	_, err = s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, chat.ErrUserNotFound)
}

// lookupFailingStore fails username lookups and records whether a user was
// written anyway
type lookupFailingStore struct {
	store.Store
	created bool
}

func (s *lookupFailingStore) GetUserByUsername(context.Context, string) (*chat.User, error) {
	return nil, errors.New("lookup failed")
}

func (s *lookupFailingStore) CreateUser(ctx context.Context, u *chat.User) error {
	s.created = true
	return s.Store.CreateUser(ctx, u)
}

// TestCreateUserChecksUsernameFirst tests that registration looks the
// username up before writing
func TestCreateUserChecksUsernameFirst(t *testing.T) {
	st := &lookupFailingStore{Store: store.NewMemoryStore()}
	tp := teleportcore.NewTeleporter(nil, quantum.NewSimulatorBackend(0, 7), teleportcore.Options{}, zerolog.Nop())
	s := NewService(st, tp, zerolog.Nop())

	_, err := s.CreateUser(context.Background(), &chat.UserCreateRequest{Username: "alice"})
	assert.EqualError(t, err, "lookup failed")
	assert.False(t, st.created)
}

// TestUserStatus tests presence updates and the idle sweep
func TestUserStatus(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	updated, err := s.UpdateUserStatus(ctx, bob.ID.String(), &chat.UserStatusRequest{IsOnline: lo.ToPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsOnline)

	_, err = s.UpdateUserStatus(ctx, bob.ID.String(), &chat.UserStatusRequest{})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	online, err := s.ListOnlineUsers(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, alice.ID, online[0].ID)

	s.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	n, err := s.MarkIdleUsersOffline(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	online, err = s.ListOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)
}

// TestRooms tests room creation and membership
func TestRooms(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()
	alice, bob, carol := mustUser(t, s, "alice"), mustUser(t, s, "bob"), mustUser(t, s, "carol")

	room := mustRoom(t, s, alice, bob, bob)
	assert.Equal(t, "quantum lab", room.Name)
	assert.Equal(t, []string{"alice", "bob"}, lo.Map(room.Participants, func(u chat.User, _ int) string { return u.Username }))

	_, err := s.CreateRoom(ctx, &chat.RoomCreateRequest{Name: "x", CreatedBy: uuid.NewString()})
	assert.ErrorIs(t, err, chat.ErrUserNotFound)

	_, err = s.CreateRoom(ctx, &chat.RoomCreateRequest{Name: "", CreatedBy: alice.ID.String()})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	join := &chat.MembershipRequest{RoomID: room.ID.String(), UserID: carol.ID.String()}
	joined, err := s.JoinRoom(ctx, join)
	require.NoError(t, err)
	assert.Len(t, joined.Participants, 3)

	joined, err = s.JoinRoom(ctx, join)
	require.NoError(t, err)
	assert.Len(t, joined.Participants, 3)

	rooms, err := s.ListUserRooms(ctx, carol.ID.String())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	require.NoError(t, s.LeaveRoom(ctx, join))
	assert.ErrorIs(t, s.LeaveRoom(ctx, join), chat.ErrParticipantMissing)

	require.NoError(t, s.RemoveParticipant(ctx, room.ID.String(), bob.ID.String()))
	participants, err := s.ListParticipants(ctx, room.ID.String())
	require.NoError(t, err)
	assert.Len(t, participants, 1)

	_, err = s.GetRoom(ctx, uuid.NewString())
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)

	all, err := s.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// TestMessages tests posting and paging
func TestMessages(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()
	alice, bob, eve := mustUser(t, s, "alice"), mustUser(t, s, "bob"), mustUser(t, s, "eve")
	room := mustRoom(t, s, alice, bob)

	var last *chat.MessageResponse
	for i := 0; i < 3; i++ {
		msg, err := s.PostMessage(ctx, &chat.MessageCreateRequest{
			RoomID:   room.ID.String(),
			SenderID: alice.ID.String(),
			Content:  string(rune('a' + i)),
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", msg.SenderUsername)
		assert.Equal(t, chat.StatusSent, msg.Status)
		last = msg
	}

	_, err := s.PostMessage(ctx, &chat.MessageCreateRequest{RoomID: room.ID.String(), SenderID: eve.ID.String(), Content: "hi"})
	assert.ErrorIs(t, err, chat.ErrSenderNotInRoom)

	_, err = s.PostMessage(ctx, &chat.MessageCreateRequest{RoomID: room.ID.String(), SenderID: alice.ID.String(), Content: "   "})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	_, err = s.PostMessage(ctx, &chat.MessageCreateRequest{RoomID: uuid.NewString(), SenderID: alice.ID.String(), Content: "hi"})
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)

	page, err := s.ListRoomMessages(ctx, room.ID.String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultMessageLimit, page.Limit)
	assert.Equal(t, 3, page.Count)
	assert.Equal(t, "c", page.Messages[0].Content)

	page, err = s.ListRoomMessages(ctx, room.ID.String(), 500, 2)
	require.NoError(t, err)
	assert.Equal(t, chat.MaxMessageLimit, page.Limit)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "a", page.Messages[0].Content)

	got, err := s.GetMessage(ctx, last.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "c", got.Content)

	_, err = s.GetMessage(ctx, uuid.NewString())
	assert.ErrorIs(t, err, chat.ErrMessageNotFound)
}

// TestSendQuantumBit tests persisted teleportation between participants
func TestSendQuantumBit(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()
	alice, bob, eve := mustUser(t, s, "alice"), mustUser(t, s, "bob"), mustUser(t, s, "eve")
	room := mustRoom(t, s, alice, bob)

	req := &teleport.QuantumTeleportRequest{
		SenderID:     alice.ID.String(),
		ReceiverID:   bob.ID.String(),
		ClassicalBit: lo.ToPtr(1),
		RoomID:       room.ID.String(),
	}
	resp, err := s.SendQuantumBit(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.SentBit)
	assert.Equal(t, 1, resp.ReceivedBit)
	assert.Equal(t, "|1⟩", resp.ReceiverState)
	require.NotNil(t, resp.TeleportationData)

	msg, err := s.GetMessage(ctx, resp.MessageID)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusTeleported, msg.Status)
	assert.Equal(t, "Quantum bit teleportation: 1", msg.Content)
	require.NotNil(t, msg.QuantumState)
	assert.Equal(t, "1", *msg.QuantumState)

	var stored teleport.Outcome
	require.NoError(t, json.Unmarshal(msg.TeleportationResult, &stored))
	assert.Equal(t, 1, stored.ReceivedBit)

	tests := []struct {
		name string
		mut  func(r teleport.QuantumTeleportRequest) teleport.QuantumTeleportRequest
		want error
	}{
		{"invalid bit", func(r teleport.QuantumTeleportRequest) teleport.QuantumTeleportRequest {
			r.ClassicalBit = lo.ToPtr(2)
			return r
		}, models.ErrInvalidRequest},
		{"missing bit", func(r teleport.QuantumTeleportRequest) teleport.QuantumTeleportRequest {
			r.ClassicalBit = nil
			return r
		}, models.ErrInvalidRequest},
		{"sender outside room", func(r teleport.QuantumTeleportRequest) teleport.QuantumTeleportRequest {
			r.SenderID = eve.ID.String()
			return r
		}, chat.ErrSenderNotInRoom},
		{"receiver outside room", func(r teleport.QuantumTeleportRequest) teleport.QuantumTeleportRequest {
			r.ReceiverID = eve.ID.String()
			return r
		}, chat.ErrReceiverNotInRoom},
		{"unknown room", func(r teleport.QuantumTeleportRequest) teleport.QuantumTeleportRequest {
			r.RoomID = uuid.NewString()
			return r
		}, chat.ErrRoomNotFound},
		{"unknown receiver", func(r teleport.QuantumTeleportRequest) teleport.QuantumTeleportRequest {
			r.ReceiverID = uuid.NewString()
			return r
		}, chat.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := tt.mut(*req)
			_, err := s.SendQuantumBit(ctx, &bad)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestSendQuantumBitFailure tests that failed teleportations are recorded
func TestSendQuantumBitFailure(t *testing.T) {
	s := newTestService(t, brokenBackend{})
	ctx := context.Background()
	alice, bob := mustUser(t, s, "alice"), mustUser(t, s, "bob")
	room := mustRoom(t, s, alice, bob)

	_, err := s.SendQuantumBit(ctx, &teleport.QuantumTeleportRequest{
		SenderID:       alice.ID.String(),
		ReceiverID:     bob.ID.String(),
		ClassicalBit:   lo.ToPtr(0),
		RoomID:         room.ID.String(),
		MessageContent: lo.ToPtr("zero"),
	})
	require.ErrorIs(t, err, teleport.ErrTeleportationFailed)

	page, err := s.ListRoomMessages(ctx, room.ID.String(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, chat.StatusFailed, page.Messages[0].Status)
	assert.Equal(t, "zero", page.Messages[0].Content)
	assert.Contains(t, string(page.Messages[0].TeleportationResult), "backend unavailable")
}
