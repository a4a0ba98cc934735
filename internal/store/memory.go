package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jaskrrish/Go-QChat/internal/models/chat"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	users        map[uuid.UUID]*chat.User
	rooms        map[uuid.UUID]*chat.Room
	participants map[uuid.UUID]map[uuid.UUID]*chat.RoomParticipant // room -> user -> membership
	messages     map[uuid.UUID]*chat.Message
	roomMessages map[uuid.UUID][]uuid.UUID // insertion order
	mutex        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[uuid.UUID]*chat.User),
		rooms:        make(map[uuid.UUID]*chat.Room),
		participants: make(map[uuid.UUID]map[uuid.UUID]*chat.RoomParticipant),
		messages:     make(map[uuid.UUID]*chat.Message),
		roomMessages: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, user *chat.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return chat.ErrUsernameTaken
		}
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return chat.ErrEmailTaken
		}
	}

	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*chat.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, chat.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*chat.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, chat.ErrUserNotFound
}

func (m *MemoryStore) UpdateUserStatus(_ context.Context, id uuid.UUID, online bool, seen time.Time) (*chat.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, chat.ErrUserNotFound
	}
	u.IsOnline = online
	u.LastSeen = seen
	out := *u
	return &out, nil
}

func (m *MemoryStore) ListOnlineUsers(context.Context) ([]chat.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	users := make([]chat.User, 0)
	for _, u := range m.users {
		if u.IsOnline {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *MemoryStore) MarkUsersOffline(_ context.Context, before time.Time) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var n int64
	for _, u := range m.users {
		if u.IsOnline && u.LastSeen.Before(before) {
			u.IsOnline = false
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateRoom(_ context.Context, room *chat.Room, participants []chat.RoomParticipant) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored := *room
	m.rooms[room.ID] = &stored

	members := make(map[uuid.UUID]*chat.RoomParticipant, len(participants))
	for _, p := range participants {
		if _, dup := members[p.UserID]; dup {
			continue
		}
		p := p
		members[p.UserID] = &p
	}
	m.participants[room.ID] = members
	return nil
}

func (m *MemoryStore) GetRoom(_ context.Context, id uuid.UUID) (*chat.Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return nil, chat.ErrRoomNotFound
	}
	out := *r
	return &out, nil
}

func (m *MemoryStore) ListRooms(context.Context) ([]chat.Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := lo.MapToSlice(m.rooms, func(_ uuid.UUID, r *chat.Room) chat.Room { return *r })
	sortRooms(rooms)
	return rooms, nil
}

func (m *MemoryStore) TouchRoom(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, ok := m.rooms[id]
	if !ok {
		return chat.ErrRoomNotFound
	}
	r.LastActivity = at
	return nil
}

func (m *MemoryStore) AddParticipant(_ context.Context, participant *chat.RoomParticipant) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	members, ok := m.participants[participant.RoomID]
	if !ok {
		if _, exists := m.rooms[participant.RoomID]; !exists {
			return false, chat.ErrRoomNotFound
		}
		members = make(map[uuid.UUID]*chat.RoomParticipant)
		m.participants[participant.RoomID] = members
	}
	if _, exists := members[participant.UserID]; exists {
		return false, nil
	}
	stored := *participant
	members[participant.UserID] = &stored
	return true, nil
}

func (m *MemoryStore) RemoveParticipant(_ context.Context, roomID, userID uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	members := m.participants[roomID]
	if _, ok := members[userID]; !ok {
		return chat.ErrParticipantMissing
	}
	delete(members, userID)
	return nil
}

func (m *MemoryStore) ListParticipants(_ context.Context, roomID uuid.UUID) ([]chat.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	members := lo.Values(m.participants[roomID])
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })

	users := make([]chat.User, 0, len(members))
	for _, p := range members {
		if u, ok := m.users[p.UserID]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *MemoryStore) IsParticipant(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, ok := m.participants[roomID][userID]
	return ok, nil
}

func (m *MemoryStore) ListUserRooms(_ context.Context, userID uuid.UUID) ([]chat.Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]chat.Room, 0)
	for roomID, members := range m.participants {
		if _, ok := members[userID]; !ok {
			continue
		}
		if r, ok := m.rooms[roomID]; ok {
			rooms = append(rooms, *r)
		}
	}
	sortRooms(rooms)
	return rooms, nil
}

func (m *MemoryStore) CreateMessage(_ context.Context, message *chat.Message) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.rooms[message.RoomID]; !ok {
		return chat.ErrRoomNotFound
	}
	stored := *message
	m.messages[message.ID] = &stored
	m.roomMessages[message.RoomID] = append(m.roomMessages[message.RoomID], message.ID)
	return nil
}

func (m *MemoryStore) UpdateMessage(_ context.Context, message *chat.Message) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored, ok := m.messages[message.ID]
	if !ok {
		return chat.ErrMessageNotFound
	}
	stored.Status = message.Status
	stored.TeleportationResult = message.TeleportationResult
	return nil
}

func (m *MemoryStore) GetMessage(_ context.Context, id uuid.UUID) (*chat.MessageResponse, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	resp := m.annotate(msg)
	return &resp, nil
}

func (m *MemoryStore) ListRoomMessages(_ context.Context, roomID uuid.UUID, limit, offset int) ([]chat.MessageResponse, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := m.roomMessages[roomID]
	out := make([]chat.MessageResponse, 0, limit)
	// newest first
	for i := len(ids) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.annotate(m.messages[ids[i]]))
	}
	return out, nil
}

// annotate must be called with the lock held
func (m *MemoryStore) annotate(msg *chat.Message) chat.MessageResponse {
	resp := chat.MessageResponse{Message: *msg}
	if u, ok := m.users[msg.SenderID]; ok {
		resp.SenderUsername = u.Username
	}
	return resp
}

// sortRooms orders rooms by most recent activity
func sortRooms(rooms []chat.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastActivity.After(rooms[j].LastActivity)
	})
}
