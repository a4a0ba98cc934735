// Package store provides persistence for users, rooms, participants and
// messages.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaskrrish/Go-QChat/internal/models/chat"
)

// Supported drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Store defines the persistence operations of the chat layer.
// Lookups that find nothing return the matching chat sentinel error.
type Store interface {
	// Ping checks the backing storage.
	Ping(ctx context.Context) error
	// Close releases the backing storage.
	Close() error

	// CreateUser inserts a user. Duplicate usernames or emails return
	// chat.ErrUsernameTaken or chat.ErrEmailTaken.
	CreateUser(ctx context.Context, user *chat.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*chat.User, error)
	GetUserByUsername(ctx context.Context, username string) (*chat.User, error)
	// UpdateUserStatus sets presence and last_seen and returns the updated user.
	UpdateUserStatus(ctx context.Context, id uuid.UUID, online bool, seen time.Time) (*chat.User, error)
	ListOnlineUsers(ctx context.Context) ([]chat.User, error)
	// MarkUsersOffline flags online users last seen before the cutoff as
	// offline and returns how many changed.
	MarkUsersOffline(ctx context.Context, before time.Time) (int64, error)

	// CreateRoom inserts a room and its initial participants atomically.
	CreateRoom(ctx context.Context, room *chat.Room, participants []chat.RoomParticipant) error
	GetRoom(ctx context.Context, id uuid.UUID) (*chat.Room, error)
	ListRooms(ctx context.Context) ([]chat.Room, error)
	// TouchRoom bumps last_activity.
	TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error

	// AddParticipant inserts a membership. It returns false when the user
	// is already a participant.
	AddParticipant(ctx context.Context, participant *chat.RoomParticipant) (bool, error)
	RemoveParticipant(ctx context.Context, roomID, userID uuid.UUID) error
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]chat.User, error)
	IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	ListUserRooms(ctx context.Context, userID uuid.UUID) ([]chat.Room, error)

	CreateMessage(ctx context.Context, message *chat.Message) error
	// UpdateMessage rewrites status and teleportation result.
	UpdateMessage(ctx context.Context, message *chat.Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*chat.MessageResponse, error)
	// ListRoomMessages returns a page of room messages, newest first.
	ListRoomMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]chat.MessageResponse, error)
}

// New opens the store for driver. path is only used by sqlite.
func New(driver, path string, logger zerolog.Logger) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		db, err := OpenSQLite(path, logger)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
