package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaskrrish/Go-QChat/internal/models"
)

// MessageStatus represents the delivery state of a chat message
type MessageStatus string

const (
	StatusSent       MessageStatus = "sent"
	StatusTeleported MessageStatus = "teleported"
	StatusFailed     MessageStatus = "failed"
)

// Message list paging
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

// User is a registered chat participant
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     *string   `json:"email" db:"email"`
	IsOnline  bool      `json:"is_online" db:"is_online"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Room is a named conversation
type Room struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	CreatedBy    uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
}

// RoomParticipant links a user to a room
type RoomParticipant struct {
	ID       uuid.UUID `json:"id" db:"id"`
	RoomID   uuid.UUID `json:"room_id" db:"room_id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// Message is a chat message, optionally carrying a teleportation result
type Message struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	RoomID              uuid.UUID       `json:"room_id" db:"room_id"`
	SenderID            uuid.UUID       `json:"sender_id" db:"sender_id"`
	Content             string          `json:"content" db:"content"`
	QuantumState        *string         `json:"quantum_state" db:"quantum_state"`
	TeleportationResult json.RawMessage `json:"teleportation_result" db:"teleportation_result"`
	Status              MessageStatus   `json:"status" db:"status"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
}

// RoomResponse is a room with its participants
type RoomResponse struct {
	Room
	Participants []User `json:"participants"`
}

// MessageResponse is a message annotated with the sender's username
type MessageResponse struct {
	Message
	SenderUsername string `json:"sender_username"`
}

// MessageListResponse is one page of room messages
type MessageListResponse struct {
	RoomID   uuid.UUID         `json:"room_id"`
	Messages []MessageResponse `json:"messages"`
	Count    int               `json:"count"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// UserCreateRequest registers a user
type UserCreateRequest struct {
	Username string  `json:"username" validate:"required,min=1,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UserStatusRequest updates online presence
type UserStatusRequest struct {
	IsOnline *bool `json:"is_online" validate:"required"`
}

// RoomCreateRequest creates a room; the creator and listed users join it
type RoomCreateRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	CreatedBy      string   `json:"created_by" validate:"required,uuid"`
	ParticipantIDs []string `json:"participant_ids" validate:"omitempty,dive,uuid"`
}

// MembershipRequest joins or leaves a room
type MembershipRequest struct {
	RoomID string `json:"room_id" validate:"required,uuid"`
	UserID string `json:"user_id" validate:"required,uuid"`
}

// MessageCreateRequest posts a message to a room
type MessageCreateRequest struct {
	RoomID       string  `json:"room_id" validate:"required,uuid"`
	SenderID     string  `json:"sender_id" validate:"required,uuid"`
	Content      string  `json:"content" validate:"required,min=1"`
	QuantumState *string `json:"quantum_state,omitempty" validate:"omitempty,oneof=0 1"`
}

// Validate validates a user create request
func (r *UserCreateRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Email != nil {
		email := strings.TrimSpace(*r.Email)
		if email == "" {
			r.Email = nil
		} else {
			r.Email = &email
		}
	}
	return models.ValidateStruct(r)
}

// Validate validates a status update
func (r *UserStatusRequest) Validate() error {
	return models.ValidateStruct(r)
}

// Validate validates a room create request
func (r *RoomCreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return models.ValidateStruct(r)
}

// Validate validates a join or leave request
func (r *MembershipRequest) Validate() error {
	return models.ValidateStruct(r)
}

// Validate validates a message create request
func (r *MessageCreateRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return models.Invalid("content is required")
	}
	return models.ValidateStruct(r)
}

// NormalizePage applies the default and maximum page size
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ChatError is a domain error of the chat layer
type ChatError struct {
	Message string
}

func (e *ChatError) Error() string {
	return e.Message
}

var (
	ErrUserNotFound       = &ChatError{"user not found"}
	ErrRoomNotFound       = &ChatError{"room not found"}
	ErrMessageNotFound    = &ChatError{"message not found"}
	ErrParticipantMissing = &ChatError{"participant not found"}
	ErrUsernameTaken      = &ChatError{"username already exists"}
	ErrEmailTaken         = &ChatError{"email already registered"}
	ErrSenderNotInRoom    = &ChatError{"user is not a participant in this room"}
	ErrReceiverNotInRoom  = &ChatError{"receiver is not a participant in this room"}
)
