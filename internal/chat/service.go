// Package chat implements users, rooms and messages on top of a store, and
// persists quantum bit teleportations between room participants.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/jaskrrish/Go-QChat/internal/models"
	"github.com/jaskrrish/Go-QChat/internal/models/chat"
	"github.com/jaskrrish/Go-QChat/internal/models/teleport"
	"github.com/jaskrrish/Go-QChat/internal/store"
	teleportcore "github.com/jaskrrish/Go-QChat/internal/teleport"
	"github.com/jaskrrish/Go-QChat/internal/teleport/quantum"
)

// Service manages the chat domain
type Service struct {
	store      store.Store
	teleporter *teleportcore.Teleporter
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a chat service
func NewService(s store.Store, teleporter *teleportcore.Teleporter, logger zerolog.Logger) *Service {
	return &Service{
		store:      s,
		teleporter: teleporter,
		logger:     logger.With().Str("component", "chat").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the underlying store
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CreateUser registers a user. New users start online.
func (s *Service) CreateUser(ctx context.Context, req *chat.UserCreateRequest) (*chat.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// the store enforces uniqueness too; this catches the common case early
	existing, err := s.store.GetUserByUsername(ctx, req.Username)
	switch {
	case err == nil && existing != nil:
		return nil, chat.ErrUsernameTaken
	case err != nil && !errors.Is(err, chat.ErrUserNotFound):
		return nil, err
	}

	now := s.now()
	user := &chat.User{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     req.Email,
		IsOnline:  true,
		LastSeen:  now,
		CreatedAt: now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("User created")
	return user, nil
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id string) (*chat.User, error) {
	userID, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	return s.store.GetUser(ctx, userID)
}

// UpdateUserStatus sets a user's presence and refreshes last_seen
func (s *Service) UpdateUserStatus(ctx context.Context, id string, req *chat.UserStatusRequest) (*chat.User, error) {
	userID, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.UpdateUserStatus(ctx, userID, *req.IsOnline, s.now())
}

// ListOnlineUsers returns users currently online
func (s *Service) ListOnlineUsers(ctx context.Context) ([]chat.User, error) {
	return s.store.ListOnlineUsers(ctx)
}

// ListUserRooms returns rooms the user participates in
func (s *Service) ListUserRooms(ctx context.Context, id string) ([]chat.Room, error) {
	userID, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListUserRooms(ctx, userID)
}

// CreateRoom creates a room; the creator and every listed participant join it
func (s *Service) CreateRoom(ctx context.Context, req *chat.RoomCreateRequest) (*chat.RoomResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creatorID := uuid.MustParse(req.CreatedBy)
	memberIDs := lo.Uniq(append([]uuid.UUID{creatorID}, lo.Map(req.ParticipantIDs, func(id string, _ int) uuid.UUID {
		return uuid.MustParse(id)
	})...))

	for _, id := range memberIDs {
		if _, err := s.store.GetUser(ctx, id); err != nil {
			return nil, err
		}
	}

	now := s.now()
	room := &chat.Room{
		ID:           uuid.New(),
		Name:         req.Name,
		CreatedBy:    creatorID,
		CreatedAt:    now,
		LastActivity: now,
	}
	participants := lo.Map(memberIDs, func(id uuid.UUID, i int) chat.RoomParticipant {
		return chat.RoomParticipant{
			ID:       uuid.New(),
			RoomID:   room.ID,
			UserID:   id,
			JoinedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
	})

	if err := s.store.CreateRoom(ctx, room, participants); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("room_id", room.ID.String()).
		Str("name", room.Name).
		Int("participants", len(participants)).
		Msg("Room created")

	return s.roomResponse(ctx, room)
}

// ListRooms returns every room, most recently active first
func (s *Service) ListRooms(ctx context.Context) ([]chat.Room, error) {
	return s.store.ListRooms(ctx)
}

// GetRoom returns a room with its participants
func (s *Service) GetRoom(ctx context.Context, id string) (*chat.RoomResponse, error) {
	roomID, err := parseID("room", id)
	if err != nil {
		return nil, err
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.roomResponse(ctx, room)
}

// ListParticipants returns the users in a room
func (s *Service) ListParticipants(ctx context.Context, id string) ([]chat.User, error) {
	roomID, err := parseID("room", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, roomID)
}

// JoinRoom adds a user to a room. Joining twice is a no-op.
func (s *Service) JoinRoom(ctx context.Context, req *chat.MembershipRequest) (*chat.RoomResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	roomID, userID := uuid.MustParse(req.RoomID), uuid.MustParse(req.UserID)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	added, err := s.store.AddParticipant(ctx, &chat.RoomParticipant{
		ID:       uuid.New(),
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	if added {
		s.logger.Info().Str("room_id", roomID.String()).Str("user_id", userID.String()).Msg("User joined room")
	}

	return s.roomResponse(ctx, room)
}

// LeaveRoom removes the requesting user from a room
func (s *Service) LeaveRoom(ctx context.Context, req *chat.MembershipRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.removeParticipant(ctx, uuid.MustParse(req.RoomID), uuid.MustParse(req.UserID))
}

// RemoveParticipant removes a user from a room by path ids
func (s *Service) RemoveParticipant(ctx context.Context, room, user string) error {
	roomID, err := parseID("room", room)
	if err != nil {
		return err
	}
	userID, err := parseID("user", user)
	if err != nil {
		return err
	}
	return s.removeParticipant(ctx, roomID, userID)
}

func (s *Service) removeParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return err
	}
	if err := s.store.RemoveParticipant(ctx, roomID, userID); err != nil {
		return err
	}
	s.logger.Info().Str("room_id", roomID.String()).Str("user_id", userID.String()).Msg("User left room")
	return nil
}

// PostMessage stores a message from a room participant
func (s *Service) PostMessage(ctx context.Context, req *chat.MessageCreateRequest) (*chat.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	roomID, senderID := uuid.MustParse(req.RoomID), uuid.MustParse(req.SenderID)

	sender, err := s.requireMember(ctx, roomID, senderID, chat.ErrSenderNotInRoom)
	if err != nil {
		return nil, err
	}

	msg := &chat.Message{
		ID:           uuid.New(),
		RoomID:       roomID,
		SenderID:     senderID,
		Content:      req.Content,
		QuantumState: req.QuantumState,
		Status:       chat.StatusSent,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.touch(ctx, roomID, senderID, msg.CreatedAt)

	return &chat.MessageResponse{Message: *msg, SenderUsername: sender.Username}, nil
}

// ListRoomMessages returns one page of a room's messages, newest first
func (s *Service) ListRoomMessages(ctx context.Context, id string, limit, offset int) (*chat.MessageListResponse, error) {
	roomID, err := parseID("room", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	limit, offset = chat.NormalizePage(limit, offset)
	messages, err := s.store.ListRoomMessages(ctx, roomID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &chat.MessageListResponse{
		RoomID:   roomID,
		Messages: messages,
		Count:    len(messages),
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// GetMessage returns one message
func (s *Service) GetMessage(ctx context.Context, id string) (*chat.MessageResponse, error) {
	messageID, err := parseID("message", id)
	if err != nil {
		return nil, err
	}
	return s.store.GetMessage(ctx, messageID)
}

// SendQuantumBit teleports a classical bit from sender to receiver inside a
// room and records it as a message. The message is stored before
// teleporting and ends up teleported or failed.
func (s *Service) SendQuantumBit(ctx context.Context, req *teleport.QuantumTeleportRequest) (*teleport.QuantumTeleportResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	bit, err := quantum.NewBit(*req.ClassicalBit)
	if err != nil {
		return nil, models.Invalid("classical_bit must be 0 or 1")
	}

	roomID := uuid.MustParse(req.RoomID)
	senderID := uuid.MustParse(req.SenderID)
	receiverID := uuid.MustParse(req.ReceiverID)

	if _, err := s.requireMember(ctx, roomID, senderID, chat.ErrSenderNotInRoom); err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, roomID, receiverID, chat.ErrReceiverNotInRoom); err != nil {
		return nil, err
	}

	content := fmt.Sprintf("Quantum bit teleportation: %d", bit)
	if req.MessageContent != nil && *req.MessageContent != "" {
		content = *req.MessageContent
	}
	state := bit.String()
	msg := &chat.Message{
		ID:           uuid.New(),
		RoomID:       roomID,
		SenderID:     senderID,
		Content:      content,
		QuantumState: &state,
		Status:       chat.StatusSent,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	outcome, teleportErr := s.teleporter.TeleportBit(ctx, bit)
	if teleportErr != nil {
		msg.Status = chat.StatusFailed
		msg.TeleportationResult, _ = json.Marshal(map[string]string{"error": teleportErr.Error()})
		if err := s.store.UpdateMessage(context.WithoutCancel(ctx), msg); err != nil {
			s.logger.Error().Err(err).Str("message_id", msg.ID.String()).Msg("Failed to record teleportation failure")
		}
		s.logger.Error().Err(teleportErr).Str("message_id", msg.ID.String()).Msg("Quantum teleportation failed")
		return nil, teleportErr
	}

	result, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to encode teleportation result: %w", err)
	}
	msg.Status = chat.StatusTeleported
	msg.TeleportationResult = result
	if err := s.store.UpdateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.touch(ctx, roomID, senderID, msg.CreatedAt)

	return &teleport.QuantumTeleportResponse{
		Success:           outcome.Success,
		SenderID:          req.SenderID,
		ReceiverID:        req.ReceiverID,
		SentBit:           outcome.SentBit,
		ReceivedBit:       outcome.ReceivedBit,
		ClassicalBits:     outcome.ClassicalBits,
		ReceiverState:     outcome.ReceiverState,
		TeleportationData: outcome,
		Timestamp:         msg.CreatedAt,
		MessageID:         msg.ID.String(),
	}, nil
}

// MarkIdleUsersOffline flags users not seen within idle as offline
func (s *Service) MarkIdleUsersOffline(ctx context.Context, idle time.Duration) (int64, error) {
	n, err := s.store.MarkUsersOffline(ctx, s.now().Add(-idle))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("users", n).Dur("idle", idle).Msg("Marked idle users offline")
	}
	return n, nil
}

// requireMember loads the user and checks room membership. The room must exist.
func (s *Service) requireMember(ctx context.Context, roomID, userID uuid.UUID, notMember error) (*chat.User, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notMember
	}
	return user, nil
}

// touch bumps room activity and sender presence; failures are only logged
func (s *Service) touch(ctx context.Context, roomID, userID uuid.UUID, at time.Time) {
	if err := s.store.TouchRoom(ctx, roomID, at); err != nil {
		s.logger.Warn().Err(err).Str("room_id", roomID.String()).Msg("Failed to update room activity")
	}
	if _, err := s.store.UpdateUserStatus(ctx, userID, true, at); err != nil && !errors.Is(err, chat.ErrUserNotFound) {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to update presence")
	}
}

func (s *Service) roomResponse(ctx context.Context, room *chat.Room) (*chat.RoomResponse, error) {
	participants, err := s.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	return &chat.RoomResponse{Room: *room, Participants: participants}, nil
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, models.Invalid("invalid %s id %q", kind, raw)
	}
	return id, nil
}
