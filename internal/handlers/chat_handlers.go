package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	chatcore "github.com/jaskrrish/Go-QChat/internal/chat"
	"github.com/jaskrrish/Go-QChat/internal/models"
	"github.com/jaskrrish/Go-QChat/internal/models/chat"
)

// ChatHandler manages user, room and message requests
type ChatHandler struct {
	service *chatcore.Service
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler
func NewChatHandler(service *chatcore.Service, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// Routes mounts the chat endpoints
func (h *ChatHandler) Routes(r chi.Router) {
	r.Post("/users", h.CreateUserHandler)
	r.Get("/users/online", h.OnlineUsersHandler)
	r.Get("/users/{id}", h.GetUserHandler)
	r.Put("/users/{id}/status", h.UpdateUserStatusHandler)
	r.Get("/users/{id}/rooms", h.UserRoomsHandler)

	r.Get("/rooms", h.ListRoomsHandler)
	r.Post("/rooms", h.CreateRoomHandler)
	r.Post("/rooms/join", h.JoinRoomHandler)
	r.Post("/rooms/leave", h.LeaveRoomHandler)
	r.Get("/rooms/{id}", h.GetRoomHandler)
	r.Get("/rooms/{id}/participants", h.ParticipantsHandler)
	r.Delete("/rooms/{id}/participants/{userID}", h.RemoveParticipantHandler)
	r.Get("/rooms/{id}/messages", h.RoomMessagesHandler)

	r.Post("/messages", h.PostMessageHandler)
	r.Get("/messages/{id}", h.GetMessageHandler)
}

// CreateUserHandler handles POST /users
func (h *ChatHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req chat.UserCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), &req)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

// OnlineUsersHandler handles GET /users/online
func (h *ChatHandler) OnlineUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListOnlineUsers(r.Context())
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// GetUserHandler handles GET /users/{id}
func (h *ChatHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UpdateUserStatusHandler handles PUT /users/{id}/status
func (h *ChatHandler) UpdateUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req chat.UserStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	user, err := h.service.UpdateUserStatus(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UserRoomsHandler handles GET /users/{id}/rooms
func (h *ChatHandler) UserRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListUserRooms(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rooms)
}

// ListRoomsHandler handles GET /rooms
func (h *ChatHandler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rooms)
}

// CreateRoomHandler handles POST /rooms
func (h *ChatHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req chat.RoomCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	room, err := h.service.CreateRoom(r.Context(), &req)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, room)
}

// GetRoomHandler handles GET /rooms/{id}
func (h *ChatHandler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, room)
}

// ParticipantsHandler handles GET /rooms/{id}/participants
func (h *ChatHandler) ParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListParticipants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// RemoveParticipantHandler handles DELETE /rooms/{id}/participants/{userID}
func (h *ChatHandler) RemoveParticipantHandler(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveParticipant(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Participant removed successfully",
	})
}

// JoinRoomHandler handles POST /rooms/join
func (h *ChatHandler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req chat.MembershipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	room, err := h.service.JoinRoom(r.Context(), &req)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, room)
}

// LeaveRoomHandler handles POST /rooms/leave
func (h *ChatHandler) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req chat.MembershipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	if err := h.service.LeaveRoom(r.Context(), &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Left room successfully",
	})
}

// PostMessageHandler handles POST /messages
func (h *ChatHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req chat.MessageCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	msg, err := h.service.PostMessage(r.Context(), &req)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// RoomMessagesHandler handles GET /rooms/{id}/messages?limit=&offset=
func (h *ChatHandler) RoomMessagesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", chat.DefaultMessageLimit)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}

	page, err := h.service.ListRoomMessages(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// GetMessageHandler handles GET /messages/{id}
func (h *ChatHandler) GetMessageHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.GetMessage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithDomainError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, msg)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, models.Invalid("%s must be a non-negative integer", name)
	}
	return v, nil
}
