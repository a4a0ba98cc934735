package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/jaskrrish/Go-QChat/internal/models/chat"
	"github.com/jaskrrish/Go-QChat/internal/store/migrations"

	_ "modernc.org/sqlite"
)

// OpenSQLite connects to the database at path and applies migrations.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(path string, logger zerolog.Logger) (*sqlx.DB, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite serializes writers; one connection also keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyMigrations(db.DB, logger); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("Error closing database after migration failure")
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database connected and migrations applied")
	return db, nil
}

func applyMigrations(db *sql.DB, logger zerolog.Logger) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug().Msg("No database migrations to apply")
			return nil
		}
		return err
	}
	return nil
}

// SQLiteStore implements Store with sqlx
type SQLiteStore struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewSQLiteStore wraps a migrated database
func NewSQLiteStore(db *sqlx.DB, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// messageRow mirrors the messages table; the JSON result column is nullable text
type messageRow struct {
	chat.Message
	Result         sql.NullString `db:"result"`
	SenderUsername sql.NullString `db:"sender_username"`
}

func (r messageRow) response() chat.MessageResponse {
	msg := r.Message
	if r.Result.Valid {
		msg.TeleportationResult = json.RawMessage(r.Result.String)
	}
	return chat.MessageResponse{Message: msg, SenderUsername: r.SenderUsername.String}
}

const messageColumns = `m.id, m.room_id, m.sender_id, m.content, m.quantum_state,
	m.teleportation_result AS result, m.status, m.created_at, u.username AS sender_username`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *chat.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, is_online, last_seen, created_at)
		VALUES (:id, :username, :email, :is_online, :last_seen, :created_at)`, user)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.username"):
			return chat.ErrUsernameTaken
		case isUniqueViolation(err, "users.email"):
			return chat.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (*chat.User, error) {
	var user chat.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, chat.ErrUserNotFound)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*chat.User, error) {
	var user chat.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, notFound(err, chat.ErrUserNotFound)
	}
	return &user, nil
}

func (s *SQLiteStore) UpdateUserStatus(ctx context.Context, id uuid.UUID, online bool, seen time.Time) (*chat.User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_online = ?, last_seen = ? WHERE id = ?`, online, seen.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, chat.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *SQLiteStore) ListOnlineUsers(ctx context.Context) ([]chat.User, error) {
	users := make([]chat.User, 0)
	err := s.db.SelectContext(ctx, &users, `SELECT * FROM users WHERE is_online = 1 ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}
	return users, nil
}

func (s *SQLiteStore) MarkUsersOffline(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_online = 0 WHERE is_online = 1 AND last_seen < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark users offline: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CreateRoom(ctx context.Context, room *chat.Room, participants []chat.RoomParticipant) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn().Err(rbErr).Msg("Error rolling back transaction")
		}
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO rooms (id, name, created_by, created_at, last_activity)
		VALUES (:id, :name, :created_by, :created_at, :last_activity)`, room)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	for i := range participants {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO room_participants (id, room_id, user_id, joined_at)
			VALUES (:id, :room_id, :user_id, :joined_at)
			ON CONFLICT (room_id, user_id) DO NOTHING`, &participants[i])
		if err != nil {
			return fmt.Errorf("failed to add participant %s: %w", participants[i].UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit room: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRoom(ctx context.Context, id uuid.UUID) (*chat.Room, error) {
	var room chat.Room
	err := s.db.GetContext(ctx, &room, `SELECT * FROM rooms WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, chat.ErrRoomNotFound)
	}
	return &room, nil
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]chat.Room, error) {
	rooms := make([]chat.Room, 0)
	if err := s.db.SelectContext(ctx, &rooms, `SELECT * FROM rooms ORDER BY last_activity DESC`); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *SQLiteStore) TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rooms SET last_activity = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.ErrRoomNotFound
	}
	return nil
}

func (s *SQLiteStore) AddParticipant(ctx context.Context, participant *chat.RoomParticipant) (bool, error) {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO room_participants (id, room_id, user_id, joined_at)
		VALUES (:id, :room_id, :user_id, :joined_at)
		ON CONFLICT (room_id, user_id) DO NOTHING`, participant)
	if err != nil {
		return false, fmt.Errorf("failed to add participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) RemoveParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM room_participants WHERE room_id = ? AND user_id = ?`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.ErrParticipantMissing
	}
	return nil
}

func (s *SQLiteStore) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]chat.User, error) {
	users := make([]chat.User, 0)
	err := s.db.SelectContext(ctx, &users, `
		SELECT u.* FROM users u
		JOIN room_participants p ON p.user_id = u.id
		WHERE p.room_id = ?
		ORDER BY p.joined_at, p.rowid`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return users, nil
}

func (s *SQLiteStore) IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM room_participants WHERE room_id = ? AND user_id = ?)`, roomID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) ListUserRooms(ctx context.Context, userID uuid.UUID) ([]chat.Room, error) {
	rooms := make([]chat.Room, 0)
	err := s.db.SelectContext(ctx, &rooms, `
		SELECT r.* FROM rooms r
		JOIN room_participants p ON p.room_id = r.id
		WHERE p.user_id = ?
		ORDER BY r.last_activity DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user rooms: %w", err)
	}
	return rooms, nil
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, message *chat.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, quantum_state, teleportation_result, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		message.ID, message.RoomID, message.SenderID, message.Content, message.QuantumState,
		nullJSON(message.TeleportationResult), string(message.Status), message.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateMessage(ctx context.Context, message *chat.Message) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET status = ?, teleportation_result = ? WHERE id = ?`,
		string(message.Status), nullJSON(message.TeleportationResult), message.ID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.ErrMessageNotFound
	}
	return nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id uuid.UUID) (*chat.MessageResponse, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row, `SELECT `+messageColumns+`
		FROM messages m LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?`, id)
	if err != nil {
		return nil, notFound(err, chat.ErrMessageNotFound)
	}
	resp := row.response()
	return &resp, nil
}

func (s *SQLiteStore) ListRoomMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]chat.MessageResponse, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+`
		FROM messages m LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.room_id = ?
		ORDER BY m.created_at DESC, m.rowid DESC
		LIMIT ? OFFSET ?`, roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list room messages: %w", err)
	}

	out := make([]chat.MessageResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.response())
	}
	return out, nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func isUniqueViolation(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
