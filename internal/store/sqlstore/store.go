package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/tobyn/chatline/internal/apperr"
	"github.com/tobyn/chatline/internal/models"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if driverName == "sqlite3" {
		// A second pooled connection to an in-memory database would see an
		// empty schema, and file databases lock under concurrent writers.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing handle. Used by tests that inject failures.
func NewWithDB(db *sql.DB, driverName string) *SQLStore {
	return &SQLStore{db: db, driverName: driverName}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// sqlite3: "UNIQUE constraint failed", pq: "duplicate key value violates
	// unique constraint"
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	if username == "" {
		return nil, apperr.New(apperr.KindValidation, "You need to send a valid username")
	}

	now := time.Now().UTC()
	user := &models.User{Username: username, Password: passwordHash, CreatedAt: now, UpdatedAt: now}

	query := s.rebind("INSERT INTO users (username, password, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, username, passwordHash, now, now).Scan(&user.ID)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.KindValidation, "A user with that username already exists", err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while creating a new user", err)
	}
	return user, nil
}

func (s *SQLStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, apperr.New(apperr.KindValidation, "You need to send a valid username")
	}

	var user models.User
	query := s.rebind("SELECT id, username, password, created_at, updated_at FROM users WHERE username = ?")
	err := s.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "A user with that username does not exist")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while finding a user", err)
	}
	return &user, nil
}

func (s *SQLStore) CreateChat(ctx context.Context, name string) (*models.Chat, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "You need to provide a name for the chat")
	}

	now := time.Now().UTC()
	chat := &models.Chat{Name: name, CreatedAt: now, UpdatedAt: now}

	query := s.rebind("INSERT INTO chats (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, name, now, now).Scan(&chat.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while creating a new chat", err)
	}
	return chat, nil
}

func (s *SQLStore) FindChatByID(ctx context.Context, id int64) (*models.Chat, error) {
	var chat models.Chat
	query := s.rebind("SELECT id, name, created_at, updated_at FROM chats WHERE id = ?")
	err := s.db.QueryRowContext(ctx, query, id).Scan(&chat.ID, &chat.Name, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "A chat with that id does not exist")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while finding a chat by id", err)
	}
	return &chat, nil
}

func (s *SQLStore) RenameChat(ctx context.Context, id int64, name string) (*models.Chat, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "You need to send a valid name")
	}

	now := time.Now().UTC()
	query := s.rebind("UPDATE chats SET name = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, name, now, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while updating a chat", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while updating a chat", err)
	}
	if rows == 0 {
		return nil, apperr.New(apperr.KindNotFound, "A chat with that id does not exist")
	}
	return s.FindChatByID(ctx, id)
}

// DeleteChat removes the chat row and then sweeps its messages. The two
// steps mirror the document-store cascade: if the sweep fails after the chat
// row is gone the store is inconsistent, reported as KindPartialCascade.
func (s *SQLStore) DeleteChat(ctx context.Context, id int64) error {
	query := s.rebind("DELETE FROM chats WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "Something went wrong while removing a chat by id", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "Something went wrong while removing a chat by id", err)
	}
	if rows == 0 {
		return apperr.New(apperr.KindNotFound, "A chat with that id does not exist")
	}

	query = s.rebind("DELETE FROM messages WHERE chat_id = ?")
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return apperr.Wrap(apperr.KindPartialCascade,
			fmt.Sprintf("chat %d was deleted but its messages were not", id), err)
	}
	return nil
}

func (s *SQLStore) CreateMessage(ctx context.Context, userID, chatID int64, body string) (*models.Message, error) {
	if body == "" {
		return nil, apperr.New(apperr.KindValidation, "You need to send a valid message")
	}
	// Every message must reference an existing chat at creation time.
	if _, err := s.FindChatByID(ctx, chatID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg := &models.Message{ChatID: chatID, UserID: userID, Body: body, CreatedAt: now, UpdatedAt: now}

	query := s.rebind("INSERT INTO messages (chat_id, user_id, message, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, chatID, userID, body, now, now).Scan(&msg.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while creating a new message", err)
	}

	query = s.rebind("SELECT username FROM users WHERE id = ?")
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&msg.Username); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while creating a new message", err)
	}
	return msg, nil
}

func (s *SQLStore) ListMessagesByChatID(ctx context.Context, chatID int64) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.chat_id, m.user_id, COALESCE(u.username, ''), m.message, m.created_at, m.updated_at
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while getting chat messages", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.Body, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while getting chat messages", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while getting chat messages", err)
	}
	return messages, nil
}

func (s *SQLStore) ListChatsWithLastMessage(ctx context.Context) ([]models.ChatWithLastMessage, error) {
	query := `
		SELECT c.id, c.name, c.created_at, c.updated_at,
		       m.id, m.chat_id, m.user_id, m.message, m.created_at, m.updated_at
		FROM chats c
		LEFT JOIN messages m ON m.id = (
			SELECT m2.id FROM messages m2
			WHERE m2.chat_id = c.id
			ORDER BY m2.created_at DESC, m2.id DESC
			LIMIT 1
		)
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while getting all chats", err)
	}
	defer rows.Close()

	chats := []models.ChatWithLastMessage{}
	for rows.Next() {
		var c models.ChatWithLastMessage
		var (
			msgID, msgChatID, msgUserID sql.NullInt64
			msgBody                     sql.NullString
			msgCreated, msgUpdated      sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt,
			&msgID, &msgChatID, &msgUserID, &msgBody, &msgCreated, &msgUpdated); err != nil {
			return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while getting all chats", err)
		}
		if msgID.Valid {
			c.LastMessage = &models.Message{
				ID:        msgID.Int64,
				ChatID:    msgChatID.Int64,
				UserID:    msgUserID.Int64,
				Body:      msgBody.String,
				CreatedAt: msgCreated.Time,
				UpdatedAt: msgUpdated.Time,
			}
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Something went wrong while getting all chats", err)
	}
	return chats, nil
}
