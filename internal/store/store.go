package store

import (
	"context"

	"github.com/tobyn/chatline/internal/models"
)

// Store is the record store gateway. Implementations translate storage
// failures into apperr kinds: KindValidation for bad input, KindNotFound for
// absent entities, KindStore for I/O problems, and KindPartialCascade when a
// chat delete succeeds but its message sweep does not.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Chat operations
	CreateChat(ctx context.Context, name string) (*models.Chat, error)
	FindChatByID(ctx context.Context, id int64) (*models.Chat, error)
	RenameChat(ctx context.Context, id int64, name string) (*models.Chat, error)
	DeleteChat(ctx context.Context, id int64) error
	ListChatsWithLastMessage(ctx context.Context) ([]models.ChatWithLastMessage, error)

	// Message operations
	CreateMessage(ctx context.Context, userID, chatID int64, body string) (*models.Message, error)
	ListMessagesByChatID(ctx context.Context, chatID int64) ([]models.Message, error)

	Close() error
}
