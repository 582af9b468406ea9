package repository

import (
	"time"

	"github.com/codye1/chat.online.api/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	FindByID(id uint) (*models.User, error)
	FindByIDs(ids []uint) ([]models.User, error)
	SearchByNickname(query string, limit int) ([]models.User, error)
	TouchLastSeen(userID uint, at time.Time) error
}

// MessageRepositoryInterface defines the contract for the per-conversation
// message log. All multi-row reads return messages in ascending id order.
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByClientID(clientID string, senderID uint) (*models.Message, error)
	Latest(conversationID uint, limit int) ([]models.Message, error)
	Oldest(conversationID uint, limit int) ([]models.Message, error)
	After(conversationID, cursor uint, limit int) ([]models.Message, error)
	Before(conversationID, cursor uint, limit int) ([]models.Message, error)
	LastOnOrBefore(conversationID, cursor uint, limit int) ([]models.Message, error)
	LastInConversation(conversationID uint) (*models.Message, error)
	CountUnread(conversationID, userID uint, lastReadMessageID *uint) (int64, error)
	BelongsTo(messageID, conversationID uint) (bool, error)
}

// ConversationRepositoryInterface defines the contract for conversations,
// participant membership and per-participant read cursors.
type ConversationRepositoryInterface interface {
	Create(conversation *models.Conversation) error
	FindByID(id uint) (*models.Conversation, error)
	FindByPairKey(pairKey string) (*models.Conversation, error)
	ListForUser(userID uint) ([]models.Conversation, error)
	IsParticipant(conversationID, userID uint) (bool, error)
	GetParticipant(conversationID, userID uint) (*models.Participant, error)
	AdvanceReadCursor(conversationID, userID, messageID uint) error
}
