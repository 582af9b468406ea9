package repository

import (
	"github.com/codye1/chat.online.api/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").
		Where("client_id = ? AND sender_id = ?", clientID, senderID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Latest returns the most recent limit messages, ascending by id.
func (r *MessageRepository) Latest(conversationID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// Oldest returns the first limit messages, ascending by id.
func (r *MessageRepository) Oldest(conversationID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// After returns up to limit messages with id strictly greater than cursor,
// ascending.
func (r *MessageRepository) After(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("conversation_id = ? AND id > ?", conversationID, cursor).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// Before returns the most recent limit messages with id strictly less than
// cursor, ascending.
func (r *MessageRepository) Before(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("conversation_id = ? AND id < ?", conversationID, cursor).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// LastOnOrBefore returns the most recent limit messages with id less than or
// equal to cursor, ascending. Used to backfill read history behind the read
// cursor.
func (r *MessageRepository) LastOnOrBefore(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("conversation_id = ? AND id <= ?", conversationID, cursor).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (r *MessageRepository) LastInConversation(conversationID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// CountUnread counts messages in the conversation sent by someone else with
// an id above the participant's read cursor. A nil cursor means nothing has
// been read yet.
func (r *MessageRepository) CountUnread(conversationID, userID uint, lastReadMessageID *uint) (int64, error) {
	query := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID)
	if lastReadMessageID != nil {
		query = query.Where("id > ?", *lastReadMessageID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *MessageRepository) BelongsTo(messageID, conversationID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("id = ? AND conversation_id = ?", messageID, conversationID).
		Count(&count).Error
	return count > 0, err
}

func reverse(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
