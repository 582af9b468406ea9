package repository

import (
	"github.com/codye1/chat.online.api/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts the conversation and its participant rows in one
// transaction. For direct conversations the pair-key unique index rejects a
// concurrent duplicate; callers see gorm.ErrDuplicatedKey and should
// re-query by pair key.
func (r *ConversationRepository) Create(conversation *models.Conversation) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(conversation).Error
	})
}

func (r *ConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Preload("Participants.User").First(&conversation, id).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) FindByPairKey(pairKey string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Preload("Participants.User").
		Where("pair_key = ?", pairKey).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) ListForUser(userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.Preload("Participants.User").
		Joins("JOIN participants p ON p.conversation_id = conversations.id").
		Where("p.user_id = ?", userID).
		Find(&conversations).Error
	return conversations, err
}

// IsParticipant is the authorization primitive: a single lookup against
// current membership, never a cached value.
func (r *ConversationRepository) IsParticipant(conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ConversationRepository) GetParticipant(conversationID, userID uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// AdvanceReadCursor moves the participant's read cursor forward. GREATEST
// keeps the cursor monotonic under racing mark-read calls.
func (r *ConversationRepository) AdvanceReadCursor(conversationID, userID, messageID uint) error {
	return r.db.Exec(`
		UPDATE participants
		SET last_read_message_id = GREATEST(COALESCE(last_read_message_id, 0), ?),
			updated_at = NOW()
		WHERE conversation_id = ? AND user_id = ?
	`, messageID, conversationID, userID).Error
}
