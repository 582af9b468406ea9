package service

import (
	"errors"

	"github.com/codye1/chat.online.api/internal/repository"
	"gorm.io/gorm"
)

// ReadReceiptService advances read cursors and produces the event peers
// need to render "seen up to here" without a second fetch: the boundary
// message's id and sender, not the full message.
type ReadReceiptService struct {
	conversations *ConversationService
	messageRepo   repository.MessageRepositoryInterface
}

func NewReadReceiptService(conversations *ConversationService, messageRepo repository.MessageRepositoryInterface) *ReadReceiptService {
	return &ReadReceiptService{
		conversations: conversations,
		messageRepo:   messageRepo,
	}
}

type ReadReceipt struct {
	ConversationID    uint `json:"conversation_id"`
	LastReadMessageID uint `json:"last_read_message_id"`
	ReaderID          uint `json:"reader_id"`
	SenderID          uint `json:"sender_id"`
}

func (s *ReadReceiptService) MarkRead(conversationID, userID, lastReadMessageID uint) (*ReadReceipt, error) {
	isParticipant, err := s.conversations.IsParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, ErrNotParticipant
	}

	boundary, err := s.messageRepo.FindByID(lastReadMessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// AdvanceReadCursor re-checks conversation ownership of the id, so a
	// cross-conversation injection fails before any write.
	if err := s.conversations.AdvanceReadCursor(conversationID, userID, lastReadMessageID); err != nil {
		return nil, err
	}

	return &ReadReceipt{
		ConversationID:    conversationID,
		LastReadMessageID: lastReadMessageID,
		ReaderID:          userID,
		SenderID:          boundary.SenderID,
	}, nil
}
