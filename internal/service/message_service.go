package service

import (
	"errors"

	"github.com/codye1/chat.online.api/internal/models"
	"github.com/codye1/chat.online.api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PageSize is the fixed page size of the message read path. Callers of the
// HTTP and socket surfaces cannot vary it.
const PageSize = 20

type MessageService struct {
	messageRepo      repository.MessageRepositoryInterface
	conversationRepo repository.ConversationRepositoryInterface
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface, conversationRepo repository.ConversationRepositoryInterface) *MessageService {
	return &MessageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
	}
}

type PageDirection string

const (
	DirectionUp   PageDirection = "UP"
	DirectionDown PageDirection = "DOWN"
)

type PageOptions struct {
	Cursor       *uint
	Direction    PageDirection
	JumpToLatest bool
	Take         int
}

type PageResult struct {
	Items       []models.Message `json:"items"`
	HasMoreUp   bool             `json:"hasMoreUp"`
	HasMoreDown bool             `json:"hasMoreDown"`
	Anchor      *uint            `json:"anchor,omitempty"`
}

// Append writes a message to the conversation log. Authorization is the
// caller's job: membership must already have been checked against the
// conversation registry. An empty clientID gets a generated one; a repeated
// (clientID, sender) pair returns the previously appended row instead of a
// duplicate.
func (s *MessageService) Append(conversationID, senderID uint, clientID, text string) (*models.Message, error) {
	if text == "" {
		return nil, ErrInvalidInput
	}
	if clientID == "" {
		clientID = uuid.NewString()
	} else if existing, err := s.messageRepo.FindByClientID(clientID, senderID); err == nil {
		return existing, nil
	}

	message := &models.Message{
		ClientID:       clientID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := s.messageRepo.Create(message); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a dedup race; the first insert wins.
			return s.messageRepo.FindByClientID(clientID, senderID)
		}
		return nil, err
	}

	// Reload with sender profile
	return s.messageRepo.FindByID(message.ID)
}

// Page is the cursor/anchor pagination algorithm. It reconciles
// "resume where I left off" (no cursor: the caller's read cursor seeds the
// window, older read messages backfill a short unread tail) with
// "jump to latest" and with explicit cursor steps in either direction.
//
// The explicit-cursor branch only computes the flag for the requested
// direction; the opposite flag is carried over by the client from the page
// that produced the cursor. Recomputing it would cost an extra count per
// page for no client-visible gain.
//
// An unknown conversation yields an empty page, not an error.
func (s *MessageService) Page(conversationID, userID uint, opts PageOptions) (*PageResult, error) {
	take := opts.Take
	if take <= 0 {
		take = PageSize
	}

	if opts.JumpToLatest {
		items, err := s.messageRepo.Latest(conversationID, take)
		if err != nil {
			return nil, err
		}
		// Nothing can exist after "latest".
		return &PageResult{Items: items, HasMoreUp: true, HasMoreDown: false}, nil
	}

	if opts.Cursor == nil {
		return s.resumePage(conversationID, userID, take)
	}

	if opts.Direction == DirectionUp {
		items, err := s.messageRepo.Before(conversationID, *opts.Cursor, take)
		if err != nil {
			return nil, err
		}
		return &PageResult{Items: items, HasMoreUp: len(items) == take}, nil
	}

	items, err := s.messageRepo.After(conversationID, *opts.Cursor, take)
	if err != nil {
		return nil, err
	}
	return &PageResult{Items: items, HasMoreDown: len(items) == take}, nil
}

// resumePage serves the initial load: the participant's read cursor is the
// seam between read history and unread tail, and the anchor marks it for
// the client.
func (s *MessageService) resumePage(conversationID, userID uint, take int) (*PageResult, error) {
	var lastRead *uint
	participant, err := s.conversationRepo.GetParticipant(conversationID, userID)
	if err == nil {
		lastRead = participant.LastReadMessageID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if lastRead == nil {
		// Never read anything: start from the top of the log.
		items, err := s.messageRepo.Oldest(conversationID, take)
		if err != nil {
			return nil, err
		}
		result := &PageResult{
			Items:       items,
			HasMoreUp:   false,
			HasMoreDown: len(items) == take,
		}
		if len(items) > 0 {
			result.Anchor = &items[0].ID
		}
		return result, nil
	}

	newer, err := s.messageRepo.After(conversationID, *lastRead, take)
	if err != nil {
		return nil, err
	}

	if len(newer) == 0 {
		// Fully caught up: show the tail of the log.
		items, err := s.messageRepo.Latest(conversationID, take)
		if err != nil {
			return nil, err
		}
		result := &PageResult{
			Items:       items,
			HasMoreUp:   len(items) == take,
			HasMoreDown: false,
		}
		if len(items) > 0 {
			result.Anchor = &items[len(items)-1].ID
		}
		return result, nil
	}

	if len(newer) < take {
		// Short unread tail: backfill with the most recent read messages.
		// older.maxId <= newer.minId, so the concatenation is already in
		// ascending id order.
		older, err := s.messageRepo.LastOnOrBefore(conversationID, *lastRead, take-len(newer))
		if err != nil {
			return nil, err
		}
		items := append(older, newer...)
		result := &PageResult{
			Items:       items,
			HasMoreUp:   len(older) == take-len(newer),
			HasMoreDown: len(newer) == take,
		}
		for i := range items {
			if items[i].ID >= *lastRead {
				result.Anchor = &items[i].ID
				break
			}
		}
		return result, nil
	}

	// A full page of unread; the read history before the window always
	// exists when a read cursor does.
	result := &PageResult{
		Items:       newer,
		HasMoreUp:   true,
		HasMoreDown: len(newer) == take,
	}
	result.Anchor = &newer[0].ID
	return result, nil
}
