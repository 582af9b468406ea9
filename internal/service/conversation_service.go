package service

import (
	"errors"
	"sort"

	"github.com/codye1/chat.online.api/internal/models"
	"github.com/codye1/chat.online.api/internal/repository"
	"gorm.io/gorm"
)

// ConversationSummaryCache is the slice of the cache layer the registry
// needs. Satisfied by cache.SummaryCache.
type ConversationSummaryCache interface {
	Get(userID uint) ([]models.ConversationSummary, bool)
	Set(userID uint, summaries []models.ConversationSummary) error
	Invalidate(userIDs ...uint)
}

type ConversationService struct {
	conversationRepo repository.ConversationRepositoryInterface
	messageRepo      repository.MessageRepositoryInterface
	userRepo         repository.UserRepositoryInterface
	presence         *PresenceService
	summaryCache     ConversationSummaryCache
}

func NewConversationService(
	conversationRepo repository.ConversationRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	presence *PresenceService,
	summaryCache ConversationSummaryCache,
) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		presence:         presence,
		summaryCache:     summaryCache,
	}
}

// Summarized is the single source of truth for how a conversation presents
// itself to one viewer: explicit title/avatar when set, otherwise the other
// participant's identity for direct conversations.
type Summarized struct {
	Title     string
	AvatarURL *string
	Peer      *models.UserResponse
}

func Summarize(conversation *models.Conversation, viewerID uint) Summarized {
	var out Summarized
	if conversation.Title != nil {
		out.Title = *conversation.Title
	}
	out.AvatarURL = conversation.AvatarURL

	for i := range conversation.Participants {
		p := &conversation.Participants[i]
		if p.UserID == viewerID {
			continue
		}
		peer := p.User.ToResponse()
		out.Peer = &peer
		break
	}

	if conversation.Type == models.DirectConversation && out.Peer != nil {
		if out.Title == "" {
			out.Title = out.Peer.Nickname
		}
		if out.AvatarURL == nil {
			out.AvatarURL = out.Peer.AvatarURL
		}
	}
	return out
}

// ListForUser builds one summary per conversation the user participates in:
// derived title/avatar, last message, unread count, and for direct
// conversations the peer's presence. Result ordering is unspecified;
// clients sort by last message time.
func (s *ConversationService) ListForUser(userID uint) ([]models.ConversationSummary, error) {
	if s.summaryCache != nil {
		if cached, ok := s.summaryCache.Get(userID); ok {
			return cached, nil
		}
	}

	conversations, err := s.conversationRepo.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		conversation := &conversations[i]

		var lastRead *uint
		for j := range conversation.Participants {
			if conversation.Participants[j].UserID == userID {
				lastRead = conversation.Participants[j].LastReadMessageID
				break
			}
		}

		unread, err := s.messageRepo.CountUnread(conversation.ID, userID, lastRead)
		if err != nil {
			return nil, err
		}

		summary := models.ConversationSummary{
			ID:          conversation.ID,
			Type:        conversation.Type,
			UnreadCount: unread,
		}

		derived := Summarize(conversation, userID)
		summary.Title = derived.Title
		summary.AvatarURL = derived.AvatarURL
		summary.Peer = derived.Peer

		if last, err := s.messageRepo.LastInConversation(conversation.ID); err == nil {
			response := last.ToResponse()
			summary.LastMessage = &response
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if conversation.Type == models.DirectConversation && summary.Peer != nil {
			if lastSeen, err := s.presence.Get(summary.Peer.ID); err == nil {
				summary.Peer.LastSeen = lastSeen
			}
		}

		summaries = append(summaries, summary)
	}

	if s.summaryCache != nil {
		_ = s.summaryCache.Set(userID, summaries)
	}
	return summaries, nil
}

// GetByID resolves a conversation for one viewer. Non-participants get
// ErrNotFound, never the data: authorization is part of the query, not an
// add-on check.
func (s *ConversationService) GetByID(conversationID, userID uint) (*models.ConversationDetail, error) {
	conversation, err := s.conversationRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !isParticipantOf(conversation, userID) {
		return nil, ErrNotFound
	}

	return s.toDetail(conversation, userID)
}

// GetByParticipantPair finds an existing conversation whose participant set
// exactly matches the given pair, order-independent. A missing conversation
// is (nil, nil), not an error: "find-or-start a chat" treats absence as a
// normal answer.
func (s *ConversationService) GetByParticipantPair(userIDs []uint, requesterID uint) (*models.ConversationDetail, error) {
	if len(userIDs) != 2 {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.FindByPairKey(models.DirectPairKey(userIDs[0], userIDs[1]))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.toDetail(conversation, requesterID)
}

type CreateConversationInput struct {
	ParticipantIDs []uint  `json:"participantIds"`
	Title          *string `json:"title"`
	CreatorID      uint    `json:"-"`
}

// Create makes a conversation and its participant rows atomically. A
// two-party conversation is DIRECT and carries the pair key; a concurrent
// duplicate creation converges on the row that won the unique-index race.
func (s *ConversationService) Create(input CreateConversationInput) (*models.ConversationDetail, error) {
	ids := dedupeIDs(input.ParticipantIDs)
	if len(ids) < 2 {
		return nil, ErrInvalidInput
	}
	if !containsID(ids, input.CreatorID) {
		return nil, ErrInvalidInput
	}

	conversation := &models.Conversation{
		Type:  models.GroupConversation,
		Title: input.Title,
	}
	if len(ids) == 2 {
		conversation.Type = models.DirectConversation
		pairKey := models.DirectPairKey(ids[0], ids[1])
		conversation.PairKey = &pairKey
	}
	for _, id := range ids {
		conversation.Participants = append(conversation.Participants, models.Participant{UserID: id})
	}

	if err := s.conversationRepo.Create(conversation); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && conversation.PairKey != nil {
			// Lost the create-if-absent race; the existing row is the answer.
			existing, ferr := s.conversationRepo.FindByPairKey(*conversation.PairKey)
			if ferr != nil {
				return nil, ferr
			}
			return s.toDetail(existing, input.CreatorID)
		}
		return nil, err
	}

	s.invalidateSummaries(ids...)

	// Reload so participant user profiles are populated.
	created, err := s.conversationRepo.FindByID(conversation.ID)
	if err != nil {
		return nil, err
	}
	return s.toDetail(created, input.CreatorID)
}

// FindOrCreateDirect resolves the direct conversation for a pair, creating
// it when absent. The second return reports whether this call created it.
// Two racing first messages both land here; the pair-key unique index picks
// one winner and the loser returns the winner's row with created=false.
func (s *ConversationService) FindOrCreateDirect(userID, recipientID uint) (*models.ConversationDetail, bool, error) {
	if recipientID == 0 || recipientID == userID {
		return nil, false, ErrInvalidInput
	}

	pairKey := models.DirectPairKey(userID, recipientID)
	existing, err := s.conversationRepo.FindByPairKey(pairKey)
	if err == nil {
		detail, derr := s.toDetail(existing, userID)
		return detail, false, derr
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	conversation := &models.Conversation{
		Type:    models.DirectConversation,
		PairKey: &pairKey,
		Participants: []models.Participant{
			{UserID: userID},
			{UserID: recipientID},
		},
	}
	if err := s.conversationRepo.Create(conversation); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			winner, ferr := s.conversationRepo.FindByPairKey(pairKey)
			if ferr != nil {
				return nil, false, ferr
			}
			detail, derr := s.toDetail(winner, userID)
			return detail, false, derr
		}
		return nil, false, err
	}

	s.invalidateSummaries(userID, recipientID)

	created, err := s.conversationRepo.FindByID(conversation.ID)
	if err != nil {
		return nil, false, err
	}
	detail, err := s.toDetail(created, userID)
	return detail, true, err
}

// IsParticipant is the authorization primitive for every realtime event and
// message endpoint.
func (s *ConversationService) IsParticipant(conversationID, userID uint) (bool, error) {
	return s.conversationRepo.IsParticipant(conversationID, userID)
}

// ParticipantIDs lists current member ids, for cache invalidation and
// out-of-room notification targeting.
func (s *ConversationService) ParticipantIDs(conversationID uint) ([]uint, error) {
	conversation, err := s.conversationRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ids := make([]uint, 0, len(conversation.Participants))
	for i := range conversation.Participants {
		ids = append(ids, conversation.Participants[i].UserID)
	}
	return ids, nil
}

// AdvanceReadCursor moves a participant's read high-water mark. The message
// must belong to the same conversation; a cross-conversation id is rejected
// before anything is written.
func (s *ConversationService) AdvanceReadCursor(conversationID, userID, messageID uint) error {
	belongs, err := s.messageRepo.BelongsTo(messageID, conversationID)
	if err != nil {
		return err
	}
	if !belongs {
		return ErrInvalidInput
	}
	if err := s.conversationRepo.AdvanceReadCursor(conversationID, userID, messageID); err != nil {
		return err
	}
	s.invalidateSummaries(userID)
	return nil
}

// InvalidateSummaries drops every participant's cached conversation list.
// Called after a message append changes a conversation's last message and
// unread counts; the next ListForUser recomputes from the store.
func (s *ConversationService) InvalidateSummaries(conversationID uint) {
	ids, err := s.ParticipantIDs(conversationID)
	if err != nil {
		return
	}
	s.invalidateSummaries(ids...)
}

func (s *ConversationService) invalidateSummaries(userIDs ...uint) {
	if s.summaryCache != nil {
		s.summaryCache.Invalidate(userIDs...)
	}
}

func (s *ConversationService) toDetail(conversation *models.Conversation, viewerID uint) (*models.ConversationDetail, error) {
	detail := &models.ConversationDetail{
		ID:   conversation.ID,
		Type: conversation.Type,
	}

	derived := Summarize(conversation, viewerID)
	detail.Title = derived.Title
	detail.AvatarURL = derived.AvatarURL
	detail.Peer = derived.Peer

	for i := range conversation.Participants {
		p := &conversation.Participants[i]
		detail.Participants = append(detail.Participants, p.User.ToResponse())
		if p.UserID == viewerID {
			detail.LastReadMessageID = p.LastReadMessageID
		}
	}

	unread, err := s.messageRepo.CountUnread(conversation.ID, viewerID, detail.LastReadMessageID)
	if err != nil {
		return nil, err
	}
	detail.UnreadCount = unread

	if conversation.Type == models.DirectConversation && detail.Peer != nil {
		if lastSeen, err := s.presence.Get(detail.Peer.ID); err == nil {
			detail.Peer.LastSeen = lastSeen
		}
	}
	return detail, nil
}

func isParticipantOf(conversation *models.Conversation, userID uint) bool {
	for i := range conversation.Participants {
		if conversation.Participants[i].UserID == userID {
			return true
		}
	}
	return false
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
