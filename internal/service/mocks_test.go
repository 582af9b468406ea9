package service

import (
	"sort"
	"time"

	"github.com/codye1/chat.online.api/internal/models"
	"gorm.io/gorm"
)

// MockMessageRepository is a map-backed implementation of
// MessageRepositoryInterface for testing.
type MockMessageRepository struct {
	messages map[uint]*models.Message
	nextID   uint

	// duplicateOnCreate simulates losing a unique-index race: the next
	// Create fails with gorm.ErrDuplicatedKey and this row becomes the
	// concurrent winner.
	duplicateOnCreate *models.Message
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.Message),
		nextID:   1,
	}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if m.duplicateOnCreate != nil {
		winner := m.duplicateOnCreate
		m.duplicateOnCreate = nil
		m.messages[winner.ID] = winner
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range m.messages {
		if existing.ClientID == message.ClientID && existing.SenderID == message.SenderID {
			return gorm.ErrDuplicatedKey
		}
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	} else if message.ID >= m.nextID {
		m.nextID = message.ID + 1
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	for _, msg := range m.messages {
		if msg.ClientID == clientID && msg.SenderID == senderID {
			return msg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// sortedConversation returns the conversation's messages in ascending id
// order, the invariant every multi-row read upholds.
func (m *MockMessageRepository) sortedConversation(conversationID uint) []models.Message {
	var result []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			result = append(result, *msg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *MockMessageRepository) Latest(conversationID uint, limit int) ([]models.Message, error) {
	all := m.sortedConversation(conversationID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *MockMessageRepository) Oldest(conversationID uint, limit int) ([]models.Message, error) {
	all := m.sortedConversation(conversationID)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockMessageRepository) After(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.sortedConversation(conversationID) {
		if msg.ID > cursor {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockMessageRepository) Before(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.sortedConversation(conversationID) {
		if msg.ID < cursor {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *MockMessageRepository) LastOnOrBefore(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.sortedConversation(conversationID) {
		if msg.ID <= cursor {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *MockMessageRepository) LastInConversation(conversationID uint) (*models.Message, error) {
	all := m.sortedConversation(conversationID)
	if len(all) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	last := all[len(all)-1]
	return &last, nil
}

func (m *MockMessageRepository) CountUnread(conversationID, userID uint, lastReadMessageID *uint) (int64, error) {
	var count int64
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID || msg.SenderID == userID {
			continue
		}
		if lastReadMessageID != nil && msg.ID <= *lastReadMessageID {
			continue
		}
		count++
	}
	return count, nil
}

func (m *MockMessageRepository) BelongsTo(messageID, conversationID uint) (bool, error) {
	msg, ok := m.messages[messageID]
	return ok && msg.ConversationID == conversationID, nil
}

// MockConversationRepository is a map-backed implementation of
// ConversationRepositoryInterface for testing.
type MockConversationRepository struct {
	conversations map[uint]*models.Conversation
	nextID        uint

	// duplicateOnCreate simulates losing the pair-key unique-index race.
	duplicateOnCreate *models.Conversation
}

func NewMockConversationRepository() *MockConversationRepository {
	return &MockConversationRepository{
		conversations: make(map[uint]*models.Conversation),
		nextID:        1,
	}
}

func (m *MockConversationRepository) Create(conversation *models.Conversation) error {
	if m.duplicateOnCreate != nil {
		winner := m.duplicateOnCreate
		m.duplicateOnCreate = nil
		m.conversations[winner.ID] = winner
		return gorm.ErrDuplicatedKey
	}
	if conversation.PairKey != nil {
		for _, existing := range m.conversations {
			if existing.PairKey != nil && *existing.PairKey == *conversation.PairKey {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if conversation.ID == 0 {
		conversation.ID = m.nextID
		m.nextID++
	} else if conversation.ID >= m.nextID {
		m.nextID = conversation.ID + 1
	}
	for i := range conversation.Participants {
		conversation.Participants[i].ConversationID = conversation.ID
	}
	m.conversations[conversation.ID] = conversation
	return nil
}

func (m *MockConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	if conv, ok := m.conversations[id]; ok {
		return conv, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockConversationRepository) FindByPairKey(pairKey string) (*models.Conversation, error) {
	for _, conv := range m.conversations {
		if conv.PairKey != nil && *conv.PairKey == pairKey {
			return conv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockConversationRepository) ListForUser(userID uint) ([]models.Conversation, error) {
	var ids []uint
	for id, conv := range m.conversations {
		for i := range conv.Participants {
			if conv.Participants[i].UserID == userID {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	result := make([]models.Conversation, 0, len(ids))
	for _, id := range ids {
		result = append(result, *m.conversations[id])
	}
	return result, nil
}

func (m *MockConversationRepository) IsParticipant(conversationID, userID uint) (bool, error) {
	conv, ok := m.conversations[conversationID]
	if !ok {
		return false, nil
	}
	for i := range conv.Participants {
		if conv.Participants[i].UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockConversationRepository) GetParticipant(conversationID, userID uint) (*models.Participant, error) {
	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range conv.Participants {
		if conv.Participants[i].UserID == userID {
			return &conv.Participants[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockConversationRepository) AdvanceReadCursor(conversationID, userID, messageID uint) error {
	participant, err := m.GetParticipant(conversationID, userID)
	if err != nil {
		return err
	}
	if participant.LastReadMessageID == nil || *participant.LastReadMessageID < messageID {
		id := messageID
		participant.LastReadMessageID = &id
	}
	return nil
}

// MockUserRepository is a map-backed implementation of
// UserRepositoryInterface for testing.
type MockUserRepository struct {
	users map[uint]*models.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]*models.User)}
}

func (m *MockUserRepository) Add(user *models.User) {
	m.users[user.ID] = user
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	var result []models.User
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (m *MockUserRepository) SearchByNickname(query string, limit int) ([]models.User, error) {
	var result []models.User
	for _, user := range m.users {
		if len(result) >= limit {
			break
		}
		if len(query) <= len(user.Nickname) && user.Nickname[:len(query)] == query {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (m *MockUserRepository) TouchLastSeen(userID uint, at time.Time) error {
	user, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.LastSeen = &at
	return nil
}

// fakeSummaryCache records invalidations so tests can assert whose cached
// conversation lists were dropped.
type fakeSummaryCache struct {
	invalidated []uint
}

func (f *fakeSummaryCache) Get(userID uint) ([]models.ConversationSummary, bool) {
	return nil, false
}

func (f *fakeSummaryCache) Set(userID uint, summaries []models.ConversationSummary) error {
	return nil
}

func (f *fakeSummaryCache) Invalidate(userIDs ...uint) {
	f.invalidated = append(f.invalidated, userIDs...)
}
