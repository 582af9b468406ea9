package ws

import (
	"sort"
	"time"

	"github.com/codye1/chat.online.api/internal/models"
	"github.com/codye1/chat.online.api/internal/service"
	"gorm.io/gorm"
)

// fakeCaller records everything sent to one connection.
type fakeCaller struct {
	sent []interface{}
}

func (f *fakeCaller) SendJSON(v interface{}) error {
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeCaller) lastError() (ErrorResponse, bool) {
	for i := len(f.sent) - 1; i >= 0; i-- {
		if errResp, ok := f.sent[i].(ErrorResponse); ok {
			return errResp, true
		}
	}
	return ErrorResponse{}, false
}

// emittedEvent is one recorded fan-out call.
type emittedEvent struct {
	room    string
	event   string
	payload interface{}
}

// fakeBroadcaster records room membership changes and emits instead of
// touching connections.
type fakeBroadcaster struct {
	memberships map[string]map[Caller]bool
	emits       []emittedEvent
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{memberships: make(map[string]map[Caller]bool)}
}

func (b *fakeBroadcaster) JoinRoom(room string, c Caller) {
	if b.memberships[room] == nil {
		b.memberships[room] = make(map[Caller]bool)
	}
	b.memberships[room][c] = true
}

func (b *fakeBroadcaster) LeaveRoom(room string, c Caller) {
	delete(b.memberships[room], c)
}

func (b *fakeBroadcaster) EmitToRoom(room string, event string, payload interface{}) {
	b.emits = append(b.emits, emittedEvent{room: room, event: event, payload: payload})
}

func (b *fakeBroadcaster) joined(room string, c Caller) bool {
	return b.memberships[room][c]
}

func (b *fakeBroadcaster) eventsIn(room string) []string {
	var events []string
	for _, e := range b.emits {
		if e.room == room {
			events = append(events, e.event)
		}
	}
	return events
}

// Map-backed repository mocks, just enough behavior for the handlers under
// test.

type mockMessageRepo struct {
	messages map[uint]*models.Message
	nextID   uint
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{messages: make(map[uint]*models.Message), nextID: 1}
}

func (m *mockMessageRepo) Create(message *models.Message) error {
	for _, existing := range m.messages {
		if existing.ClientID == message.ClientID && existing.SenderID == message.SenderID {
			return gorm.ErrDuplicatedKey
		}
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	m.messages[message.ID] = message
	return nil
}

func (m *mockMessageRepo) FindByID(id uint) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMessageRepo) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	for _, msg := range m.messages {
		if msg.ClientID == clientID && msg.SenderID == senderID {
			return msg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMessageRepo) inConversation(conversationID uint) []models.Message {
	var result []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			result = append(result, *msg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *mockMessageRepo) Latest(conversationID uint, limit int) ([]models.Message, error) {
	all := m.inConversation(conversationID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *mockMessageRepo) Oldest(conversationID uint, limit int) ([]models.Message, error) {
	all := m.inConversation(conversationID)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockMessageRepo) After(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.inConversation(conversationID) {
		if msg.ID > cursor && len(result) < limit {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockMessageRepo) Before(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.inConversation(conversationID) {
		if msg.ID < cursor {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *mockMessageRepo) LastOnOrBefore(conversationID, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.inConversation(conversationID) {
		if msg.ID <= cursor {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *mockMessageRepo) LastInConversation(conversationID uint) (*models.Message, error) {
	all := m.inConversation(conversationID)
	if len(all) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	last := all[len(all)-1]
	return &last, nil
}

func (m *mockMessageRepo) CountUnread(conversationID, userID uint, lastReadMessageID *uint) (int64, error) {
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

func (m *mockMessageRepo) BelongsTo(messageID, conversationID uint) (bool, error) {
	msg, ok := m.messages[messageID]
	return ok && msg.ConversationID == conversationID, nil
}

type mockConversationRepo struct {
	conversations map[uint]*models.Conversation
	nextID        uint
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{conversations: make(map[uint]*models.Conversation), nextID: 1}
}

func (m *mockConversationRepo) Create(conversation *models.Conversation) error {
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

func (m *mockConversationRepo) FindByID(id uint) (*models.Conversation, error) {
	if conv, ok := m.conversations[id]; ok {
		return conv, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConversationRepo) FindByPairKey(pairKey string) (*models.Conversation, error) {
	for _, conv := range m.conversations {
		if conv.PairKey != nil && *conv.PairKey == pairKey {
			return conv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConversationRepo) ListForUser(userID uint) ([]models.Conversation, error) {
	var result []models.Conversation
	for _, conv := range m.conversations {
		for i := range conv.Participants {
			if conv.Participants[i].UserID == userID {
				result = append(result, *conv)
				break
			}
		}
	}
	return result, nil
}

func (m *mockConversationRepo) IsParticipant(conversationID, userID uint) (bool, error) {
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

func (m *mockConversationRepo) GetParticipant(conversationID, userID uint) (*models.Participant, error) {
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

func (m *mockConversationRepo) AdvanceReadCursor(conversationID, userID, messageID uint) error {
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

type mockUserRepo struct {
	users map[uint]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*models.User)}
}

func (m *mockUserRepo) FindByID(id uint) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) FindByIDs(ids []uint) ([]models.User, error) {
	var result []models.User
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (m *mockUserRepo) SearchByNickname(query string, limit int) ([]models.User, error) {
	return nil, nil
}

func (m *mockUserRepo) TouchLastSeen(userID uint, at time.Time) error {
	user, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.LastSeen = &at
	return nil
}

// testEnv wires a MessageContext over the mocks and recording fakes.
// fakeSummaryCache records which users' cached conversation lists were dropped.
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

type testEnv struct {
	ctx              *MessageContext
	caller           *fakeCaller
	broadcaster      *fakeBroadcaster
	messageRepo      *mockMessageRepo
	conversationRepo *mockConversationRepo
	userRepo         *mockUserRepo
	summaryCache     *fakeSummaryCache
}

func newTestEnv(userID uint) *testEnv {
	messageRepo := newMockMessageRepo()
	conversationRepo := newMockConversationRepo()
	userRepo := newMockUserRepo()
	summaryCache := &fakeSummaryCache{}

	presenceService := service.NewPresenceService(userRepo, nil)
	conversationService := service.NewConversationService(conversationRepo, messageRepo, userRepo, presenceService, summaryCache)
	messageService := service.NewMessageService(messageRepo, conversationRepo)
	userService := service.NewUserService(userRepo)
	readReceiptService := service.NewReadReceiptService(conversationService, messageRepo)

	caller := &fakeCaller{}
	broadcaster := newFakeBroadcaster()

	return &testEnv{
		ctx: &MessageContext{
			UserID:        userID,
			Caller:        caller,
			Broadcaster:   broadcaster,
			Conversations: conversationService,
			Messages:      messageService,
			Users:         userService,
			Presence:      presenceService,
			ReadReceipts:  readReceiptService,
		},
		caller:           caller,
		broadcaster:      broadcaster,
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		summaryCache:     summaryCache,
	}
}

func (e *testEnv) addUser(id uint, nickname string) *models.User {
	user := &models.User{ID: id, Nickname: nickname}
	e.userRepo.users[id] = user
	return user
}

func (e *testEnv) addDirectConversation(id, userID1, userID2 uint) *models.Conversation {
	pairKey := models.DirectPairKey(userID1, userID2)
	conv := &models.Conversation{
		ID:      id,
		Type:    models.DirectConversation,
		PairKey: &pairKey,
		Participants: []models.Participant{
			{ConversationID: id, UserID: userID1, User: models.User{ID: userID1}},
			{ConversationID: id, UserID: userID2, User: models.User{ID: userID2}},
		},
	}
	e.conversationRepo.conversations[id] = conv
	if id >= e.conversationRepo.nextID {
		e.conversationRepo.nextID = id + 1
	}
	return conv
}

func (e *testEnv) addMessage(id, conversationID, senderID uint, text string) *models.Message {
	msg := &models.Message{
		ID:             id,
		ClientID:       "fixture",
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
	}
	e.messageRepo.messages[id] = msg
	if id >= e.messageRepo.nextID {
		e.messageRepo.nextID = id + 1
	}
	return msg
}
