package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/codye1/chat.online.api/internal/models"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, nickname string) *models.User {
	if id == 0 {
		id = 1
	}
	if nickname == "" {
		nickname = fmt.Sprintf("user%d", id)
	}

	return &models.User{
		ID:        id,
		Nickname:  nickname,
		Email:     nickname + "@example.com",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestMessage creates a test message with default values
func (h *TestHelper) CreateTestMessage(id, conversationID, senderID uint, text string) *models.Message {
	if id == 0 {
		id = 1
	}
	if senderID == 0 {
		senderID = 1
	}
	if text == "" {
		text = "Test message"
	}

	return &models.Message{
		ID:             id,
		ClientID:       fmt.Sprintf("client-%d", id),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      time.Now(),
		Sender: models.User{
			ID:       senderID,
			Nickname: fmt.Sprintf("user%d", senderID),
		},
	}
}

// CreateDirectConversation creates a two-party conversation with its pair
// key set, the way the registry would.
func (h *TestHelper) CreateDirectConversation(id, userID1, userID2 uint) *models.Conversation {
	pairKey := models.DirectPairKey(userID1, userID2)
	return &models.Conversation{
		ID:      id,
		Type:    models.DirectConversation,
		PairKey: &pairKey,
		Participants: []models.Participant{
			{ID: id*10 + 1, ConversationID: id, UserID: userID1, User: *h.CreateTestUser(userID1, "")},
			{ID: id*10 + 2, ConversationID: id, UserID: userID2, User: *h.CreateTestUser(userID2, "")},
		},
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("MAX_MESSAGE_LENGTH", "4000")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("MAX_MESSAGE_LENGTH")
}
