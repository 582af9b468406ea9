package models

import (
	"fmt"
	"time"
)

type ConversationType string

const (
	DirectConversation ConversationType = "DIRECT"
	GroupConversation  ConversationType = "GROUP"
)

type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Type      ConversationType `gorm:"type:varchar(10);not null;default:'DIRECT'" json:"type"`
	Title     *string          `json:"title"`
	AvatarURL *string          `json:"avatar_url"`

	// Sorted "lo:hi" user-id pair for DIRECT conversations, null for groups.
	// The unique index is what makes concurrent find-or-create converge on a
	// single conversation per pair.
	PairKey *string `gorm:"uniqueIndex" json:"-"`

	Participants []Participant `gorm:"foreignKey:ConversationID" json:"participants"`
}

// Participant joins a user to a conversation and carries the user's read
// cursor: the highest message id they have confirmed seeing.
type Participant struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConversationID uint `gorm:"not null;uniqueIndex:idx_user_conversation" json:"conversation_id"`
	UserID         uint `gorm:"not null;uniqueIndex:idx_user_conversation;index" json:"user_id"`
	User           User `gorm:"foreignKey:UserID" json:"user"`

	LastReadMessageID *uint `json:"last_read_message_id"`
}

// DirectPairKey builds the canonical pair key for a two-user direct
// conversation, order-independent.
func DirectPairKey(userID1, userID2 uint) string {
	if userID1 > userID2 {
		userID1, userID2 = userID2, userID1
	}
	return fmt.Sprintf("%d:%d", userID1, userID2)
}

// ConversationSummary is one row of the conversation list screen.
type ConversationSummary struct {
	ID          uint             `json:"id"`
	Type        ConversationType `json:"type"`
	Title       string           `json:"title"`
	AvatarURL   *string          `json:"avatar_url"`
	UnreadCount int64            `json:"unread_messages"`
	LastMessage *MessageResponse `json:"last_message"`
	Peer        *UserResponse    `json:"other_participant,omitempty"`
}

// ConversationDetail is the full view of a single conversation for one
// viewer, including their own read cursor.
type ConversationDetail struct {
	ID                uint             `json:"id"`
	Type              ConversationType `json:"type"`
	Title             string           `json:"title"`
	AvatarURL         *string          `json:"avatar_url"`
	Participants      []UserResponse   `json:"participants"`
	LastReadMessageID *uint            `json:"last_read_message_id"`
	UnreadCount       int64            `json:"unread_messages"`
	Peer              *UserResponse    `json:"other_participant,omitempty"`
}
