package models

import (
	"time"
)

// Message is append-only: rows are never updated after creation except the
// read flag, and never deleted. The auto-increment primary key doubles as
// the pagination cursor, so ids are strictly increasing within a
// conversation.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Client-generated UUID for send deduplication.
	ClientID string `gorm:"type:varchar(36);uniqueIndex:idx_client_sender;not null" json:"client_id"`

	ConversationID uint `gorm:"not null;index:idx_conversation_id" json:"conversation_id"`
	SenderID       uint `gorm:"not null;uniqueIndex:idx_client_sender;index" json:"sender_id"`
	Sender         User `gorm:"foreignKey:SenderID" json:"-"`

	Text string `gorm:"type:text;not null" json:"text"`
	Read bool   `gorm:"default:false" json:"read"`
}

type MessageResponse struct {
	ID             uint         `json:"id"`
	ClientID       string       `json:"client_id"`
	ConversationID uint         `json:"conversation_id"`
	SenderID       uint         `json:"sender_id"`
	Sender         UserResponse `json:"sender"`
	Text           string       `json:"text"`
	Read           bool         `json:"read"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ClientID:       m.ClientID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Sender:         m.Sender.ToResponse(),
		Text:           m.Text,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
}
