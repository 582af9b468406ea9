package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Nickname  string     `gorm:"uniqueIndex;not null" json:"nickname"`
	Email     string     `gorm:"uniqueIndex;not null" json:"-"`
	AvatarURL *string    `json:"avatar_url"`
	LastSeen  *time.Time `json:"last_seen_at"`

	Messages []Message `gorm:"foreignKey:SenderID" json:"-"`
}

type UserResponse struct {
	ID        uint       `json:"id"`
	Nickname  string     `json:"nickname"`
	AvatarURL *string    `json:"avatar_url"`
	LastSeen  *time.Time `json:"last_seen_at,omitempty"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Nickname:  u.Nickname,
		AvatarURL: u.AvatarURL,
		LastSeen:  u.LastSeen,
	}
}
