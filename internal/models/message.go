package models

import (
	"time"
)

// Message is immutable once created. Rows are written either directly by the
// REST send path or in bulk by the buffer flusher.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RoomID   uint     `gorm:"not null;index" json:"room_id"`
	Room     ChatRoom `gorm:"foreignKey:RoomID" json:"-"`
	SenderID uint     `gorm:"not null;index" json:"sender_id"`
	Sender   User     `gorm:"foreignKey:SenderID" json:"-"`

	Text string `gorm:"type:text;not null" json:"message"`
}

type MessageResponse struct {
	ID             uint      `json:"id"`
	SenderNickname string    `json:"sender_nickname"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		SenderNickname: m.Sender.Nickname,
		Message:        m.Text,
		Timestamp:      m.CreatedAt,
	}
}
