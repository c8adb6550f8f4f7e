package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatRoom is a 1:1 conversation container. LastMessageAt is denormalized so
// room lists can sort without joining messages; it is bumped both when a
// message is buffered and when the flusher persists a batch.
type ChatRoom struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LastMessageAt *time.Time `gorm:"index" json:"last_message_at"`

	ChatRoomUsers []ChatRoomUser `gorm:"foreignKey:ChatRoomID" json:"-"`
	Messages      []Message      `gorm:"foreignKey:RoomID" json:"-"`
}

// ChatRoomUser ties one user to one room and carries that user's durable
// unread counter. Exactly two rows exist per room in the 1:1 model.
type ChatRoomUser struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChatRoomID uint `gorm:"not null;uniqueIndex:idx_room_user" json:"chat_room_id"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_room_user;index" json:"user_id"`
	User       User `gorm:"foreignKey:UserID" json:"-"`

	UnreadCount int `gorm:"not null;default:0" json:"unread_count"`
}

// ChatRoomSummary is the annotated row returned by room-list queries.
type ChatRoomSummary struct {
	ID                    uint       `json:"id"`
	OtherUserID           uint       `json:"other_user_id"`
	OtherUserNickname     string     `json:"other_user_nickname"`
	OtherUserProfileImage string     `json:"other_user_profile_image"`
	LatestMessage         *string    `json:"latest_message"`
	LatestMessageTime     *time.Time `json:"latest_message_time"`
	UnreadCount           int        `json:"unread_count"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
