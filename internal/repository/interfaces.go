package repository

import (
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindByNickname(nickname string) (*models.User, error)
	Update(user *models.User) error
}

// ChatRoomRepositoryInterface defines the contract for chat room operations
type ChatRoomRepositoryInterface interface {
	Create(userID1, userID2 uint) (*models.ChatRoom, error)
	Exists(id uint) (bool, error)
	FindSharedRoom(userID1, userID2 uint) (*models.ChatRoom, error)
	ListForUser(userID uint) ([]models.ChatRoomSummary, error)
	TouchLastMessage(roomID uint, at time.Time) error
}

// ChatRoomUserRepositoryInterface defines the contract for membership operations
type ChatRoomUserRepositoryInterface interface {
	Find(roomID, userID uint) (*models.ChatRoomUser, error)
	OtherMember(roomID, userID uint) (*models.User, error)
	IncrementUnread(roomID, userID uint) (int64, error)
	ResetUnread(roomID, userID uint) error
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	CreateBatch(messages []models.Message) error
	ListByRoom(roomID uint, page, pageSize int) ([]models.Message, int64, error)
	LatestForRoom(roomID uint) (*models.Message, error)
}
