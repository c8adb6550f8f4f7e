package repository

import (
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"gorm.io/gorm"
)

type ChatRoomRepository struct {
	db *gorm.DB
}

func NewChatRoomRepository(db *gorm.DB) *ChatRoomRepository {
	return &ChatRoomRepository{db: db}
}

// Create makes a new room and both memberships in one transaction.
func (r *ChatRoomRepository) Create(userID1, userID2 uint) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		memberships := []models.ChatRoomUser{
			{ChatRoomID: room.ID, UserID: userID1},
			{ChatRoomID: room.ID, UserID: userID2},
		}
		return tx.Create(&memberships).Error
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *ChatRoomRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChatRoom{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindSharedRoom returns the room both users are members of, if any.
func (r *ChatRoomRepository) FindSharedRoom(userID1, userID2 uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.
		Joins("JOIN chat_room_users cru1 ON cru1.chat_room_id = chat_rooms.id AND cru1.user_id = ?", userID1).
		Joins("JOIN chat_room_users cru2 ON cru2.chat_room_id = chat_rooms.id AND cru2.user_id = ?", userID2).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListForUser returns the caller's rooms annotated with the latest durable
// message and the other participant, newest activity first. The unread count
// is filled in by the caller (it lives behind the unread cache).
func (r *ChatRoomRepository) ListForUser(userID uint) ([]models.ChatRoomSummary, error) {
	var rows []models.ChatRoomSummary
	err := r.db.Model(&models.ChatRoom{}).
		Select(`chat_rooms.id,
			chat_rooms.updated_at,
			other.user_id AS other_user_id,
			users.nickname AS other_user_nickname,
			users.profile_image AS other_user_profile_image,
			(SELECT text FROM messages m WHERE m.room_id = chat_rooms.id ORDER BY m.created_at DESC LIMIT 1) AS latest_message,
			(SELECT created_at FROM messages m WHERE m.room_id = chat_rooms.id ORDER BY m.created_at DESC LIMIT 1) AS latest_message_time`).
		Joins("JOIN chat_room_users mine ON mine.chat_room_id = chat_rooms.id AND mine.user_id = ?", userID).
		Joins("JOIN chat_room_users other ON other.chat_room_id = chat_rooms.id AND other.user_id <> ?", userID).
		Joins("JOIN users ON users.id = other.user_id").
		Order("chat_rooms.last_message_at DESC NULLS LAST").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ChatRoomRepository) TouchLastMessage(roomID uint, at time.Time) error {
	return r.db.Model(&models.ChatRoom{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", roomID, at).
		UpdateColumn("last_message_at", at).Error
}
