package repository

import (
	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"gorm.io/gorm"
)

type ChatRoomUserRepository struct {
	db *gorm.DB
}

func NewChatRoomUserRepository(db *gorm.DB) *ChatRoomUserRepository {
	return &ChatRoomUserRepository{db: db}
}

func (r *ChatRoomUserRepository) Find(roomID, userID uint) (*models.ChatRoomUser, error) {
	var membership models.ChatRoomUser
	err := r.db.Where("chat_room_id = ? AND user_id = ?", roomID, userID).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *ChatRoomUserRepository) OtherMember(roomID, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.
		Joins("JOIN chat_room_users ON chat_room_users.user_id = users.id").
		Where("chat_room_users.chat_room_id = ? AND chat_room_users.user_id <> ?", roomID, userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementUnread bumps the durable counter with a conditional update, never
// read-modify-write, so concurrent senders cannot lose increments. Returns the
// number of rows touched; 0 means the membership does not exist.
func (r *ChatRoomUserRepository) IncrementUnread(roomID, userID uint) (int64, error) {
	res := r.db.Model(&models.ChatRoomUser{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1"))
	return res.RowsAffected, res.Error
}

func (r *ChatRoomUserRepository) ResetUnread(roomID, userID uint) error {
	return r.db.Model(&models.ChatRoomUser{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		UpdateColumn("unread_count", 0).Error
}
