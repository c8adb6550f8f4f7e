package repository

import (
	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// CreateBatch inserts a flushed batch in a single transaction. The flusher
// relies on all-or-nothing semantics here: the sync marker only advances when
// every row in the batch is committed.
func (r *MessageRepository) CreateBatch(messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&messages).Error
	})
}

// ListByRoom returns one page of a room's messages, newest first, with the
// total count for pagination.
func (r *MessageRepository) ListByRoom(roomID uint, page, pageSize int) ([]models.Message, int64, error) {
	var total int64
	if err := r.db.Model(&models.Message{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := r.db.Preload("Sender").
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *MessageRepository) LatestForRoom(roomID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}
