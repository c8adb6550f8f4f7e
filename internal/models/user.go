package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Nickname     string `gorm:"uniqueIndex;not null" json:"nickname"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	ProfileImage string `json:"profile_image"`

	Messages []Message `gorm:"foreignKey:SenderID" json:"-"`
}

type UserResponse struct {
	ID           uint   `json:"id"`
	Nickname     string `json:"nickname"`
	Email        string `json:"email"`
	ProfileImage string `json:"profile_image"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		Nickname:     u.Nickname,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}
