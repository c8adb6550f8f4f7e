package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"github.com/dayeonkimm/vita-gamemate/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound = errors.New("chat room not found")
	ErrUserNotFound = errors.New("user not found")
)

// ChatListCacheStore caches per-user room-list summaries. Implemented by
// cache.ChatListCache.
type ChatListCacheStore interface {
	Get(userID uint) ([]models.ChatRoomSummary, bool)
	Set(userID uint, rooms []models.ChatRoomSummary) error
	Invalidate(userID uint) error
}

type ChatService struct {
	rooms       repository.ChatRoomRepositoryInterface
	memberships repository.ChatRoomUserRepositoryInterface
	messages    repository.MessageRepositoryInterface
	users       repository.UserRepositoryInterface
	unread      *UnreadService
	listCache   ChatListCacheStore
}

func NewChatService(
	rooms repository.ChatRoomRepositoryInterface,
	memberships repository.ChatRoomUserRepositoryInterface,
	messages repository.MessageRepositoryInterface,
	users repository.UserRepositoryInterface,
	unread *UnreadService,
	listCache ChatListCacheStore,
) *ChatService {
	return &ChatService{
		rooms:       rooms,
		memberships: memberships,
		messages:    messages,
		users:       users,
		unread:      unread,
		listCache:   listCache,
	}
}

// CreateOrGetRoom returns the 1:1 room between the caller and the named user,
// creating it (with both memberships and a greeting message) when absent.
// created reports whether a new room was made.
func (s *ChatService) CreateOrGetRoom(mainUser *models.User, otherNickname string) (*models.ChatRoomSummary, bool, error) {
	other, err := s.users.FindByNickname(otherNickname)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, err
	}

	room, err := s.rooms.FindSharedRoom(mainUser.ID, other.ID)
	created := false
	greeting := fmt.Sprintf("Hello, this is %s", other.Nickname)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		room, err = s.rooms.Create(mainUser.ID, other.ID)
		if err != nil {
			return nil, false, err
		}
		created = true
		greeting = fmt.Sprintf("Nice to meet you, this is %s", other.Nickname)
	}

	now := time.Now()
	message := &models.Message{RoomID: room.ID, SenderID: other.ID, Text: greeting, CreatedAt: now}
	if err := s.messages.Create(message); err != nil {
		return nil, false, err
	}
	s.TouchRoom(room.ID, now, mainUser.ID, other.ID)

	summary := &models.ChatRoomSummary{
		ID:                    room.ID,
		OtherUserID:           other.ID,
		OtherUserNickname:     other.Nickname,
		OtherUserProfileImage: other.ProfileImage,
		LatestMessage:         &message.Text,
		LatestMessageTime:     &message.CreatedAt,
		UpdatedAt:             room.UpdatedAt,
	}
	return summary, created, nil
}

// ListRooms returns the caller's rooms with latest-message annotations and
// the caller's own unread count per room. The annotated rows are cached per
// user; unread counts are filled afterwards so they always go through the
// unread cache's freshness bound.
func (s *ChatService) ListRooms(userID uint) ([]models.ChatRoomSummary, error) {
	rows, hit := s.listCache.Get(userID)
	if !hit {
		var err error
		rows, err = s.rooms.ListForUser(userID)
		if err != nil {
			return nil, err
		}
		if err := s.listCache.Set(userID, rows); err != nil {
			log.Printf("chat list cache fill failed for user %d: %v", userID, err)
		}
	}

	for i := range rows {
		count, err := s.unread.GetUnreadCount(rows[i].ID, userID)
		if err != nil && !errors.Is(err, ErrMembershipNotFound) {
			return nil, err
		}
		rows[i].UnreadCount = count
	}
	return rows, nil
}

// RoomMessages returns one page of a room's durable messages, newest first.
func (s *ChatService) RoomMessages(roomID uint, page, pageSize int) ([]models.MessageResponse, int64, error) {
	exists, err := s.rooms.Exists(roomID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrRoomNotFound
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	messages, total, err := s.messages.ListByRoom(roomID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}
	return responses, total, nil
}

func (s *ChatService) RoomExists(roomID uint) (bool, error) {
	return s.rooms.Exists(roomID)
}

// OtherMember resolves the second participant of a 1:1 room.
func (s *ChatService) OtherMember(roomID, userID uint) (*models.User, error) {
	user, err := s.memberships.OtherMember(roomID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return user, nil
}

// LatestMessage returns the room's newest durable message, or nil when the
// room has none yet.
func (s *ChatService) LatestMessage(roomID uint) (*models.Message, error) {
	message, err := s.messages.LatestForRoom(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return message, nil
}

// TouchRoom bumps the room's denormalized activity timestamp and drops the
// participants' cached room lists. Best-effort on both counts.
func (s *ChatService) TouchRoom(roomID uint, at time.Time, memberIDs ...uint) {
	if err := s.rooms.TouchLastMessage(roomID, at); err != nil {
		log.Printf("failed to touch room %d: %v", roomID, err)
	}
	for _, id := range memberIDs {
		if err := s.listCache.Invalidate(id); err != nil {
			log.Printf("failed to invalidate chat list cache for user %d: %v", id, err)
		}
	}
}
