package service

import (
	"errors"
	"log"

	"github.com/dayeonkimm/vita-gamemate/internal/repository"
	"gorm.io/gorm"
)

var ErrMembershipNotFound = errors.New("chat room membership not found")

// UnreadCacheStore is the cache side of the unread counter. Implemented by
// cache.UnreadCache; cache misses and cache errors both leave the durable
// store authoritative.
type UnreadCacheStore interface {
	Get(roomID, userID uint) (int, bool, error)
	Set(roomID, userID uint, count int) error
	Incr(roomID, userID uint) error
	Reset(roomID, userID uint) error
}

// UnreadService is a read-through/write-through counter in front of the
// durable unread_count column. Cache failures are logged and swallowed: every
// operation still performs its durable effect with the cache down.
type UnreadService struct {
	memberships repository.ChatRoomUserRepositoryInterface
	cache       UnreadCacheStore
}

func NewUnreadService(memberships repository.ChatRoomUserRepositoryInterface, cache UnreadCacheStore) *UnreadService {
	return &UnreadService{memberships: memberships, cache: cache}
}

// GetUnreadCount returns the user's unread count for the room, filling the
// cache on a miss. Missing memberships surface as ErrMembershipNotFound.
func (s *UnreadService) GetUnreadCount(roomID, userID uint) (int, error) {
	if count, hit, err := s.cache.Get(roomID, userID); err != nil {
		log.Printf("unread cache read failed for room %d user %d: %v", roomID, userID, err)
	} else if hit {
		return count, nil
	}

	membership, err := s.memberships.Find(roomID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMembershipNotFound
		}
		return 0, err
	}

	if err := s.cache.Set(roomID, userID, membership.UnreadCount); err != nil {
		log.Printf("unread cache fill failed for room %d user %d: %v", roomID, userID, err)
	}
	return membership.UnreadCount, nil
}

// IncrementUnreadCount bumps the durable counter atomically, then mirrors the
// bump into the cache. Zero rows affected means no membership exists; that is
// a logged no-op, not an error.
func (s *UnreadService) IncrementUnreadCount(roomID, userID uint) error {
	rows, err := s.memberships.IncrementUnread(roomID, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		log.Printf("no membership to increment for room %d user %d", roomID, userID)
		return nil
	}

	if err := s.cache.Incr(roomID, userID); err != nil {
		log.Printf("unread cache increment failed for room %d user %d: %v", roomID, userID, err)
	}
	return nil
}

// ResetUnreadCount zeroes the durable counter and the cache entry. Called once
// per successful room connect.
func (s *UnreadService) ResetUnreadCount(roomID, userID uint) error {
	if err := s.memberships.ResetUnread(roomID, userID); err != nil {
		return err
	}

	if err := s.cache.Reset(roomID, userID); err != nil {
		log.Printf("unread cache reset failed for room %d user %d: %v", roomID, userID, err)
	}
	return nil
}
