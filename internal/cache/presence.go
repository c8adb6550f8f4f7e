package cache

import "log"

// PresenceTracker records which users currently hold an open room socket.
// It is advisory state only: the unread pipeline consults it, but nothing
// durable depends on it.
type PresenceTracker struct {
	redis *RedisCache
}

func NewPresenceTracker(redis *RedisCache) *PresenceTracker {
	return &PresenceTracker{redis: redis}
}

func (p *PresenceTracker) MarkPresent(roomID, userID uint) error {
	if p == nil || p.redis == nil {
		return nil
	}
	return p.redis.SetAdd(roomUsersKey(roomID), userID)
}

func (p *PresenceTracker) MarkAbsent(roomID, userID uint) error {
	if p == nil || p.redis == nil {
		return nil
	}
	return p.redis.SetRemove(roomUsersKey(roomID), userID)
}

// IsPresent treats cache errors as absent: a spurious unread increment is
// better than a dropped notification.
func (p *PresenceTracker) IsPresent(roomID, userID uint) bool {
	if p == nil || p.redis == nil {
		return false
	}
	present, err := p.redis.SetIsMember(roomUsersKey(roomID), userID)
	if err != nil {
		log.Printf("presence check failed for room %d user %d: %v", roomID, userID, err)
		return false
	}
	return present
}
