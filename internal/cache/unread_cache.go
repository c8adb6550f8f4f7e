package cache

import (
	"strconv"
	"time"
)

// UnreadCountTTL bounds how stale a cached unread count may get before the
// next read falls through to the database.
const UnreadCountTTL = 300 * time.Second

// UnreadCache is the cache side of the unread counter: plain integer strings
// under unread_count:{room}:{user}.
type UnreadCache struct {
	redis *RedisCache
}

func NewUnreadCache(redis *RedisCache) *UnreadCache {
	return &UnreadCache{redis: redis}
}

// Get returns (count, true) on a cache hit, (0, false) on a miss.
func (u *UnreadCache) Get(roomID, userID uint) (int, bool, error) {
	if u == nil || u.redis == nil {
		return 0, false, nil
	}
	data, err := u.redis.Get(unreadCountKey(roomID, userID))
	if err != nil || data == nil {
		return 0, false, err
	}
	count, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (u *UnreadCache) Set(roomID, userID uint, count int) error {
	if u == nil || u.redis == nil {
		return nil
	}
	return u.redis.Set(unreadCountKey(roomID, userID), []byte(strconv.Itoa(count)), UnreadCountTTL)
}

func (u *UnreadCache) Incr(roomID, userID uint) error {
	if u == nil || u.redis == nil {
		return nil
	}
	_, err := u.redis.Incr(unreadCountKey(roomID, userID))
	return err
}

func (u *UnreadCache) Reset(roomID, userID uint) error {
	if u == nil || u.redis == nil {
		return nil
	}
	return u.redis.Set(unreadCountKey(roomID, userID), []byte("0"), UnreadCountTTL)
}
