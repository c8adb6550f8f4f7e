package cache

import (
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const ChatListTTL = 2 * time.Minute

// ChatListCache keeps a user's annotated room list so repeated list fetches
// skip the subquery-heavy SQL. Invalidated on every send touching the user.
type ChatListCache struct {
	redis *RedisCache
}

func NewChatListCache(redis *RedisCache) *ChatListCache {
	return &ChatListCache{redis: redis}
}

func (c *ChatListCache) Get(userID uint) ([]models.ChatRoomSummary, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(chatListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var rooms []models.ChatRoomSummary
	if err := msgpack.Unmarshal(data, &rooms); err != nil {
		return nil, false
	}
	return rooms, true
}

func (c *ChatListCache) Set(userID uint, rooms []models.ChatRoomSummary) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(rooms)
	if err != nil {
		return err
	}
	return c.redis.Set(chatListKey(userID), data, ChatListTTL)
}

func (c *ChatListCache) Invalidate(userID uint) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Delete(chatListKey(userID))
}
