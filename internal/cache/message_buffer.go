package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// BufferedMessage is the envelope stored in a room's buffer sorted set.
// Score is the member's sorted-set score (epoch seconds of CreatedAt); it is
// filled in on reads and not part of the serialized envelope.
type BufferedMessage struct {
	RoomID    uint      `json:"room_id"`
	SenderID  uint      `json:"sender_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`

	Score float64 `json:"-"`
}

// TimestampScore converts a message timestamp to its buffer score.
func TimestampScore(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FormatScore renders a score the way it is stored in last_sync_score keys.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// MessageBuffer holds unflushed messages per room, one sorted set per room
// scored by send time, plus the marker set of rooms that have pending
// entries and the per-room last-synced score.
type MessageBuffer struct {
	redis *RedisCache
}

func NewMessageBuffer(redis *RedisCache) *MessageBuffer {
	return &MessageBuffer{redis: redis}
}

// Append buffers one message and marks its room active so the flusher can
// find it without scanning keys.
func (b *MessageBuffer) Append(msg BufferedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := roomMessagesKey(msg.RoomID)
	if err := b.redis.SortedSetAdd(key, TimestampScore(msg.CreatedAt), string(data)); err != nil {
		return err
	}
	if err := b.redis.SetAdd(activeRoomsKey, msg.RoomID); err != nil {
		return fmt.Errorf("mark room %d active: %w", msg.RoomID, err)
	}
	return nil
}

// PendingSince returns the room's buffered messages with score strictly
// greater than after, ascending. Pass a negative after to read everything.
func (b *MessageBuffer) PendingSince(roomID uint, after float64, haveMarker bool) ([]BufferedMessage, error) {
	min := "-inf"
	if haveMarker {
		min = "(" + FormatScore(after)
	}
	members, err := b.redis.SortedSetRangeByScore(roomMessagesKey(roomID), min)
	if err != nil {
		return nil, err
	}

	messages := make([]BufferedMessage, 0, len(members))
	for _, m := range members {
		var msg BufferedMessage
		if err := json.Unmarshal([]byte(m.Member), &msg); err != nil {
			return nil, fmt.Errorf("corrupt buffer entry in room %d: %w", roomID, err)
		}
		msg.Score = m.Score
		messages = append(messages, msg)
	}
	return messages, nil
}

// LastSyncScore reads the room's flush marker. ok is false when the room has
// never been flushed.
func (b *MessageBuffer) LastSyncScore(roomID uint) (score float64, ok bool, err error) {
	data, err := b.redis.Get(lastSyncScoreKey(roomID))
	if err != nil {
		return 0, false, err
	}
	if data == nil {
		return 0, false, nil
	}
	score, err = strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt last_sync_score for room %d: %w", roomID, err)
	}
	return score, true, nil
}

// SetLastSyncScore advances the flush marker. Only called after the durable
// insert for everything at or below score has committed.
func (b *MessageBuffer) SetLastSyncScore(roomID uint, score float64) error {
	return b.redis.Set(lastSyncScoreKey(roomID), []byte(FormatScore(score)), 0)
}

// TrimThrough deletes buffer entries with score <= through (inclusive).
func (b *MessageBuffer) TrimThrough(roomID uint, through float64) error {
	return b.redis.SortedSetRemoveRangeByScore(roomMessagesKey(roomID), FormatScore(through))
}

// PendingCount returns how many entries remain buffered for the room.
func (b *MessageBuffer) PendingCount(roomID uint) (int64, error) {
	return b.redis.SortedSetCard(roomMessagesKey(roomID))
}

// ActiveRooms lists rooms that have had buffered messages since the flusher
// last drained them.
func (b *MessageBuffer) ActiveRooms() ([]uint, error) {
	members, err := b.redis.SetMembers(activeRoomsKey)
	if err != nil {
		return nil, err
	}
	rooms := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			continue
		}
		rooms = append(rooms, uint(id))
	}
	return rooms, nil
}

// DeactivateRoom removes a drained room from the marker set. A send that
// races this call simply re-adds the room.
func (b *MessageBuffer) DeactivateRoom(roomID uint) error {
	return b.redis.SetRemove(activeRoomsKey, roomID)
}
