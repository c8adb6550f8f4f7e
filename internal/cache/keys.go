package cache

import "fmt"

// Buffer-store key layout. These formats are shared with operational tooling,
// so they are kept in one place.
const activeRoomsKey = "active_chat_rooms"

func roomMessagesKey(roomID uint) string {
	return fmt.Sprintf("chat_room_%d_messages", roomID)
}

func lastSyncScoreKey(roomID uint) string {
	return fmt.Sprintf("last_sync_score_%d", roomID)
}

func roomUsersKey(roomID uint) string {
	return fmt.Sprintf("chat_room_%d_users", roomID)
}

func unreadCountKey(roomID, userID uint) string {
	return fmt.Sprintf("unread_count:%d:%d", roomID, userID)
}

func chatListKey(userID uint) string {
	return fmt.Sprintf("chat_list:%d", userID)
}
