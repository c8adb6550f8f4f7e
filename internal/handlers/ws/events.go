package ws

import (
	"fmt"
	"time"
)

// RoomGroup names the broadcast group for one room's sockets.
func RoomGroup(roomID uint) string {
	return fmt.Sprintf("chat_room_%d", roomID)
}

// ListGroup names the broadcast group for one user's chat-list sockets.
func ListGroup(userID uint) string {
	return fmt.Sprintf("chat_list_%d", userID)
}

// ChatMessageEvent fans a sent message out to every socket in its room.
type ChatMessageEvent struct {
	Message        string
	SenderNickname string
	Timestamp      time.Time
}

// ChatListUpdateEvent pushes a room-list summary to a user's list sockets.
// UnreadCount is meaningful only for TargetUserID; list sessions belonging to
// anyone else must null it out before forwarding.
type ChatListUpdateEvent struct {
	RoomID            uint
	LatestMessage     string
	SenderNickname    string
	LatestMessageTime time.Time
	TargetUserID      uint
	UnreadCount       int
	IsReadUpdate      bool
}

// Client wire frames.

type chatMessageFrame struct {
	Message        string    `json:"message"`
	SenderNickname string    `json:"sender_nickname"`
	Timestamp      time.Time `json:"timestamp"`
}

type chatListUpdateFrame struct {
	Type              string    `json:"type"`
	ID                uint      `json:"id"`
	LatestMessage     string    `json:"latest_message"`
	SenderNickname    string    `json:"sender_nickname"`
	LatestMessageTime time.Time `json:"latest_message_time"`
	UnreadCount       *int      `json:"unread_count"`
	IsReadUpdate      bool      `json:"is_read_update"`
}

type errorFrame struct {
	Error string `json:"error"`
}

type inboundFrame struct {
	Message        string `json:"message"`
	SenderNickname string `json:"sender_nickname"`
}
