package ws

import (
	"encoding/json"

	"github.com/dayeonkimm/vita-gamemate/internal/models"
)

// ListSession is one user's chat-list socket. It receives room summary
// updates for that user and forwards them; unread counts belonging to anyone
// else are nulled before they reach the client.
type ListSession struct {
	hub    *Hub
	client *Client
	user   *models.User
}

func NewListSession(hub *Hub, client *Client, user *models.User) *ListSession {
	return &ListSession{hub: hub, client: client, user: user}
}

func (s *ListSession) Connect() {
	s.hub.Join(ListGroup(s.user.ID), s)
}

func (s *ListSession) Deliver(event interface{}) {
	update, ok := event.(ChatListUpdateEvent)
	if !ok {
		return
	}

	frame := chatListUpdateFrame{
		Type:              "chat_list_update",
		ID:                update.RoomID,
		LatestMessage:     update.LatestMessage,
		SenderNickname:    update.SenderNickname,
		LatestMessageTime: update.LatestMessageTime,
		IsReadUpdate:      update.IsReadUpdate,
	}
	// Only the targeted user may see the count.
	if update.TargetUserID == s.user.ID {
		count := update.UnreadCount
		frame.UnreadCount = &count
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	s.client.Enqueue(data)
}

func (s *ListSession) Disconnect() {
	s.hub.Leave(ListGroup(s.user.ID), s)
	s.client.Close()
}
