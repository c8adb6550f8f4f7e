package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/cache"
	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"github.com/dayeonkimm/vita-gamemate/internal/validation"
)

// RoomDirectory is the room/membership lookup collaborator.
// *service.ChatService satisfies it.
type RoomDirectory interface {
	RoomExists(roomID uint) (bool, error)
	OtherMember(roomID, userID uint) (*models.User, error)
	LatestMessage(roomID uint) (*models.Message, error)
	TouchRoom(roomID uint, at time.Time, memberIDs ...uint)
}

// Presence tracks who currently holds an open socket in a room.
type Presence interface {
	MarkPresent(roomID, userID uint) error
	MarkAbsent(roomID, userID uint) error
	IsPresent(roomID, userID uint) bool
}

// UnreadCounter is the read/write-through unread counter.
type UnreadCounter interface {
	GetUnreadCount(roomID, userID uint) (int, error)
	IncrementUnreadCount(roomID, userID uint) error
	ResetUnreadCount(roomID, userID uint) error
}

// Buffer is the fast store absorbing message writes ahead of the flusher.
type Buffer interface {
	Append(msg cache.BufferedMessage) error
}

// RoomSession is one user's socket into one room. Lifecycle: Connect joins
// the room group, marks presence, and zeroes the caller's unread count;
// Receive pushes an inbound frame through the buffer/unread/broadcast
// pipeline; Disconnect tears everything down best-effort.
type RoomSession struct {
	hub    *Hub
	client *Client
	roomID uint
	user   *models.User

	rooms    RoomDirectory
	presence Presence
	unread   UnreadCounter
	buffer   Buffer

	// other participant of the 1:1 room, resolved once per session
	other      *models.User
	otherKnown bool

	now func() time.Time
}

func NewRoomSession(hub *Hub, client *Client, roomID uint, user *models.User, rooms RoomDirectory, presence Presence, unread UnreadCounter, buffer Buffer) *RoomSession {
	return &RoomSession{
		hub:      hub,
		client:   client,
		roomID:   roomID,
		user:     user,
		rooms:    rooms,
		presence: presence,
		unread:   unread,
		buffer:   buffer,
		now:      time.Now,
	}
}

// Connect performs the accept-time sequence. Any failure unwinds whatever was
// already registered so no partial group membership or presence entry is left
// behind, and the caller closes the socket.
func (s *RoomSession) Connect() error {
	exists, err := s.rooms.RoomExists(s.roomID)
	if err != nil {
		return fmt.Errorf("room lookup: %w", err)
	}
	if !exists {
		return fmt.Errorf("chat room %d does not exist", s.roomID)
	}

	s.hub.Join(RoomGroup(s.roomID), s)

	if err := s.presence.MarkPresent(s.roomID, s.user.ID); err != nil {
		s.hub.Leave(RoomGroup(s.roomID), s)
		return fmt.Errorf("mark present: %w", err)
	}

	if err := s.unread.ResetUnreadCount(s.roomID, s.user.ID); err != nil {
		s.rollbackConnect()
		return fmt.Errorf("reset unread count: %w", err)
	}

	// Tell the caller's own list views the room is now read.
	latest, err := s.rooms.LatestMessage(s.roomID)
	if err != nil {
		s.rollbackConnect()
		return fmt.Errorf("load latest message: %w", err)
	}
	update := ChatListUpdateEvent{
		RoomID:       s.roomID,
		TargetUserID: s.user.ID,
		UnreadCount:  0,
		IsReadUpdate: true,
	}
	if latest != nil {
		update.LatestMessage = latest.Text
		update.SenderNickname = latest.Sender.Nickname
		update.LatestMessageTime = latest.CreatedAt
	}
	s.hub.Publish(ListGroup(s.user.ID), update)

	return nil
}

func (s *RoomSession) rollbackConnect() {
	if err := s.presence.MarkAbsent(s.roomID, s.user.ID); err != nil {
		log.Printf("presence rollback failed for room %d user %d: %v", s.roomID, s.user.ID, err)
	}
	s.hub.Leave(RoomGroup(s.roomID), s)
}

// Receive handles one inbound client frame. Validation and buffering failures
// answer with an in-band error frame and keep the socket open; a message is
// never dropped without a reply.
func (s *RoomSession) Receive(raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.sendError("invalid message format")
		return
	}
	text := validation.TrimAndLimit(frame.Message, validation.MaxMessageLength())
	if text == "" || frame.SenderNickname == "" {
		s.sendError("message and sender_nickname are required")
		return
	}

	now := s.now()
	entry := cache.BufferedMessage{
		RoomID:    s.roomID,
		SenderID:  s.user.ID,
		Message:   text,
		CreatedAt: now,
	}
	if err := s.buffer.Append(entry); err != nil {
		log.Printf("buffer write failed for room %d: %v", s.roomID, err)
		s.sendError("failed to send message")
		return
	}

	receiver := s.otherMember()
	if receiver != nil && !s.presence.IsPresent(s.roomID, receiver.ID) {
		if err := s.unread.IncrementUnreadCount(s.roomID, receiver.ID); err != nil {
			log.Printf("unread increment failed for room %d user %d: %v", s.roomID, receiver.ID, err)
		}
	}

	s.hub.Publish(RoomGroup(s.roomID), ChatMessageEvent{
		Message:        text,
		SenderNickname: frame.SenderNickname,
		Timestamp:      now,
	})

	memberIDs := []uint{s.user.ID}
	if receiver != nil {
		memberIDs = append(memberIDs, receiver.ID)
	}
	s.rooms.TouchRoom(s.roomID, now, memberIDs...)

	s.publishListUpdate(s.user.ID, text, frame.SenderNickname, now)
	if receiver != nil {
		s.publishListUpdate(receiver.ID, text, frame.SenderNickname, now)
	}
}

// publishListUpdate pushes the room summary to one participant's list
// sockets, carrying that participant's own unread count.
func (s *RoomSession) publishListUpdate(targetUserID uint, text, senderNickname string, at time.Time) {
	count, err := s.unread.GetUnreadCount(s.roomID, targetUserID)
	if err != nil {
		log.Printf("unread read failed for room %d user %d: %v", s.roomID, targetUserID, err)
		count = 0
	}
	s.hub.Publish(ListGroup(targetUserID), ChatListUpdateEvent{
		RoomID:            s.roomID,
		LatestMessage:     text,
		SenderNickname:    senderNickname,
		LatestMessageTime: at,
		TargetUserID:      targetUserID,
		UnreadCount:       count,
	})
}

// Deliver forwards a room broadcast to this session's client. Failures
// degrade to an error frame; they never take the session down.
func (s *RoomSession) Deliver(event interface{}) {
	msg, ok := event.(ChatMessageEvent)
	if !ok {
		return
	}
	data, err := json.Marshal(chatMessageFrame{
		Message:        msg.Message,
		SenderNickname: msg.SenderNickname,
		Timestamp:      msg.Timestamp,
	})
	if err != nil {
		s.sendError("failed to deliver message")
		return
	}
	s.client.Enqueue(data)
}

// Disconnect removes presence and group membership. Everything here is
// best-effort: the client is already gone, so failures are only logged.
func (s *RoomSession) Disconnect() {
	if err := s.presence.MarkAbsent(s.roomID, s.user.ID); err != nil {
		log.Printf("presence cleanup failed for room %d user %d: %v", s.roomID, s.user.ID, err)
	}
	s.hub.Leave(RoomGroup(s.roomID), s)
	s.client.Close()
}

func (s *RoomSession) otherMember() *models.User {
	if s.otherKnown {
		return s.other
	}
	other, err := s.rooms.OtherMember(s.roomID, s.user.ID)
	if err != nil {
		log.Printf("other member lookup failed for room %d: %v", s.roomID, err)
		return nil
	}
	s.other = other
	s.otherKnown = true
	return s.other
}

func (s *RoomSession) sendError(message string) {
	data, err := json.Marshal(errorFrame{Error: message})
	if err != nil {
		return
	}
	s.client.Enqueue(data)
}
