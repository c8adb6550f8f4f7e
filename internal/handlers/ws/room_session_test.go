package ws

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"github.com/dayeonkimm/vita-gamemate/internal/validation"
)

type roomSessionFixture struct {
	hub       *Hub
	conn      *fakeConn
	client    *Client
	directory *fakeDirectory
	presence  *fakePresence
	unread    *fakeUnread
	buffer    *fakeBuffer
	user      *models.User
	session   *RoomSession
}

func newRoomSessionFixture(t *testing.T, roomID uint, user *models.User) *roomSessionFixture {
	t.Helper()
	f := &roomSessionFixture{
		hub:       NewHub(),
		conn:      &fakeConn{},
		directory: newFakeDirectory(),
		presence:  newFakePresence(),
		unread:    newFakeUnread(),
		buffer:    &fakeBuffer{},
		user:      user,
	}
	f.client = NewClient(f.conn)
	f.directory.exists[roomID] = true
	f.session = NewRoomSession(f.hub, f.client, roomID, user, f.directory, f.presence, f.unread, f.buffer)
	f.session.now = func() time.Time { return time.Unix(1700000000, 0) }
	t.Cleanup(f.client.Close)
	return f
}

func TestRoomSessionConnect(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	f := newRoomSessionFixture(t, 5, alice)
	f.unread.counts[pairKey(5, 1)] = 4
	listSub := &recordingSubscriber{}
	f.hub.Join(ListGroup(1), listSub)

	if err := f.session.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if got := f.hub.GroupSize(RoomGroup(5)); got != 1 {
		t.Errorf("room group size: got %d, want 1", got)
	}
	if !f.presence.IsPresent(5, 1) {
		t.Error("presence not marked")
	}
	if got := f.unread.counts[pairKey(5, 1)]; got != 0 {
		t.Errorf("unread not reset: %d", got)
	}

	events := listSub.recorded()
	if len(events) != 1 {
		t.Fatalf("list events: got %d, want 1", len(events))
	}
	update, ok := events[0].(ChatListUpdateEvent)
	if !ok || !update.IsReadUpdate || update.RoomID != 5 || update.TargetUserID != 1 {
		t.Errorf("unexpected read update: %+v", events[0])
	}
}

func TestRoomSessionConnectUnknownRoom(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	f := newRoomSessionFixture(t, 5, alice)
	f.directory.exists[5] = false

	if err := f.session.Connect(); err == nil {
		t.Fatal("expected error for unknown room")
	}
	if got := f.hub.GroupSize(RoomGroup(5)); got != 0 {
		t.Errorf("room group size after failed connect: got %d, want 0", got)
	}
}

// A failure mid-connect must unwind whatever was already registered.
func TestRoomSessionConnectRollback(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}

	t.Run("presence failure", func(t *testing.T) {
		f := newRoomSessionFixture(t, 5, alice)
		f.presence.failMark = errors.New("redis timeout")

		if err := f.session.Connect(); err == nil {
			t.Fatal("expected error")
		}
		if got := f.hub.GroupSize(RoomGroup(5)); got != 0 {
			t.Errorf("group membership left behind: size %d", got)
		}
	})

	t.Run("unread reset failure", func(t *testing.T) {
		f := newRoomSessionFixture(t, 5, alice)
		f.unread.failReset = errors.New("db down")

		if err := f.session.Connect(); err == nil {
			t.Fatal("expected error")
		}
		if got := f.hub.GroupSize(RoomGroup(5)); got != 0 {
			t.Errorf("group membership left behind: size %d", got)
		}
		if f.presence.IsPresent(5, 1) {
			t.Error("presence entry left behind")
		}
	})
}

func TestRoomSessionReceiveAbsentReceiver(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	bob := &models.User{ID: 2, Nickname: "bob"}
	f := newRoomSessionFixture(t, 5, alice)
	f.directory.others[pairKey(5, 1)] = bob
	bobList := &recordingSubscriber{}
	f.hub.Join(ListGroup(2), bobList)
	if err := f.session.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	f.session.Receive([]byte(`{"message":"hi bob","sender_nickname":"alice"}`))

	if len(f.buffer.entries) != 1 || f.buffer.entries[0].Message != "hi bob" {
		t.Fatalf("buffer entries: %+v", f.buffer.entries)
	}
	if got := f.unread.counts[pairKey(5, 2)]; got != 1 {
		t.Errorf("receiver unread: got %d, want 1", got)
	}
	if len(f.directory.touched) == 0 {
		t.Error("room activity not touched")
	}

	// The sender's own room socket gets the broadcast back.
	frames := f.conn.waitFrames(t, 1)
	var frame chatMessageFrame
	decodeFrame(t, frames[len(frames)-1], &frame)
	if frame.Message != "hi bob" || frame.SenderNickname != "alice" {
		t.Errorf("broadcast frame: %+v", frame)
	}

	// Bob's list socket sees his own count.
	events := bobList.recorded()
	if len(events) != 1 {
		t.Fatalf("bob list events: got %d, want 1", len(events))
	}
	update := events[0].(ChatListUpdateEvent)
	if update.TargetUserID != 2 || update.UnreadCount != 1 || update.LatestMessage != "hi bob" {
		t.Errorf("bob list update: %+v", update)
	}
}

func TestRoomSessionReceivePresentReceiverNoIncrement(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	bob := &models.User{ID: 2, Nickname: "bob"}
	f := newRoomSessionFixture(t, 5, alice)
	f.directory.others[pairKey(5, 1)] = bob
	f.presence.MarkPresent(5, 2)
	if err := f.session.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	f.session.Receive([]byte(`{"message":"hi","sender_nickname":"alice"}`))

	if got := f.unread.counts[pairKey(5, 2)]; got != 0 {
		t.Errorf("present receiver's unread incremented to %d", got)
	}
}

func TestRoomSessionReceiveInvalidFrames(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}

	cases := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{not json`},
		{"empty message", `{"message":"","sender_nickname":"alice"}`},
		{"whitespace message", `{"message":"   ","sender_nickname":"alice"}`},
		{"missing nickname", `{"message":"hi"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRoomSessionFixture(t, 5, alice)
			if err := f.session.Connect(); err != nil {
				t.Fatalf("connect: %v", err)
			}

			f.session.Receive([]byte(tc.raw))

			if len(f.buffer.entries) != 0 {
				t.Errorf("invalid frame reached the buffer: %+v", f.buffer.entries)
			}
			frames := f.conn.waitFrames(t, 1)
			var frame errorFrame
			decodeFrame(t, frames[0], &frame)
			if frame.Error == "" {
				t.Errorf("expected error frame, got %s", frames[0])
			}
		})
	}
}

// Inbound text is trimmed and capped at the configured maximum before it
// enters the pipeline.
func TestRoomSessionReceiveLimitsMessageLength(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	f := newRoomSessionFixture(t, 5, alice)
	if err := f.session.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	oversize := strings.Repeat("a", validation.MaxMessageLength()+500)
	raw, err := json.Marshal(map[string]string{
		"message":         "  " + oversize + "  ",
		"sender_nickname": "alice",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	f.session.Receive(raw)

	if len(f.buffer.entries) != 1 {
		t.Fatalf("buffer entries: %d, want 1", len(f.buffer.entries))
	}
	if got := len(f.buffer.entries[0].Message); got != validation.MaxMessageLength() {
		t.Errorf("buffered length: got %d, want %d", got, validation.MaxMessageLength())
	}
}

func TestRoomSessionReceiveBufferFailure(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	f := newRoomSessionFixture(t, 5, alice)
	f.buffer.failAppend = errors.New("redis down")
	if err := f.session.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	f.session.Receive([]byte(`{"message":"hi","sender_nickname":"alice"}`))

	frames := f.conn.waitFrames(t, 1)
	var frame errorFrame
	decodeFrame(t, frames[0], &frame)
	if frame.Error != "failed to send message" {
		t.Errorf("error frame: %+v", frame)
	}
	if len(f.directory.touched) != 0 {
		t.Error("room touched despite failed buffer write")
	}
}

func TestRoomSessionDisconnect(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	f := newRoomSessionFixture(t, 5, alice)
	if err := f.session.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	f.session.Disconnect()

	if f.presence.IsPresent(5, 1) {
		t.Error("presence not cleared")
	}
	if got := f.hub.GroupSize(RoomGroup(5)); got != 0 {
		t.Errorf("room group size after disconnect: got %d, want 0", got)
	}
	if !f.conn.isClosed() {
		t.Error("connection not closed")
	}
}

// Two sockets, one room. The sender is present, the receiver is not; the
// receiver later opens the room and the unread count resets.
func TestRoomSessionSendThenReadFlow(t *testing.T) {
	alice := &models.User{ID: 1, Nickname: "alice"}
	bob := &models.User{ID: 2, Nickname: "bob"}

	hub := NewHub()
	directory := newFakeDirectory()
	directory.exists[5] = true
	directory.others[pairKey(5, 1)] = bob
	directory.others[pairKey(5, 2)] = alice
	presence := newFakePresence()
	unread := newFakeUnread()
	buffer := &fakeBuffer{}

	aliceConn := &fakeConn{}
	aliceClient := NewClient(aliceConn)
	defer aliceClient.Close()
	aliceSession := NewRoomSession(hub, aliceClient, 5, alice, directory, presence, unread, buffer)
	if err := aliceSession.Connect(); err != nil {
		t.Fatalf("alice connect: %v", err)
	}

	bobListSub := &recordingSubscriber{}
	hub.Join(ListGroup(2), bobListSub)

	aliceSession.Receive([]byte(`{"message":"first","sender_nickname":"alice"}`))
	aliceSession.Receive([]byte(`{"message":"second","sender_nickname":"alice"}`))

	if got := unread.counts[pairKey(5, 2)]; got != 2 {
		t.Fatalf("bob unread after two sends: got %d, want 2", got)
	}

	// Bob opens the room: his count zeroes and a read update reaches his
	// list sockets.
	bobConn := &fakeConn{}
	bobClient := NewClient(bobConn)
	defer bobClient.Close()
	bobSession := NewRoomSession(hub, bobClient, 5, bob, directory, presence, unread, buffer)
	if err := bobSession.Connect(); err != nil {
		t.Fatalf("bob connect: %v", err)
	}

	if got := unread.counts[pairKey(5, 2)]; got != 0 {
		t.Errorf("bob unread after opening room: got %d, want 0", got)
	}
	events := bobListSub.recorded()
	last, ok := events[len(events)-1].(ChatListUpdateEvent)
	if !ok || !last.IsReadUpdate || last.UnreadCount != 0 {
		t.Errorf("last bob list event: %+v", events[len(events)-1])
	}

	// With bob present, alice's next send does not bump his count, and it
	// reaches bob's room socket.
	aliceSession.Receive([]byte(`{"message":"third","sender_nickname":"alice"}`))
	if got := unread.counts[pairKey(5, 2)]; got != 0 {
		t.Errorf("bob unread while present: got %d, want 0", got)
	}
	frames := bobConn.waitFrames(t, 1)
	var frame chatMessageFrame
	decodeFrame(t, frames[0], &frame)
	if frame.Message != "third" {
		t.Errorf("bob received %q, want third", frame.Message)
	}
}
