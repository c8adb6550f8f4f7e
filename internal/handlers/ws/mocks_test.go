package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/cache"
	"github.com/dayeonkimm/vita-gamemate/internal/models"
)

// fakeConn records frames the client writer pushes at it. The writer runs on
// its own goroutine, so readers poll through waitFrames.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// waitFrames blocks until at least n frames arrived or the deadline passes.
func (c *fakeConn) waitFrames(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.frames) >= n {
			frames := make([][]byte, len(c.frames))
			copy(frames, c.frames)
			c.mu.Unlock()
			return frames
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames (have %d)", n, c.frameCount())
	return nil
}

func decodeFrame(t *testing.T, data []byte, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, into); err != nil {
		t.Fatalf("bad frame %s: %v", data, err)
	}
}

type fakeDirectory struct {
	exists  map[uint]bool
	others  map[string]*models.User
	latest  map[uint]*models.Message
	touched []uint
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		exists: make(map[uint]bool),
		others: make(map[string]*models.User),
		latest: make(map[uint]*models.Message),
	}
}

func pairKey(roomID, userID uint) string {
	return fmt.Sprintf("%d:%d", roomID, userID)
}

func (d *fakeDirectory) RoomExists(roomID uint) (bool, error) {
	return d.exists[roomID], nil
}

func (d *fakeDirectory) OtherMember(roomID, userID uint) (*models.User, error) {
	if u, ok := d.others[pairKey(roomID, userID)]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("no counterpart for room %d user %d", roomID, userID)
}

func (d *fakeDirectory) LatestMessage(roomID uint) (*models.Message, error) {
	return d.latest[roomID], nil
}

func (d *fakeDirectory) TouchRoom(roomID uint, at time.Time, memberIDs ...uint) {
	d.touched = append(d.touched, roomID)
}

type fakePresence struct {
	present  map[string]bool
	failMark error
}

func newFakePresence() *fakePresence {
	return &fakePresence{present: make(map[string]bool)}
}

func (p *fakePresence) MarkPresent(roomID, userID uint) error {
	if p.failMark != nil {
		return p.failMark
	}
	p.present[pairKey(roomID, userID)] = true
	return nil
}

func (p *fakePresence) MarkAbsent(roomID, userID uint) error {
	delete(p.present, pairKey(roomID, userID))
	return nil
}

func (p *fakePresence) IsPresent(roomID, userID uint) bool {
	return p.present[pairKey(roomID, userID)]
}

type fakeUnread struct {
	counts    map[string]int
	failReset error
}

func newFakeUnread() *fakeUnread {
	return &fakeUnread{counts: make(map[string]int)}
}

func (u *fakeUnread) GetUnreadCount(roomID, userID uint) (int, error) {
	return u.counts[pairKey(roomID, userID)], nil
}

func (u *fakeUnread) IncrementUnreadCount(roomID, userID uint) error {
	u.counts[pairKey(roomID, userID)]++
	return nil
}

func (u *fakeUnread) ResetUnreadCount(roomID, userID uint) error {
	if u.failReset != nil {
		return u.failReset
	}
	u.counts[pairKey(roomID, userID)] = 0
	return nil
}

type fakeBuffer struct {
	entries    []cache.BufferedMessage
	failAppend error
}

func (b *fakeBuffer) Append(msg cache.BufferedMessage) error {
	if b.failAppend != nil {
		return b.failAppend
	}
	b.entries = append(b.entries, msg)
	return nil
}

// recordingSubscriber captures raw events published to a group.
type recordingSubscriber struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *recordingSubscriber) Deliver(event interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSubscriber) recorded() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]interface{}, len(r.events))
	copy(events, r.events)
	return events
}
