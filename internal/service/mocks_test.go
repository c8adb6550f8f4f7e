package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/cache"
	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"gorm.io/gorm"
)

// Hand-written mocks for the repository interfaces, shared across the service
// tests in this package.

type MockUserRepository struct {
	users  map[uint]*models.User
	nextID uint
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]*models.User), nextID: 1}
}

func (m *MockUserRepository) Create(user *models.User) error {
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByNickname(nickname string) (*models.User, error) {
	for _, u := range m.users {
		if u.Nickname == nickname {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) Update(user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = user
	return nil
}

type MockChatRoomRepository struct {
	rooms    map[uint]*models.ChatRoom
	members  map[uint][]uint
	listRows map[uint][]models.ChatRoomSummary
	touched  map[uint]time.Time
	nextID   uint
}

func NewMockChatRoomRepository() *MockChatRoomRepository {
	return &MockChatRoomRepository{
		rooms:    make(map[uint]*models.ChatRoom),
		members:  make(map[uint][]uint),
		listRows: make(map[uint][]models.ChatRoomSummary),
		touched:  make(map[uint]time.Time),
		nextID:   1,
	}
}

func (m *MockChatRoomRepository) Create(userID1, userID2 uint) (*models.ChatRoom, error) {
	room := &models.ChatRoom{ID: m.nextID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.nextID++
	m.rooms[room.ID] = room
	m.members[room.ID] = []uint{userID1, userID2}
	return room, nil
}

func (m *MockChatRoomRepository) Exists(id uint) (bool, error) {
	_, ok := m.rooms[id]
	return ok, nil
}

func (m *MockChatRoomRepository) FindSharedRoom(userID1, userID2 uint) (*models.ChatRoom, error) {
	for id, members := range m.members {
		if len(members) == 2 &&
			((members[0] == userID1 && members[1] == userID2) ||
				(members[0] == userID2 && members[1] == userID1)) {
			return m.rooms[id], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockChatRoomRepository) ListForUser(userID uint) ([]models.ChatRoomSummary, error) {
	return m.listRows[userID], nil
}

func (m *MockChatRoomRepository) TouchLastMessage(roomID uint, at time.Time) error {
	m.touched[roomID] = at
	return nil
}

type MockChatRoomUserRepository struct {
	memberships map[string]*models.ChatRoomUser
	others      map[string]*models.User
	failIncr    error
}

func membershipKey(roomID, userID uint) string {
	return fmt.Sprintf("%d:%d", roomID, userID)
}

func NewMockChatRoomUserRepository() *MockChatRoomUserRepository {
	return &MockChatRoomUserRepository{
		memberships: make(map[string]*models.ChatRoomUser),
		others:      make(map[string]*models.User),
	}
}

func (m *MockChatRoomUserRepository) AddMembership(roomID, userID uint, unread int) {
	m.memberships[membershipKey(roomID, userID)] = &models.ChatRoomUser{
		ChatRoomID:  roomID,
		UserID:      userID,
		UnreadCount: unread,
	}
}

func (m *MockChatRoomUserRepository) SetOtherMember(roomID, userID uint, other *models.User) {
	m.others[membershipKey(roomID, userID)] = other
}

func (m *MockChatRoomUserRepository) Find(roomID, userID uint) (*models.ChatRoomUser, error) {
	if mem, ok := m.memberships[membershipKey(roomID, userID)]; ok {
		return mem, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockChatRoomUserRepository) OtherMember(roomID, userID uint) (*models.User, error) {
	if u, ok := m.others[membershipKey(roomID, userID)]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockChatRoomUserRepository) IncrementUnread(roomID, userID uint) (int64, error) {
	if m.failIncr != nil {
		return 0, m.failIncr
	}
	mem, ok := m.memberships[membershipKey(roomID, userID)]
	if !ok {
		return 0, nil
	}
	mem.UnreadCount++
	return 1, nil
}

func (m *MockChatRoomUserRepository) ResetUnread(roomID, userID uint) error {
	if mem, ok := m.memberships[membershipKey(roomID, userID)]; ok {
		mem.UnreadCount = 0
	}
	return nil
}

type MockMessageRepository struct {
	messages  []models.Message
	nextID    uint
	failBatch error
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{nextID: 1}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	m.messages = append(m.messages, *message)
	return nil
}

func (m *MockMessageRepository) CreateBatch(messages []models.Message) error {
	if m.failBatch != nil {
		return m.failBatch
	}
	for i := range messages {
		messages[i].ID = m.nextID
		m.nextID++
		m.messages = append(m.messages, messages[i])
	}
	return nil
}

func (m *MockMessageRepository) ListByRoom(roomID uint, page, pageSize int) ([]models.Message, int64, error) {
	var room []models.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			room = append(room, msg)
		}
	}
	sort.Slice(room, func(i, j int) bool { return room[i].CreatedAt.After(room[j].CreatedAt) })

	total := int64(len(room))
	start := (page - 1) * pageSize
	if start >= len(room) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(room) {
		end = len(room)
	}
	return room[start:end], total, nil
}

func (m *MockMessageRepository) LatestForRoom(roomID uint) (*models.Message, error) {
	var latest *models.Message
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.RoomID != roomID {
			continue
		}
		if latest == nil || msg.CreatedAt.After(latest.CreatedAt) {
			latest = msg
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

// fakeUnreadCache implements UnreadCacheStore in memory with optional
// injected failures.
type fakeUnreadCache struct {
	counts   map[string]int
	failAll  bool
	getCalls int
}

func newFakeUnreadCache() *fakeUnreadCache {
	return &fakeUnreadCache{counts: make(map[string]int)}
}

var errCacheDown = errors.New("cache unavailable")

func (f *fakeUnreadCache) Get(roomID, userID uint) (int, bool, error) {
	f.getCalls++
	if f.failAll {
		return 0, false, errCacheDown
	}
	count, ok := f.counts[membershipKey(roomID, userID)]
	return count, ok, nil
}

func (f *fakeUnreadCache) Set(roomID, userID uint, count int) error {
	if f.failAll {
		return errCacheDown
	}
	f.counts[membershipKey(roomID, userID)] = count
	return nil
}

func (f *fakeUnreadCache) Incr(roomID, userID uint) error {
	if f.failAll {
		return errCacheDown
	}
	f.counts[membershipKey(roomID, userID)]++
	return nil
}

func (f *fakeUnreadCache) Reset(roomID, userID uint) error {
	if f.failAll {
		return errCacheDown
	}
	f.counts[membershipKey(roomID, userID)] = 0
	return nil
}

// fakeListCache implements ChatListCacheStore in memory.
type fakeListCache struct {
	rows map[uint][]models.ChatRoomSummary
}

func newFakeListCache() *fakeListCache {
	return &fakeListCache{rows: make(map[uint][]models.ChatRoomSummary)}
}

func (f *fakeListCache) Get(userID uint) ([]models.ChatRoomSummary, bool) {
	rows, ok := f.rows[userID]
	return rows, ok
}

func (f *fakeListCache) Set(userID uint, rooms []models.ChatRoomSummary) error {
	f.rows[userID] = rooms
	return nil
}

func (f *fakeListCache) Invalidate(userID uint) error {
	delete(f.rows, userID)
	return nil
}

// fakeFlushBuffer implements FlushBuffer over in-memory sorted slices,
// mirroring the sorted-set semantics the flusher depends on.
type fakeFlushBuffer struct {
	entries     map[uint][]cache.BufferedMessage
	markers     map[uint]float64
	active      map[uint]bool
	failPending map[uint]error
}

func newFakeFlushBuffer() *fakeFlushBuffer {
	return &fakeFlushBuffer{
		entries:     make(map[uint][]cache.BufferedMessage),
		markers:     make(map[uint]float64),
		active:      make(map[uint]bool),
		failPending: make(map[uint]error),
	}
}

func (f *fakeFlushBuffer) add(roomID uint, senderID uint, text string, score float64) {
	msg := cache.BufferedMessage{
		RoomID:    roomID,
		SenderID:  senderID,
		Message:   text,
		CreatedAt: time.Unix(0, int64(score*float64(time.Second))),
		Score:     score,
	}
	f.entries[roomID] = append(f.entries[roomID], msg)
	sort.Slice(f.entries[roomID], func(i, j int) bool {
		return f.entries[roomID][i].Score < f.entries[roomID][j].Score
	})
	f.active[roomID] = true
}

func (f *fakeFlushBuffer) ActiveRooms() ([]uint, error) {
	var rooms []uint
	for id := range f.active {
		rooms = append(rooms, id)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms, nil
}

func (f *fakeFlushBuffer) LastSyncScore(roomID uint) (float64, bool, error) {
	score, ok := f.markers[roomID]
	return score, ok, nil
}

func (f *fakeFlushBuffer) PendingSince(roomID uint, after float64, haveMarker bool) ([]cache.BufferedMessage, error) {
	if err := f.failPending[roomID]; err != nil {
		return nil, err
	}
	var pending []cache.BufferedMessage
	for _, msg := range f.entries[roomID] {
		if !haveMarker || msg.Score > after {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

func (f *fakeFlushBuffer) SetLastSyncScore(roomID uint, score float64) error {
	f.markers[roomID] = score
	return nil
}

func (f *fakeFlushBuffer) TrimThrough(roomID uint, through float64) error {
	var kept []cache.BufferedMessage
	for _, msg := range f.entries[roomID] {
		if msg.Score > through {
			kept = append(kept, msg)
		}
	}
	f.entries[roomID] = kept
	return nil
}

func (f *fakeFlushBuffer) PendingCount(roomID uint) (int64, error) {
	return int64(len(f.entries[roomID])), nil
}

func (f *fakeFlushBuffer) DeactivateRoom(roomID uint) error {
	delete(f.active, roomID)
	return nil
}
