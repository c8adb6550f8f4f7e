package service

import (
	"fmt"
	"log"

	"github.com/dayeonkimm/vita-gamemate/internal/cache"
	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"github.com/dayeonkimm/vita-gamemate/internal/repository"
)

// FlushBuffer is what the flusher needs from the message buffer. Implemented
// by cache.MessageBuffer.
type FlushBuffer interface {
	ActiveRooms() ([]uint, error)
	LastSyncScore(roomID uint) (float64, bool, error)
	PendingSince(roomID uint, after float64, haveMarker bool) ([]cache.BufferedMessage, error)
	SetLastSyncScore(roomID uint, score float64) error
	TrimThrough(roomID uint, through float64) error
	PendingCount(roomID uint) (int64, error)
	DeactivateRoom(roomID uint) error
}

// FlushService drains buffered messages into the durable store. Per room:
// read everything strictly after the last synced score, bulk-insert it in one
// transaction, advance the marker to the highest flushed score, then delete
// the buffer range at or below the marker. Buffer entries are never deleted
// before their insert commits, and the marker never passes an uncommitted
// insert, so a crash between steps only ever causes a retry, not a loss.
type FlushService struct {
	buffer   FlushBuffer
	messages repository.MessageRepositoryInterface
	rooms    repository.ChatRoomRepositoryInterface
}

func NewFlushService(buffer FlushBuffer, messages repository.MessageRepositoryInterface, rooms repository.ChatRoomRepositoryInterface) *FlushService {
	return &FlushService{buffer: buffer, messages: messages, rooms: rooms}
}

// FlushAll flushes every room in the active marker set. A failing room is
// logged and skipped; its buffer and marker stay put so the next cycle
// retries it.
func (s *FlushService) FlushAll() error {
	rooms, err := s.buffer.ActiveRooms()
	if err != nil {
		return fmt.Errorf("list active rooms: %w", err)
	}

	for _, roomID := range rooms {
		if err := s.FlushRoom(roomID); err != nil {
			log.Printf("flush failed for room %d: %v", roomID, err)
		}
	}
	return nil
}

// FlushRoom persists one room's pending buffer. Calling it again with nothing
// new buffered is a no-op.
func (s *FlushService) FlushRoom(roomID uint) error {
	lastScore, haveMarker, err := s.buffer.LastSyncScore(roomID)
	if err != nil {
		return fmt.Errorf("read sync marker: %w", err)
	}

	pending, err := s.buffer.PendingSince(roomID, lastScore, haveMarker)
	if err != nil {
		return fmt.Errorf("read pending: %w", err)
	}
	if len(pending) == 0 {
		s.deactivateIfDrained(roomID)
		return nil
	}

	records := make([]models.Message, 0, len(pending))
	for _, entry := range pending {
		records = append(records, models.Message{
			RoomID:    entry.RoomID,
			SenderID:  entry.SenderID,
			Text:      entry.Message,
			CreatedAt: entry.CreatedAt,
		})
	}
	if err := s.messages.CreateBatch(records); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}

	newest := pending[len(pending)-1]
	if err := s.buffer.SetLastSyncScore(roomID, newest.Score); err != nil {
		// Inserts are committed; a stale marker only means the next cycle
		// re-reads rows that are already durable.
		return fmt.Errorf("advance sync marker: %w", err)
	}
	if err := s.buffer.TrimThrough(roomID, newest.Score); err != nil {
		return fmt.Errorf("trim buffer: %w", err)
	}

	if err := s.rooms.TouchLastMessage(roomID, newest.CreatedAt); err != nil {
		log.Printf("failed to touch room %d after flush: %v", roomID, err)
	}

	s.deactivateIfDrained(roomID)
	log.Printf("flushed %d messages for room %d", len(records), roomID)
	return nil
}

func (s *FlushService) deactivateIfDrained(roomID uint) {
	count, err := s.buffer.PendingCount(roomID)
	if err != nil {
		log.Printf("pending count failed for room %d: %v", roomID, err)
		return
	}
	if count == 0 {
		if err := s.buffer.DeactivateRoom(roomID); err != nil {
			log.Printf("failed to deactivate room %d: %v", roomID, err)
		}
	}
}
