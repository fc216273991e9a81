package repository

import (
	"sync"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

// WaitingEntry is a player sitting alone in a match until someone is paired with them.
type WaitingEntry struct {
	MatchID string
	Session entity.Session
}

// WaitingQueue - FIFO of players waiting for a random opponent.
type WaitingQueue struct {
	mu      sync.Mutex
	entries []WaitingEntry
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{}
}

func (that *WaitingQueue) Enqueue(entry WaitingEntry) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.entries = append(that.entries, entry)
}

// TakeFirst - removes and returns the oldest entry. Two callers never get the same entry.
func (that *WaitingQueue) TakeFirst() (WaitingEntry, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.entries) == 0 {
		return WaitingEntry{}, false
	}

	entry := that.entries[0]
	that.entries[0] = WaitingEntry{}
	that.entries = that.entries[1:]

	return entry, true
}

func (that *WaitingQueue) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.entries)
}
