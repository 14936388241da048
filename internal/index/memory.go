package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
)

// MemoryIndex is the in-process snapshot slot. It holds at most one
// snapshot, replaced whole, plus an ID lookup over its general bucket.
// It keeps serving when Redis is unavailable.
type MemoryIndex struct {
	mu         sync.RWMutex
	key        string
	snapshot   *domain.Snapshot
	byID       map[string]*domain.Opportunity // ID -> Opportunity
	expiresAt  time.Time
	lastReload time.Time // when the slot was last filled
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byID: make(map[string]*domain.Opportunity),
	}
}

// Update replaces the slot content. Readers see either the previous
// snapshot or this one, never a mix.
func (idx *MemoryIndex) Update(key string, snap *domain.Snapshot, expiresAt time.Time) {
	byID := make(map[string]*domain.Opportunity, len(snap.General))
	for _, o := range snap.General {
		byID[o.ID] = o
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.key = key
	idx.snapshot = snap
	idx.byID = byID
	idx.expiresAt = expiresAt
	idx.lastReload = time.Now()
}

// Current returns the snapshot stored under key if it has not expired.
func (idx *MemoryIndex) Current(key string, now time.Time) (*domain.Snapshot, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.snapshot == nil || idx.key != key {
		return nil, false
	}
	if !idx.expiresAt.IsZero() && !now.Before(idx.expiresAt) {
		return nil, false
	}
	return idx.snapshot, true
}

// Get returns an opportunity of the current snapshot by ID, expired or not.
func (idx *MemoryIndex) Get(id string) (*domain.Opportunity, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	o, ok := idx.byID[id]
	return o, ok
}

// Clear empties the slot.
func (idx *MemoryIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.key = ""
	idx.snapshot = nil
	idx.byID = make(map[string]*domain.Opportunity)
	idx.expiresAt = time.Time{}
}

// Count returns the number of opportunities in the general bucket.
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.byID)
}

// ExpiresAt returns when the current snapshot stops being served.
func (idx *MemoryIndex) ExpiresAt() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.expiresAt
}

// GetLastReload returns the timestamp of the last Update.
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
