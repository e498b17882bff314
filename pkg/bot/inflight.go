package bot

import (
	"context"
	"sync"
)

// InFlightRegistry tracks each chat's active recognition so a newer photo
// can supersede it. Entries carry a token so a finished run only releases
// its own slot, never one belonging to the run that superseded it.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	next    uint64
	entries map[int64]inflightEntry
}

type inflightEntry struct {
	cancel context.CancelFunc
	token  uint64
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{entries: make(map[int64]inflightEntry)}
}

// Replace registers cancel for the chat, cancelling any run already in
// flight there. Returns the token to pass to Release.
func (r *InFlightRegistry) Replace(chatID int64, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[chatID]; ok {
		prev.cancel()
	}
	r.next++
	r.entries[chatID] = inflightEntry{cancel: cancel, token: r.next}
	return r.next
}

// TryRegister registers cancel for the chat unless a run is already in
// flight there. Reports whether the slot was taken.
func (r *InFlightRegistry) TryRegister(chatID int64, cancel context.CancelFunc) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[chatID]; ok {
		return 0, false
	}
	r.next++
	r.entries[chatID] = inflightEntry{cancel: cancel, token: r.next}
	return r.next, true
}

// Release frees the chat's slot if it still belongs to token. A superseded
// run finds a newer entry under its chat and leaves it alone.
func (r *InFlightRegistry) Release(chatID int64, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[chatID]; ok && e.token == token {
		delete(r.entries, chatID)
	}
}
