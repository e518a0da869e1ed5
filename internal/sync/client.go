package sync

import (
	stdsync "sync"
	"time"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

// ClientState is a client's position in the per-scope-key state machine.
type ClientState string

const (
	StateUnsubscribed ClientState = "unsubscribed"
	StateSubscribed   ClientState = "subscribed" // joined, no data yet
	StateSynced       ClientState = "synced"     // has authoritative data
)

type cacheEntry struct {
	record  models.SyncRecord
	pending bool // a local optimistic edit not yet confirmed by broadcast
	synced  bool
	waiters []chan struct{}
}

// ClientCache is the client side of the sync protocol: an explicit local
// cache of reconciliation records, one entry per joined scope key. Local
// edits apply immediately and are flagged pending; a server broadcast for the
// same key always overwrites them, making the server the single source of
// truth.
type ClientCache struct {
	mu             stdsync.Mutex
	entries        map[string]*cacheEntry
	requestTimeout time.Duration
}

// NewClientCache builds a cache whose AwaitSynced calls give up after
// requestTimeout, normally the configured SYNC_REQUEST_TIMEOUT_SECONDS.
func NewClientCache(requestTimeout time.Duration) *ClientCache {
	return &ClientCache{
		entries:        make(map[string]*cacheEntry),
		requestTimeout: requestTimeout,
	}
}

// Join starts observing a scope key. No data is exchanged yet.
func (c *ClientCache) Join(scope, scopeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := scopeID(scope, scopeKey)
	if _, ok := c.entries[id]; !ok {
		c.entries[id] = &cacheEntry{}
	}
}

// Snapshot returns the local record and state for a scope key.
func (c *ClientCache) Snapshot(scope, scopeKey string) (models.SyncRecord, ClientState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[scopeID(scope, scopeKey)]
	if !ok {
		return models.SyncRecord{}, StateUnsubscribed
	}
	if !entry.synced {
		return entry.record, StateSubscribed
	}
	return entry.record, StateSynced
}

// Pending reports whether the scope key holds an unconfirmed local edit.
func (c *ClientCache) Pending(scope, scopeKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[scopeID(scope, scopeKey)]
	return ok && entry.pending
}

// ApplyLocal applies a patch optimistically, stamping the editor and time.
// The entry stays pending until a server broadcast for the key lands. The
// same patch travels to the server unchanged.
func (c *ClientCache) ApplyLocal(scope, scopeKey string, patch *ReconciliationPatch, updatedBy string) (models.SyncRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[scopeID(scope, scopeKey)]
	if !ok {
		return models.SyncRecord{}, errors.New(errors.ErrCodeValidation, "scope not joined")
	}
	entry.record = ApplyPatch(entry.record, patch, updatedBy, time.Now().UTC())
	entry.pending = true
	return entry.record, nil
}

// ApproveLocal applies an approval optimistically.
func (c *ClientCache) ApproveLocal(scope, scopeKey, approverName, updatedBy string) (models.SyncRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[scopeID(scope, scopeKey)]
	if !ok {
		return models.SyncRecord{}, errors.New(errors.ErrCodeValidation, "scope not joined")
	}
	entry.record = ApplyApproval(entry.record, approverName, updatedBy, time.Now().UTC())
	entry.pending = true
	return entry.record, nil
}

// ApplyServer merges an authoritative record from a *_state or *_updated
// event. Server always wins: the optimistic copy is overwritten and the
// pending flag cleared. Events for scope keys the client never joined are
// ignored, reported by the return value.
func (c *ClientCache) ApplyServer(scope, scopeKey string, record models.SyncRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[scopeID(scope, scopeKey)]
	if !ok {
		return false
	}
	entry.record = record
	entry.pending = false
	entry.synced = true
	for _, w := range entry.waiters {
		close(w)
	}
	entry.waiters = nil
	return true
}

// AwaitSynced blocks until authoritative data arrives for the scope key or
// the cache's request timeout elapses. On timeout the caller sees the
// stale/no-data snapshot rather than hanging; false signals that outcome.
func (c *ClientCache) AwaitSynced(scope, scopeKey string) (models.SyncRecord, bool) {
	c.mu.Lock()
	entry, ok := c.entries[scopeID(scope, scopeKey)]
	if !ok {
		c.mu.Unlock()
		return models.SyncRecord{}, false
	}
	if entry.synced && !entry.pending {
		record := entry.record
		c.mu.Unlock()
		return record, true
	}
	wait := make(chan struct{})
	entry.waiters = append(entry.waiters, wait)
	c.mu.Unlock()

	select {
	case <-wait:
		record, state := c.Snapshot(scope, scopeKey)
		return record, state == StateSynced
	case <-time.After(c.requestTimeout):
		record, _ := c.Snapshot(scope, scopeKey)
		return record, false
	}
}
