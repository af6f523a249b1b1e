package quotesync

import (
	"sync"

	"github.com/agentstation/quotesync/pkg/backup"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for collection and sync events
type (
	// RecordAddedHook is called when a record is added to the collection
	RecordAddedHook func(rec records.Record)

	// RecordUpdatedHook is called when a record's category changes
	RecordUpdatedHook func(old, new records.Record)

	// RecordRemovedHook is called when a record leaves the collection
	RecordRemovedHook func(rec records.Record)

	// SyncResultHook is called once for every completed pass
	SyncResultHook func(result pkgsync.Result)

	// SyncFailedHook is called once for every failed pass
	SyncFailedHook func(message string)

	// ConflictResolvedHook is called when a conflict is resolved manually
	ConflictResolvedHook func(conflict reconcile.Conflict, choice reconcile.Choice)

	// UndoHook is called after the collection is restored from a snapshot
	UndoHook func(snapshot backup.Snapshot)

	// SubmitFailedHook is called when pushing an added record to the remote fails
	SubmitFailedHook func(rec records.Record, err error)
)

// Hooks registers event callbacks. Callbacks run synchronously on the
// goroutine that caused the event, after the client has released its locks.
type Hooks interface {
	OnRecordAdded(fn RecordAddedHook)
	OnRecordUpdated(fn RecordUpdatedHook)
	OnRecordRemoved(fn RecordRemovedHook)
	OnSyncResult(fn SyncResultHook)
	OnSyncFailed(fn SyncFailedHook)
	OnConflictResolved(fn ConflictResolvedHook)
	OnUndo(fn UndoHook)
	OnSubmitFailed(fn SubmitFailedHook)
}

// hooks manages event callbacks
type hooks struct {
	mu                 sync.RWMutex
	onRecordAdded      []RecordAddedHook
	onRecordUpdated    []RecordUpdatedHook
	onRecordRemoved    []RecordRemovedHook
	onSyncResult       []SyncResultHook
	onSyncFailed       []SyncFailedHook
	onConflictResolved []ConflictResolvedHook
	onUndo             []UndoHook
	onSubmitFailed     []SubmitFailedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnRecordAdded registers a callback for when records are added
func (c *client) OnRecordAdded(fn RecordAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordAdded = append(c.hooks.onRecordAdded, fn)
}

// OnRecordUpdated registers a callback for when records are updated
func (c *client) OnRecordUpdated(fn RecordUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordUpdated = append(c.hooks.onRecordUpdated, fn)
}

// OnRecordRemoved registers a callback for when records are removed
func (c *client) OnRecordRemoved(fn RecordRemovedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordRemoved = append(c.hooks.onRecordRemoved, fn)
}

// OnSyncResult registers a callback for completed passes
func (c *client) OnSyncResult(fn SyncResultHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSyncResult = append(c.hooks.onSyncResult, fn)
}

// OnSyncFailed registers a callback for failed passes
func (c *client) OnSyncFailed(fn SyncFailedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSyncFailed = append(c.hooks.onSyncFailed, fn)
}

// OnConflictResolved registers a callback for manual resolutions
func (c *client) OnConflictResolved(fn ConflictResolvedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onConflictResolved = append(c.hooks.onConflictResolved, fn)
}

// OnUndo registers a callback for undo
func (c *client) OnUndo(fn UndoHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onUndo = append(c.hooks.onUndo, fn)
}

// OnSubmitFailed registers a callback for failed remote submissions
func (c *client) OnSubmitFailed(fn SubmitFailedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSubmitFailed = append(c.hooks.onSubmitFailed, fn)
}

// triggerChanges compares old and new collections and triggers record hooks
func (h *hooks) triggerChanges(oldRecords, newRecords records.Collection) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	oldByKey := make(map[string]records.Record, len(oldRecords))
	for _, r := range oldRecords {
		oldByKey[r.Key()] = r
	}
	newByKey := make(map[string]struct{}, len(newRecords))

	for _, r := range newRecords {
		key := r.Key()
		newByKey[key] = struct{}{}
		old, exists := oldByKey[key]
		switch {
		case !exists:
			for _, hook := range h.onRecordAdded {
				hook(r)
			}
		case old != r:
			for _, hook := range h.onRecordUpdated {
				hook(old, r)
			}
		}
	}

	for _, r := range oldRecords {
		if _, exists := newByKey[r.Key()]; !exists {
			for _, hook := range h.onRecordRemoved {
				hook(r)
			}
		}
	}
}

func (h *hooks) triggerSyncResult(result pkgsync.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onSyncResult {
		hook(cloneResult(result))
	}
}

func (h *hooks) triggerSyncFailed(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onSyncFailed {
		hook(message)
	}
}

func (h *hooks) triggerConflictResolved(conflict reconcile.Conflict, choice reconcile.Choice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onConflictResolved {
		hook(conflict, choice)
	}
}

func (h *hooks) triggerUndo(snapshot backup.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onUndo {
		hook(snapshot)
	}
}

func (h *hooks) triggerSubmitFailed(rec records.Record, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onSubmitFailed {
		hook(rec, err)
	}
}

// cloneResult gives each listener its own copy of the result slices.
func cloneResult(r pkgsync.Result) pkgsync.Result {
	r.Added = r.Added.Clone()
	r.Conflicts = append([]reconcile.Conflict{}, r.Conflicts...)
	return r
}
