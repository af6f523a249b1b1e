package quotesync

import (
	"context"

	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
)

// Compile-time interface check to ensure proper implementation.
var _ Resolver = (*client)(nil)

// Resolver exposes the outstanding conflicts, manual overrides and undo.
type Resolver interface {
	// Conflicts returns the outstanding conflicts in the order they were found.
	Conflicts() []reconcile.Conflict

	// Resolve settles one outstanding conflict. KeepLocal restores the local
	// category captured when the conflict was found; UseRemote confirms the
	// value already applied. Both clear the conflict.
	Resolve(ctx context.Context, key string, choice reconcile.Choice) error

	// Undo restores the collection from the snapshot taken before the last
	// pass and clears the outstanding conflicts.
	Undo(ctx context.Context) error
}

// Conflicts returns a copy of the outstanding conflicts.
func (c *client) Conflicts() []reconcile.Conflict {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]reconcile.Conflict{}, c.conflicts...)
}

// Resolve settles the conflict for key.
func (c *client) Resolve(ctx context.Context, key string, choice reconcile.Choice) error {
	choice, err := reconcile.ParseChoice(string(choice))
	if err != nil {
		return err
	}
	key = records.Key(key)
	logger := logging.FromContext(logging.WithKey(ctx, key))

	if !c.busy.CompareAndSwap(false, true) {
		return errors.ErrSyncInProgress
	}

	c.mu.Lock()
	idx := -1
	for i, conflict := range c.conflicts {
		if conflict.Key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		c.busy.Store(false)
		return errors.NewNotFoundError("conflict", key)
	}
	conflict := c.conflicts[idx]
	c.mu.Unlock()

	var before, after records.Collection
	var persistErr error
	if choice == reconcile.KeepLocal {
		before = c.store.All()
		persistErr = c.store.Upsert(conflict.Local())
		after = c.store.All()
	}

	c.mu.Lock()
	c.conflicts = append(c.conflicts[:idx:idx], c.conflicts[idx+1:]...)
	if err := c.saveConflictsLocked(); err != nil && persistErr == nil {
		persistErr = err
	}
	c.mu.Unlock()
	c.busy.Store(false)

	logger.Info().Str("choice", choice.String()).Msg("Conflict resolved")

	c.hooks.triggerChanges(before, after)
	c.hooks.triggerConflictResolved(conflict, choice)
	return persistErr
}

// Undo restores the last retained snapshot.
func (c *client) Undo(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	if !c.busy.CompareAndSwap(false, true) {
		return errors.ErrSyncInProgress
	}

	snapshot, ok := c.ledger.Snapshot()
	if !ok {
		c.busy.Store(false)
		return errors.ErrNoBackupAvailable
	}

	before := c.store.All()
	persistErr := c.store.ReplaceAll(snapshot.Records)
	after := c.store.All()

	c.mu.Lock()
	c.conflicts = nil
	if err := c.saveConflictsLocked(); err != nil && persistErr == nil {
		persistErr = err
	}
	c.mu.Unlock()
	c.busy.Store(false)

	logger.Info().
		Str("sync_id", snapshot.SyncID).
		Int("records", len(snapshot.Records)).
		Msg("Restored collection from last sync backup")

	c.hooks.triggerChanges(before, after)
	c.hooks.triggerUndo(snapshot)
	return persistErr
}
