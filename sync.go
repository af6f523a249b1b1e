package quotesync

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentstation/quotesync/pkg/backup"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

// Compile-time interface check to ensure proper implementation.
var _ Syncer = (*client)(nil)

// Syncer runs reconciliation passes against the remote source.
type Syncer interface {
	// Sync runs one pass: snapshot, fetch, classify, apply, persist.
	// It fails fast with errors.ErrSyncInProgress when a pass, undo or
	// resolution is already running.
	Sync(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error)

	// Status reports the engine state and the outcome of the last pass.
	Status() pkgsync.Status
}

// passOutcome carries what a pass changed so hooks can fire after the
// busy flag is released.
type passOutcome struct {
	result *pkgsync.Result
	before records.Collection
	after  records.Collection
}

// Sync runs one reconciliation pass.
func (c *client) Sync(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	o := pkgsync.Defaults().Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if c.options.remote == nil {
		return nil, errors.NewConfigError("remote", "no remote source configured", nil)
	}

	if !c.busy.CompareAndSwap(false, true) {
		logging.Debug().Msg("Sync rejected, another pass is running")
		return nil, errors.ErrSyncInProgress
	}
	out, err := c.pass(ctx, o)
	c.busy.Store(false)

	if err != nil {
		c.hooks.triggerSyncFailed(err.Error())
		return nil, err
	}
	if o.DryRun {
		return out.result, nil
	}
	c.hooks.triggerChanges(out.before, out.after)
	c.hooks.triggerSyncResult(*out.result)
	return out.result, nil
}

// pass runs with busy held.
func (c *client) pass(ctx context.Context, o *pkgsync.Options) (*passOutcome, error) {
	id := uuid.NewString()
	ctx = logging.WithSyncID(ctx, id)
	logger := logging.FromContext(ctx)

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	limit := o.Limit
	if limit == 0 {
		limit = c.options.remoteLimit
	}

	previous := pkgsync.State(c.state.Swap(int32(pkgsync.Syncing)))
	logger.Debug().Int("limit", limit).Bool("dry_run", o.DryRun).Msg("Starting sync pass")

	snapshot := c.store.All()
	now := c.options.now()
	result := &pkgsync.Result{
		ID:        id,
		Timestamp: now,
		Policy:    c.options.policy.Name(),
		Persisted: true,
		DryRun:    o.DryRun,
	}

	if !o.DryRun {
		err := c.ledger.Retain(backup.Snapshot{SyncID: id, TakenAt: now, Records: snapshot})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to persist sync backup")
			result.Persisted = false
		}
	}

	remoteRecords, err := c.options.remote.List(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg(constants.MsgSyncFailed)
		if o.DryRun {
			c.state.Store(int32(previous))
			return nil, err
		}
		c.mu.Lock()
		c.lastErr = err
		c.lastRun = now
		c.passes++
		c.mu.Unlock()
		c.state.Store(int32(pkgsync.Failed))
		return nil, err
	}

	classification := reconcile.Classify(snapshot, remoteRecords)
	result.Added = classification.Added
	result.Conflicts = classification.Conflicts

	if o.DryRun {
		c.state.Store(int32(previous))
		logger.Info().Str("summary", result.Summary()).Msg("Dry run complete")
		return &passOutcome{result: result}, nil
	}

	before := c.store.All()
	if _, err := c.store.BulkUpsert(c.options.policy.Apply(classification)); err != nil {
		result.Persisted = false
	}
	after := c.store.All()

	c.mu.Lock()
	c.conflicts = reconcile.MergeConflicts(c.conflicts, classification.Conflicts)
	if len(classification.Conflicts) > 0 {
		if err := c.saveConflictsLocked(); err != nil {
			result.Persisted = false
		}
	}
	stored := cloneResult(*result)
	c.lastResult = &stored
	c.lastErr = nil
	c.lastRun = now
	c.passes++
	c.mu.Unlock()
	c.state.Store(int32(pkgsync.Completed))

	logger.Info().
		Int("added", len(result.Added)).
		Int("conflicts", len(result.Conflicts)).
		Bool("persisted", result.Persisted).
		Msg(constants.MsgSynced)

	return &passOutcome{result: result, before: before, after: after}, nil
}

// Status reports the engine state.
func (c *client) Status() pkgsync.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := pkgsync.Status{
		State:     pkgsync.State(c.state.Load()),
		Passes:    c.passes,
		LastRun:   c.lastRun,
		Conflicts: len(c.conflicts),
		HasBackup: c.ledger.Has(),
		AutoSync:  c.scheduler.IsRunning(),
	}
	if c.lastResult != nil {
		r := cloneResult(*c.lastResult)
		status.LastResult = &r
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	return status
}
