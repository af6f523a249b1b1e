// Package quotesync keeps a local collection of quotes in step with a remote
// source. It offers a high-level client that owns the collection, runs
// reconciliation passes against the remote, tracks conflicts for manual
// resolution and supports undoing the last pass.
//
// Each pass snapshots the collection, fetches remote records, classifies
// them against the snapshot and applies the resolution policy (remote
// precedence by default). Only one pass runs at a time; a second request
// while one is in flight fails fast with errors.ErrSyncInProgress.
//
// Example usage:
//
//	qs, err := quotesync.New(
//	    quotesync.WithRemoteURL("https://jsonplaceholder.typicode.com/posts", "Server", 10*time.Second),
//	    quotesync.WithSyncInterval(30 * time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer qs.Close()
//
//	qs.OnSyncResult(func(r pkgsync.Result) {
//	    fmt.Println(r.Summary())
//	})
//
//	result, err := qs.Sync(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range result.Conflicts {
//	    _ = qs.Resolve(ctx, c.Key, reconcile.KeepLocal)
//	}
package quotesync

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentstation/quotesync/pkg/backup"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/scheduler"
	"github.com/agentstation/quotesync/pkg/store"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

// Client manages the record collection, its sync passes and event hooks.
type Client interface {

	// Records provides access to the collection and its mutations
	Records

	// Display picks records to show
	Display

	// Syncer runs reconciliation passes
	Syncer

	// Resolver handles conflicts and undo
	Resolver

	// AutoSyncer provides access to scheduled sync controls
	AutoSyncer

	// Hooks provides access to event callback registration
	Hooks

	// Close stops scheduled syncing.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// collection and undo state
	store  *store.Store
	ledger *backup.Ledger

	// busy is held by a pass, an undo or a resolution
	busy  atomic.Bool
	state atomic.Int32

	// pass bookkeeping, guarded by mu
	mu         sync.RWMutex
	conflicts  []reconcile.Conflict
	lastResult *pkgsync.Result
	lastErr    error
	lastRun    time.Time
	passes     int

	scheduler *scheduler.Scheduler
	hooks     *hooks
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	o := defaults().apply(opts...)
	if err := o.validate(); err != nil {
		return nil, err
	}

	c := &client{
		options: o,
		hooks:   newHooks(),
	}

	var err error
	if c.store, err = store.New(o.durable, store.WithSeed(o.seed)); err != nil {
		return nil, errors.WrapResource("create", "store", "", err)
	}
	if c.ledger, err = backup.New(backup.WithStore(o.durable)); err != nil {
		return nil, errors.WrapResource("create", "backup ledger", "", err)
	}
	if c.conflicts, err = loadConflicts(o); err != nil {
		return nil, errors.WrapResource("load", "conflicts", constants.KeyConflicts, err)
	}
	c.state.Store(int32(pkgsync.Idle))

	schedOpts := append([]scheduler.Option{
		scheduler.WithRetries(o.syncRetries),
		scheduler.WithPassTimeout(constants.PassTimeout),
	}, o.schedulerOptions...)
	c.scheduler = scheduler.New(c.scheduledPass, schedOpts...)

	logging.Debug().
		Int("records", c.store.Len()).
		Int("conflicts", len(c.conflicts)).
		Bool("backup", c.ledger.Has()).
		Msg("Client initialized")

	if o.autoSync {
		if err := c.AutoSyncOn(); err != nil {
			return nil, errors.WrapResource("start", "auto-sync", "", err)
		}
	}
	return c, nil
}

// Close stops scheduled syncing and waits for the scheduler loop to exit.
func (c *client) Close() error {
	c.scheduler.Stop()
	if done := c.scheduler.Done(); done != nil {
		<-done
	}
	return nil
}

func loadConflicts(o *options) ([]reconcile.Conflict, error) {
	raw, ok, err := o.durable.Get(constants.KeyConflicts)
	if err != nil || !ok {
		return nil, err
	}
	var conflicts []reconcile.Conflict
	if err := json.Unmarshal([]byte(raw), &conflicts); err != nil {
		return nil, errors.WrapParse("json", constants.KeyConflicts, err)
	}
	return conflicts, nil
}

// saveConflicts mirrors the outstanding list. Callers hold mu.
func (c *client) saveConflictsLocked() error {
	data, err := json.Marshal(c.conflicts)
	if err == nil {
		err = c.options.durable.Set(constants.KeyConflicts, string(data))
	}
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to persist outstanding conflicts")
		return errors.NewPersistenceError(constants.KeyConflicts, err)
	}
	return nil
}
