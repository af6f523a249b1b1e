package quotesync

import (
	"context"

	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoSyncer = (*client)(nil)

// AutoSyncer provides access to scheduled sync controls.
type AutoSyncer interface {
	// AutoSyncOn runs a pass now and then on every sync interval. Calling it
	// while running is a no-op.
	AutoSyncOn() error

	// AutoSyncOff prevents future scheduled passes. A pass already running
	// completes.
	AutoSyncOff()

	// AutoSyncRunning reports whether scheduled syncing is on.
	AutoSyncRunning() bool
}

// AutoSyncOn starts the scheduler.
func (c *client) AutoSyncOn() error {
	if c.options.remote == nil {
		return errors.NewConfigError("remote", "no remote source configured", nil)
	}
	if err := c.scheduler.Start(c.options.syncInterval); err != nil {
		return err
	}
	logging.Info().Dur("interval", c.options.syncInterval).Msg("Auto-sync enabled")
	return nil
}

// AutoSyncOff stops the scheduler.
func (c *client) AutoSyncOff() {
	if !c.scheduler.IsRunning() {
		return
	}
	c.scheduler.Stop()
	logging.Info().Msg("Auto-sync disabled")
}

// AutoSyncRunning reports whether the scheduler is running.
func (c *client) AutoSyncRunning() bool {
	return c.scheduler.IsRunning()
}

// scheduledPass is the scheduler's pass function.
func (c *client) scheduledPass(ctx context.Context) error {
	_, err := c.Sync(logging.WithOperation(ctx, "auto-sync"))
	return err
}
