// Package sync provides the options, result and state types of a
// reconciliation pass.
package sync

import (
	"time"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
)

// Options controls one pass.
type Options struct {
	Limit   int           // Maximum remote entries to fetch (0 means the client default)
	Timeout time.Duration // Timeout for the whole pass (0 means none)
	DryRun  bool          // Classify only; nothing is applied, retained or recorded
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{}
}

// Apply applies the given options to the sync options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks if the sync options are valid.
func (o *Options) Validate() error {
	if o.Limit < 0 || o.Limit > constants.MaxRemoteLimit {
		return &errors.ValidationError{
			Field:   "Limit",
			Value:   o.Limit,
			Message: "limit must be between 0 and 100",
		}
	}
	if o.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   o.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	return nil
}

// WithLimit overrides the number of remote entries fetched.
func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

// WithTimeout bounds the whole pass.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithDryRun reports what a pass would do without doing it.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}
