package sync

import (
	"fmt"
	"time"

	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
)

// Result is the immutable outcome of a completed pass, delivered to
// listeners.
type Result struct {
	ID        string               `json:"id" yaml:"id"`
	Added     records.Collection   `json:"added" yaml:"added"`
	Conflicts []reconcile.Conflict `json:"conflicts" yaml:"conflicts"`
	Timestamp time.Time            `json:"timestamp" yaml:"timestamp"`

	// Policy names the resolution policy that was applied.
	Policy string `json:"policy" yaml:"policy"`

	// Persisted is false when the store could not mirror the pass to
	// durable storage. The in-memory collection still reflects it.
	Persisted bool `json:"persisted" yaml:"persisted"`

	// DryRun marks a preview; nothing was applied.
	DryRun bool `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
}

// HasChanges returns true if the pass found new or conflicting records.
func (r *Result) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Conflicts) > 0
}

// Summary returns a one-line human-readable summary.
func (r *Result) Summary() string {
	prefix := ""
	if r.DryRun {
		prefix = "(dry run) "
	}
	if !r.HasChanges() {
		return prefix + "Already up to date"
	}
	return fmt.Sprintf("%s%d added, %d conflicts", prefix, len(r.Added), len(r.Conflicts))
}
