package sync

import (
	"fmt"
	"time"
)

// State is the engine's position in the pass lifecycle.
type State int32

// Pass lifecycle. Completed and Failed are the outcome of the last pass;
// the engine accepts a new pass from any state but Syncing.
const (
	Idle State = iota
	Syncing
	Completed
	Failed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Syncing:
		return "syncing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{Idle, Syncing, Completed, Failed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown sync state %q", text)
}

// Status describes the engine at a point in time.
type Status struct {
	State      State     `json:"state" yaml:"state"`
	Passes     int       `json:"passes" yaml:"passes"`
	LastResult *Result   `json:"lastResult,omitempty" yaml:"lastResult,omitempty"`
	LastError  string    `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	LastRun    time.Time `json:"lastRun,omitzero" yaml:"lastRun,omitempty"`
	Conflicts  int       `json:"conflicts" yaml:"conflicts"`
	HasBackup  bool      `json:"hasBackup" yaml:"hasBackup"`
	AutoSync   bool      `json:"autoSync" yaml:"autoSync"`
}
