package reconcile

import (
	"strings"

	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/records"
)

// Policy decides which classified records a pass writes to the store.
// Conflicts are reported regardless of the policy.
type Policy interface {
	// Name returns the policy name
	Name() string

	// Description returns a human-readable description
	Description() string

	// Apply returns the records to upsert, in the order to upsert them.
	Apply(c Classification) []records.Record
}

// basePolicy provides common policy functionality
type basePolicy struct {
	name        string
	description string
}

// Name returns the policy name
func (p *basePolicy) Name() string {
	return p.name
}

// Description returns a human-readable description
func (p *basePolicy) Description() string {
	return p.description
}

// RemotePrecedencePolicy adds new remote records and overwrites conflicting
// local categories with the remote value.
type RemotePrecedencePolicy struct {
	basePolicy
}

// NewRemotePrecedence creates the default policy.
func NewRemotePrecedence() Policy {
	return &RemotePrecedencePolicy{
		basePolicy: basePolicy{
			name:        "remote-precedence",
			description: "Remote values overwrite conflicting local values",
		},
	}
}

// Apply implements Policy.
func (p *RemotePrecedencePolicy) Apply(c Classification) []records.Record {
	out := make([]records.Record, 0, len(c.Added)+len(c.Conflicts))
	out = append(out, c.Added...)
	for _, conflict := range c.Conflicts {
		out = append(out, conflict.Remote())
	}
	return out
}

// LocalPrecedencePolicy adds new remote records but keeps local values on
// conflict.
type LocalPrecedencePolicy struct {
	basePolicy
}

// NewLocalPrecedence creates a policy that never overwrites local values.
func NewLocalPrecedence() Policy {
	return &LocalPrecedencePolicy{
		basePolicy: basePolicy{
			name:        "local-precedence",
			description: "Local values are kept; conflicts are only reported",
		},
	}
}

// Apply implements Policy.
func (p *LocalPrecedencePolicy) Apply(c Classification) []records.Record {
	out := make([]records.Record, 0, len(c.Added))
	return append(out, c.Added...)
}

// PolicyByName returns the policy registered under name.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "remote", "remote-precedence":
		return NewRemotePrecedence(), nil
	case "local", "local-precedence":
		return NewLocalPrecedence(), nil
	default:
		return nil, errors.NewValidationError("policy", name, "must be remote-precedence or local-precedence")
	}
}
