package reconcile

import (
	"strings"

	"github.com/agentstation/quotesync/pkg/errors"
)

// Choice is an operator's manual resolution of one conflict.
type Choice string

// Resolution choices.
const (
	// KeepLocal restores the local category captured before the pass.
	KeepLocal Choice = "keep-local"

	// UseRemote confirms the remote category already applied by the pass.
	UseRemote Choice = "use-remote"
)

// String implements fmt.Stringer.
func (c Choice) String() string {
	return string(c)
}

// ParseChoice parses a resolution choice. "local" and "remote" are accepted
// as shorthands.
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep-local", "local":
		return KeepLocal, nil
	case "use-remote", "remote":
		return UseRemote, nil
	default:
		return "", errors.NewValidationError("choice", s, "must be keep-local or use-remote")
	}
}
