package quotesync

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/records"
)

// Compile-time interface check to ensure proper implementation.
var _ Display = (*client)(nil)

// Display picks the record to show.
type Display interface {
	// Current returns the record shown last in this session when it still
	// exists, else a fresh pick.
	Current() (records.Record, error)

	// Next picks a random record from the selected category and remembers it
	// for the session.
	Next() (records.Record, error)
}

// Current restores the last displayed record.
func (c *client) Current() (records.Record, error) {
	raw, ok, err := c.options.session.Get(constants.KeyLastViewed)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to read last viewed record")
	}
	if ok {
		var last records.Record
		if err := json.Unmarshal([]byte(raw), &last); err == nil {
			if rec, found := c.store.Get(last.Key()); found {
				return rec, nil
			}
		}
	}
	return c.Next()
}

// Next picks a random record.
func (c *client) Next() (records.Record, error) {
	candidates := c.Filtered()
	if len(candidates) == 0 {
		return records.Record{}, errors.NewNotFoundError("record", "")
	}
	rec := candidates[rand.IntN(len(candidates))]

	data, err := json.Marshal(rec)
	if err == nil {
		err = c.options.session.Set(constants.KeyLastViewed, string(data))
	}
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to remember displayed record")
	}
	return rec, nil
}
