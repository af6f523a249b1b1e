package quotesync

import (
	"context"
	"strings"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/records"
	"github.com/agentstation/quotesync/pkg/store"
)

// Compile-time interface check to ensure proper implementation.
var _ Records = (*client)(nil)

// Records provides access to the collection and its mutations.
type Records interface {
	// All returns a copy of the collection.
	All() records.Collection

	// Get returns the record with the given key or text.
	Get(key string) (records.Record, error)

	// Add commits a user-entered record locally, then submits it to the
	// remote. A failed submission never undoes the local commit.
	Add(ctx context.Context, text, category string) (*AddResult, error)

	// Remove deletes the record with the given key or text.
	Remove(key string) error

	// Import decodes a list of records and applies it atomically.
	Import(data []byte, format records.Format) (store.BulkResult, error)

	// Export encodes the collection.
	Export(format records.Format) ([]byte, error)

	// Categories lists distinct categories in first-seen order.
	Categories() []string

	// Filter returns the selected category, "all" when none is selected.
	Filter() string

	// SetFilter persists the selected category.
	SetFilter(category string) error

	// Filtered returns the records in the selected category.
	Filtered() records.Collection
}

// AddResult reports the outcome of Add.
type AddResult struct {
	Record  records.Record `json:"record" yaml:"record"`
	Created bool           `json:"created" yaml:"created"`

	// Persisted is false when the durable write failed; the record is
	// still in the collection.
	Persisted bool `json:"persisted" yaml:"persisted"`

	// Submitted is true when the remote accepted the record.
	Submitted bool   `json:"submitted" yaml:"submitted"`
	SubmitErr string `json:"submitError,omitempty" yaml:"submitError,omitempty"`
}

// All returns a copy of the collection.
func (c *client) All() records.Collection {
	return c.store.All()
}

// Get returns one record.
func (c *client) Get(key string) (records.Record, error) {
	key = records.Key(key)
	rec, ok := c.store.Get(key)
	if !ok {
		return records.Record{}, errors.NewNotFoundError("record", key)
	}
	return rec, nil
}

// Add commits a record and submits it best-effort.
func (c *client) Add(ctx context.Context, text, category string) (*AddResult, error) {
	if strings.TrimSpace(category) == "" {
		category = constants.DefaultUserCategory
	}
	rec := records.Normalize(records.Record{Text: text, Category: category})
	if err := records.Validate(rec); err != nil {
		return nil, err
	}

	before := c.store.All()
	_, existed := before.Find(rec.Key())
	err := c.store.Upsert(rec)
	if err != nil && !errors.IsPersistence(err) {
		return nil, err
	}
	c.hooks.triggerChanges(before, c.store.All())

	result := &AddResult{Record: rec, Created: !existed, Persisted: err == nil}
	logger := logging.FromContext(logging.WithKey(ctx, rec.Key()))
	logger.Info().Str("category", rec.Category).Bool("created", result.Created).Msg(constants.MsgAdded)

	if c.options.remote == nil || !c.options.submitOnAdd {
		return result, nil
	}
	if err := c.options.remote.Submit(ctx, rec); err != nil {
		logger.Warn().Err(err).Msg("Failed to submit record to remote")
		result.SubmitErr = err.Error()
		c.hooks.triggerSubmitFailed(rec, err)
		return result, nil
	}
	result.Submitted = true
	return result, nil
}

// Remove deletes one record.
func (c *client) Remove(key string) error {
	key = records.Key(key)
	before := c.store.All()
	removed, err := c.store.Remove(key)
	if !removed {
		return errors.NewNotFoundError("record", key)
	}
	c.hooks.triggerChanges(before, c.store.All())
	return err
}

// Import rejects the whole input when any item is malformed.
func (c *client) Import(data []byte, format records.Format) (store.BulkResult, error) {
	if len(data) > constants.MaxImportBytes {
		return store.BulkResult{}, errors.NewMalformedImportError(-1, "input too large", nil)
	}
	incoming, err := records.Decode(data, format)
	if err != nil {
		return store.BulkResult{}, err
	}

	before := c.store.All()
	result, err := c.store.BulkUpsert(incoming)
	c.hooks.triggerChanges(before, c.store.All())

	logging.Info().
		Int("added", result.Added).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Msg("Imported records")
	return result, err
}

// Export encodes the collection.
func (c *client) Export(format records.Format) ([]byte, error) {
	return records.Encode(c.store.All(), format)
}

// Categories lists distinct categories.
func (c *client) Categories() []string {
	return c.store.All().Categories()
}

// Filter returns the selected category.
func (c *client) Filter() string {
	value, ok, err := c.options.durable.Get(constants.KeySelectedCategory)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to read category filter")
	}
	if !ok || value == "" {
		return constants.AllCategories
	}
	return value
}

// SetFilter persists the selected category. Empty selects all.
func (c *client) SetFilter(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		category = constants.AllCategories
	}
	if len(category) > constants.MaxCategoryLength {
		return errors.NewValidationError("category", category, "too long")
	}
	if err := c.options.durable.Set(constants.KeySelectedCategory, category); err != nil {
		return errors.NewPersistenceError(constants.KeySelectedCategory, err)
	}
	return nil
}

// Filtered returns the records in the selected category.
func (c *client) Filtered() records.Collection {
	return c.store.All().InCategory(c.Filter())
}
