// Package records defines the quote record, its identity key and the
// collection helpers shared by the store, the resolver and undo.
package records

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/quotesync/pkg/errors"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Record is one quote. Its identity is Key(), derived from Text.
type Record struct {
	Text     string `json:"text" yaml:"text" validate:"required,max=4096"`
	Category string `json:"category" yaml:"category" validate:"required,max=128"`
}

// Key returns the identity of the record.
func (r Record) Key() string {
	return Key(r.Text)
}

// Key derives the identity used everywhere records are matched:
// trimmed, NFC-normalized, lowercased text.
func Key(text string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(text)))
}

// Normalize returns the record with text and category trimmed and
// NFC-normalized. Case is preserved.
func Normalize(r Record) Record {
	return Record{
		Text:     norm.NFC.String(strings.TrimSpace(r.Text)),
		Category: norm.NFC.String(strings.TrimSpace(r.Category)),
	}
}

// Validate reports whether a normalized record is well formed.
func Validate(r Record) error {
	if err := validate.Struct(r); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(strings.ToLower(fe.Field()), fe.Value(), fe.Tag())
		}
		return errors.WrapValidation("record", err)
	}
	return nil
}

// Collection is an ordered sequence of records with unique keys.
type Collection []Record

// Clone returns a deep copy. A nil collection clones to an empty one.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Equal reports whether both collections hold the same records in the same order.
func (c Collection) Equal(other Collection) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Index maps each key to its position.
func (c Collection) Index() map[string]int {
	idx := make(map[string]int, len(c))
	for i, r := range c {
		idx[r.Key()] = i
	}
	return idx
}

// Find returns the record with the given key.
func (c Collection) Find(key string) (Record, bool) {
	for _, r := range c {
		if r.Key() == key {
			return r, true
		}
	}
	return Record{}, false
}

// Categories returns the distinct categories in first-seen order.
func (c Collection) Categories() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range c {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

// InCategory returns the records whose category equals category.
// An empty category or "all" selects everything.
func (c Collection) InCategory(category string) Collection {
	if category == "" || strings.EqualFold(category, "all") {
		return c.Clone()
	}
	out := Collection{}
	for _, r := range c {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Defaults is the collection a fresh store starts with.
func Defaults() Collection {
	return Collection{
		{Text: "The best way to get started is to quit talking and begin doing.", Category: "Motivation"},
		{Text: "Don’t let yesterday take up too much of today.", Category: "Inspiration"},
		{Text: "It’s not whether you get knocked down, it’s whether you get up.", Category: "Resilience"},
	}
}
