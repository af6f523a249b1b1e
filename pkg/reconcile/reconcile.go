// Package reconcile compares a local snapshot against records fetched from
// the remote source. Classification is pure: it depends only on its two
// inputs and preserves the order records were encountered in the remote list.
package reconcile

import (
	"github.com/agentstation/quotesync/pkg/records"
)

// Conflict is a key present locally and remotely with differing categories.
type Conflict struct {
	Key            string `json:"key" yaml:"key"`
	Text           string `json:"text" yaml:"text"`
	LocalCategory  string `json:"localCategory" yaml:"localCategory"`
	RemoteCategory string `json:"remoteCategory" yaml:"remoteCategory"`
}

// Local returns the record as it was before the remote value applied.
func (c Conflict) Local() records.Record {
	return records.Record{Text: c.Text, Category: c.LocalCategory}
}

// Remote returns the record carrying the remote value.
func (c Conflict) Remote() records.Record {
	return records.Record{Text: c.Text, Category: c.RemoteCategory}
}

// Classification is the outcome of comparing local and remote records.
// Unchanged records are not reported.
type Classification struct {
	Added     records.Collection `json:"added" yaml:"added"`
	Conflicts []Conflict         `json:"conflicts" yaml:"conflicts"`
}

// Empty reports whether the remote brought nothing new.
func (c Classification) Empty() bool {
	return len(c.Added) == 0 && len(c.Conflicts) == 0
}

// Classify sorts every remote record into new, conflicting or unchanged
// relative to local. Remote records that are malformed after normalization
// are ignored, and a key repeated later in the remote list is ignored in
// favor of its first occurrence. Records only present locally are left out.
func Classify(local records.Collection, remote []records.Record) Classification {
	result := Classification{
		Added:     records.Collection{},
		Conflicts: []Conflict{},
	}

	byKey := make(map[string]records.Record, len(local))
	for _, r := range local {
		r = records.Normalize(r)
		byKey[r.Key()] = r
	}

	seen := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		r = records.Normalize(r)
		if records.Validate(r) != nil {
			continue
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		existing, ok := byKey[key]
		switch {
		case !ok:
			result.Added = append(result.Added, r)
		case existing.Category != r.Category:
			result.Conflicts = append(result.Conflicts, Conflict{
				Key:            key,
				Text:           existing.Text,
				LocalCategory:  existing.Category,
				RemoteCategory: r.Category,
			})
		}
	}
	return result
}

// MergeConflicts folds incoming into outstanding. An incoming conflict
// replaces an outstanding one with the same key in place; others are appended.
func MergeConflicts(outstanding, incoming []Conflict) []Conflict {
	out := make([]Conflict, len(outstanding), len(outstanding)+len(incoming))
	copy(out, outstanding)

	pos := make(map[string]int, len(out))
	for i, c := range out {
		pos[c.Key] = i
	}
	for _, c := range incoming {
		if i, ok := pos[c.Key]; ok {
			out[i] = c
			continue
		}
		pos[c.Key] = len(out)
		out = append(out, c)
	}
	return out
}
