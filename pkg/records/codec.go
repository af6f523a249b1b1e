package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
)

// Format is an import/export encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name, defaulting to JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", errors.NewValidationError("format", s, "must be json or yaml")
	}
}

// Decode parses bulk input into normalized records. The whole input is
// rejected with a MalformedImportError unless it is a list in which every
// item carries a non-empty text and category.
func Decode(data []byte, format Format) (Collection, error) {
	if len(data) > constants.MaxImportBytes {
		return nil, errors.NewMalformedImportError(-1, "input too large", nil)
	}

	var items []any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &items)
	default:
		err = json.Unmarshal(data, &items)
	}
	if err != nil || (items == nil && !isEmptyList(data)) {
		return nil, errors.NewMalformedImportError(-1, "expected a list of records", errors.WrapParse(string(format), "", err))
	}

	out := make(Collection, 0, len(items))
	for i, item := range items {
		rec, reason := fromItem(item)
		if reason != "" {
			return nil, errors.NewMalformedImportError(i, reason, nil)
		}
		out = append(out, rec)
	}
	return out, nil
}

func isEmptyList(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("[]"))
}

// fromItem maps one decoded item. A non-empty reason rejects it.
func fromItem(item any) (Record, string) {
	m, ok := item.(map[string]any)
	if !ok {
		return Record{}, "not an object"
	}
	text, ok := m["text"].(string)
	if !ok {
		return Record{}, "missing text"
	}
	category, ok := m["category"].(string)
	if !ok {
		return Record{}, "missing category"
	}
	rec := Normalize(Record{Text: text, Category: category})
	if err := Validate(rec); err != nil {
		return Record{}, err.Error()
	}
	return rec, ""
}

// Encode renders a collection as a list of {text, category}.
func Encode(c Collection, format Format) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}
	switch format {
	case FormatYAML:
		data, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return nil, errors.WrapParse("yaml", "", err)
		}
		return data, nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
