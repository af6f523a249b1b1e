// Package remote talks to the authoritative record source. It only
// fetches and submits; it never touches local state and never retries.
package remote

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=remote.go Client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/agentstation/quotesync/internal/transport"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/records"
)

// Client lists remote records and submits local ones.
type Client interface {
	// List fetches up to limit remote entries mapped into records.
	// Malformed entries are skipped. Any transport failure or non-2xx
	// status is a RemoteUnavailableError.
	List(ctx context.Context, limit int) ([]records.Record, error)

	// Submit pushes one locally created record.
	Submit(ctx context.Context, rec records.Record) error
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// HTTPClient implements Client against a JSON collection endpoint.
// GET returns a list of items carrying an "id" and a "title"; POST accepts
// {text, category}.
type HTTPClient struct {
	endpoint  string
	category  string
	transport *transport.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithCategory sets the label given to remote items that carry no category.
func WithCategory(category string) Option {
	return func(c *HTTPClient) {
		c.category = category
	}
}

// WithTransport replaces the underlying transport client.
func WithTransport(t *transport.Client) Option {
	return func(c *HTTPClient) {
		c.transport = t
	}
}

// NewHTTP creates a client for the collection at endpoint.
func NewHTTP(endpoint string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint:  endpoint,
		category:  constants.DefaultRemoteCategory,
		transport: transport.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the collection URL.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// List implements Client.
func (c *HTTPClient) List(ctx context.Context, limit int) ([]records.Record, error) {
	resp, err := c.transport.Get(ctx, c.endpoint)
	if err != nil {
		return nil, c.unavailable("list", err)
	}

	var items []map[string]any
	if err := transport.DecodeResponse(resp, &items); err != nil {
		return nil, c.unavailable("list", err)
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	log := logging.FromContext(ctx)
	out := make([]records.Record, 0, len(items))
	for i, item := range items {
		rec, err := c.mapItem(i, item)
		if err != nil {
			log.Debug().Err(err).Msg("Skipping malformed remote entry")
			continue
		}
		out = append(out, rec)
	}
	log.Debug().
		Int("fetched", len(items)).
		Int("mapped", len(out)).
		Str("endpoint", c.endpoint).
		Msg("Listed remote records")
	return out, nil
}

// Submit implements Client.
func (c *HTTPClient) Submit(ctx context.Context, rec records.Record) error {
	resp, err := c.transport.PostJSON(ctx, c.endpoint, records.Normalize(rec))
	if err != nil {
		return c.unavailable("submit", err)
	}
	if err := transport.DecodeResponse(resp, nil); err != nil {
		return c.unavailable("submit", err)
	}
	return nil
}

// mapItem maps one remote item: title (or text) becomes the record text,
// the item's own category is used when present, else the fixed label.
func (c *HTTPClient) mapItem(i int, item map[string]any) (records.Record, error) {
	if _, ok := item["id"]; !ok {
		return records.Record{}, &errors.MalformedRecordError{Index: i, Field: "id", Reason: "is missing"}
	}

	text, ok := stringField(item, "title")
	if !ok {
		text, ok = stringField(item, "text")
	}
	if !ok {
		return records.Record{}, &errors.MalformedRecordError{Index: i, Field: "title", Reason: "is missing or empty"}
	}

	category, ok := stringField(item, "category")
	if !ok {
		category = c.category
	}

	rec := records.Normalize(records.Record{Text: text, Category: category})
	if err := records.Validate(rec); err != nil {
		return records.Record{}, &errors.MalformedRecordError{Index: i, Field: "record", Reason: err.Error()}
	}
	return rec, nil
}

func stringField(item map[string]any, name string) (string, bool) {
	v, ok := item[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (c *HTTPClient) unavailable(op string, err error) error {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		return errors.NewRemoteUnavailableError(op, c.endpoint, apiErr.StatusCode, err)
	}
	var syntaxErr *json.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		err = fmt.Errorf("undecodable response: %w", err)
	}
	return errors.NewRemoteUnavailableError(op, c.endpoint, 0, err)
}
