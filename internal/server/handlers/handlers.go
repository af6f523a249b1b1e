// Package handlers provides the HTTP handlers of the quotesync API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/quotesync"
	"github.com/agentstation/quotesync/internal/server/cache"
	"github.com/agentstation/quotesync/internal/server/events"
	"github.com/agentstation/quotesync/internal/server/metrics"
	"github.com/agentstation/quotesync/internal/server/sse"
	ws "github.com/agentstation/quotesync/internal/server/websocket"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
)

// Handlers holds the dependencies shared by every handler.
type Handlers struct {
	client         quotesync.Client
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	metrics        *metrics.Metrics
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// Deps groups the constructor arguments.
type Deps struct {
	Client         quotesync.Client
	Cache          *cache.Cache
	Broker         *events.Broker
	WSHub          *ws.Hub
	SSEBroadcaster *sse.Broadcaster
	Metrics        *metrics.Metrics
	Upgrader       websocket.Upgrader
	Logger         *zerolog.Logger
	StartTime      time.Time
}

// New creates the handlers.
func New(d Deps) *Handlers {
	return &Handlers{
		client:         d.Client,
		cache:          d.Cache,
		broker:         d.Broker,
		wsHub:          d.WSHub,
		sseBroadcaster: d.SSEBroadcaster,
		metrics:        d.Metrics,
		upgrader:       d.Upgrader,
		logger:         d.Logger,
		startTime:      d.StartTime,
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxImportBytes))
	if err != nil {
		return errors.WrapIO("read", "request body", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError("body", nil, "invalid JSON: "+err.Error())
	}
	return nil
}

// keyParam returns the unescaped {key} path parameter.
func keyParam(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}

// persisted separates a durable-write failure, which leaves the change
// applied in memory, from a real failure.
func persisted(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.IsPersistence(err) {
		return false, nil
	}
	return false, err
}
