// Package server provides the HTTP API through which UI collaborators read
// the collection, trigger and undo syncs, resolve conflicts and receive
// live events.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/quotesync"
	"github.com/agentstation/quotesync/internal/server/cache"
	"github.com/agentstation/quotesync/internal/server/events"
	"github.com/agentstation/quotesync/internal/server/events/adapters"
	"github.com/agentstation/quotesync/internal/server/metrics"
	"github.com/agentstation/quotesync/internal/server/sse"
	ws "github.com/agentstation/quotesync/internal/server/websocket"
	"github.com/agentstation/quotesync/pkg/backup"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client         quotesync.Client
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	metrics        *metrics.Metrics
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	startTime      time.Time
}

// New creates a server for client and connects its hooks.
func New(client quotesync.Client, cfg Config, logger *zerolog.Logger) *Server {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.CacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/api/v1"
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		client:         client,
		cache:          cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		metrics:        metrics.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	s.connectHooks()
	s.metrics.SetCollection(len(client.All()), len(client.Conflicts()))

	logger.Debug().Msg("Server instance created")
	return s
}

// connectHooks publishes client events to the broker, clears the read
// cache on collection changes and keeps the gauges current.
func (s *Server) connectHooks() {
	changed := func() {
		s.cache.Clear()
		s.metrics.SetCollection(len(s.client.All()), len(s.client.Conflicts()))
	}

	s.client.OnRecordAdded(func(rec records.Record) {
		changed()
		s.broker.Publish(events.RecordAdded, map[string]any{"record": rec})
	})
	s.client.OnRecordUpdated(func(old, updated records.Record) {
		changed()
		s.broker.Publish(events.RecordUpdated, map[string]any{"old": old, "new": updated})
	})
	s.client.OnRecordRemoved(func(rec records.Record) {
		changed()
		s.broker.Publish(events.RecordRemoved, map[string]any{"record": rec})
	})
	s.client.OnSubmitFailed(func(rec records.Record, err error) {
		s.broker.Publish(events.RecordSubmitFailed, map[string]any{"record": rec, "error": err.Error()})
	})

	s.client.OnSyncResult(func(result pkgsync.Result) {
		changed()
		s.metrics.ObservePass(metrics.OutcomeCompleted, len(result.Added), result.Timestamp)
		s.broker.Publish(events.SyncCompleted, map[string]any{
			"result":  result,
			"message": constants.MsgSynced,
			"summary": result.Summary(),
		})
	})
	s.client.OnSyncFailed(func(message string) {
		s.metrics.ObservePass(metrics.OutcomeFailed, 0, time.Now())
		s.broker.Publish(events.SyncFailed, map[string]any{
			"message": constants.MsgSyncFailed,
			"error":   message,
		})
	})
	s.client.OnConflictResolved(func(conflict reconcile.Conflict, choice reconcile.Choice) {
		changed()
		s.broker.Publish(events.ConflictResolved, map[string]any{"conflict": conflict, "choice": choice})
	})
	s.client.OnUndo(func(snapshot backup.Snapshot) {
		changed()
		s.broker.Publish(events.SyncUndone, map[string]any{
			"sync_id": snapshot.SyncID,
			"records": len(snapshot.Records),
		})
	})

	s.logger.Debug().Msg("Client hooks connected to event broker")
}

// Start runs the broker, hub and broadcaster until Shutdown.
func (s *Server) Start() {
	s.done = make(chan struct{})
	running := make(chan struct{}, 3)

	go func() { s.broker.Run(s.ctx); running <- struct{}{} }()
	go func() { s.wsHub.Run(s.ctx); running <- struct{}{} }()
	go func() { s.sseBroadcaster.Run(s.ctx); running <- struct{}{} }()

	go func() {
		for range 3 {
			<-running
		}
		close(s.done)
	}()
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer returns an http.Server for the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Shutdown stops the background services and waits for them, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()

	if s.done == nil {
		return nil
	}
	select {
	case <-s.done:
		s.logger.Info().Msg("Background services shut down")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Broker returns the event broker.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// Metrics returns the metrics collectors.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}
