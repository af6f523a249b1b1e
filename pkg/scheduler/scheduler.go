// Package scheduler runs a sync pass on a fixed interval. Passes run one
// after another on a single goroutine. A failed pass may be retried with
// exponential backoff before the scheduler waits for the next tick.
package scheduler

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
)

// PassFunc runs one pass.
type PassFunc func(ctx context.Context) error

// Scheduler drives a PassFunc on an interval.
type Scheduler struct {
	pass    PassFunc
	options *options

	mu       sync.Mutex
	running  bool
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	retries        uint
	initialBackoff time.Duration
	maxBackoff     time.Duration
	passTimeout    time.Duration
	retryable      func(error) bool
	onError        func(error)
}

func defaults() *options {
	return &options{
		retries:        constants.DefaultSyncRetries,
		initialBackoff: constants.RetryBackoff,
		maxBackoff:     constants.MaxRetryBackoff,
		passTimeout:    constants.PassTimeout,
		retryable:      errors.IsRemoteUnavailable,
	}
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRetries sets how many times a failed pass is retried before
// waiting for the next tick. Zero disables retries.
func WithRetries(n uint) Option {
	return func(o *options) {
		o.retries = n
	}
}

// WithBackoff sets the initial and maximum wait between retries.
func WithBackoff(initial, maxWait time.Duration) Option {
	return func(o *options) {
		o.initialBackoff = initial
		o.maxBackoff = maxWait
	}
}

// WithPassTimeout bounds each individual pass.
func WithPassTimeout(d time.Duration) Option {
	return func(o *options) {
		o.passTimeout = d
	}
}

// WithRetryable decides which pass errors are worth retrying.
func WithRetryable(fn func(error) bool) Option {
	return func(o *options) {
		o.retryable = fn
	}
}

// WithErrorHandler is called with the final error of every failed pass.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// New creates a stopped scheduler.
func New(pass PassFunc, opts ...Option) *Scheduler {
	return &Scheduler{
		pass:    pass,
		options: defaults().apply(opts...),
	}
}

// Start runs one pass immediately and then one every interval. Starting a
// running scheduler is a no-op.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return &errors.ValidationError{
			Field:   "interval",
			Value:   interval,
			Message: "interval must be positive",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.interval = interval
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, interval, s.done)

	logging.Debug().Dur("interval", interval).Msg("Scheduler started")
	return nil
}

// Stop prevents future passes and abandons pending retry waits. A pass
// already running is left to finish. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.running = false
	s.cancel = nil
	logging.Debug().Msg("Scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the interval of the current or last run.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Done returns a channel closed once the loop of the current or last run
// has exited, including any pass it was running. It is nil before the
// first Start.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// run executes one pass plus its retries. ctx only governs the waits
// between attempts; each attempt gets its own context so stopping never
// interrupts a pass in flight.
func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.options.initialBackoff
	b.MaxInterval = s.options.maxBackoff

	attempt := func() (struct{}, error) {
		passCtx, cancel := context.WithTimeout(context.Background(), s.options.passTimeout)
		defer cancel()

		err := s.pass(passCtx)
		if err != nil && (s.options.retryable == nil || !s.options.retryable(err)) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.options.retries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn().Err(err).Dur("retry_in", next).Msg("Sync pass failed, retrying")
		}),
	)
	if err == nil || stderrors.Is(err, context.Canceled) {
		return
	}
	if errors.IsSyncInProgress(err) {
		logging.Debug().Msg("Skipped scheduled pass, one is already running")
		return
	}

	logging.Error().Err(err).Msg("Scheduled sync pass failed")
	if s.options.onError != nil {
		s.options.onError(err)
	}
}
