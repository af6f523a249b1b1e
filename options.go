package quotesync

import (
	"time"

	"github.com/agentstation/quotesync/internal/transport"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/kv"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
	"github.com/agentstation/quotesync/pkg/remote"
	"github.com/agentstation/quotesync/pkg/scheduler"
)

// Option is a function that configures a Client.
type Option func(*options)

// options holds the client configuration.
type options struct {
	durable kv.Store
	session kv.Store

	remote      remote.Client
	remoteLimit int
	submitOnAdd bool

	policy reconcile.Policy
	seed   records.Collection

	autoSync         bool
	syncInterval     time.Duration
	syncRetries      uint
	schedulerOptions []scheduler.Option

	now func() time.Time
}

func defaults() *options {
	return &options{
		durable:      kv.NewMemory(),
		session:      kv.NewMemory(),
		remoteLimit:  constants.DefaultRemoteLimit,
		submitOnAdd:  true,
		policy:       reconcile.NewRemotePrecedence(),
		seed:         records.Defaults(),
		syncInterval: constants.DefaultSyncInterval,
		syncRetries:  constants.DefaultSyncRetries,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) validate() error {
	if o.durable == nil || o.session == nil {
		return errors.NewConfigError("storage", "durable and session storage are required", nil)
	}
	if o.remoteLimit <= 0 || o.remoteLimit > constants.MaxRemoteLimit {
		return &errors.ValidationError{Field: "remoteLimit", Value: o.remoteLimit, Message: "limit must be between 1 and 100"}
	}
	if o.syncInterval <= 0 {
		return &errors.ValidationError{Field: "syncInterval", Value: o.syncInterval, Message: "interval must be positive"}
	}
	if o.policy == nil {
		return errors.NewConfigError("policy", "a resolution policy is required", nil)
	}
	return nil
}

// WithStorage sets the durable storage backing the collection, the
// category filter, the undo snapshot and outstanding conflicts.
func WithStorage(s kv.Store) Option {
	return func(o *options) {
		o.durable = s
	}
}

// WithSessionStorage sets the storage holding the last displayed record.
func WithSessionStorage(s kv.Store) Option {
	return func(o *options) {
		o.session = s
	}
}

// WithRemote sets the remote source.
func WithRemote(r remote.Client) Option {
	return func(o *options) {
		o.remote = r
	}
}

// WithRemoteURL uses an HTTP remote source at url. Remote items without a
// category are labeled with category; an empty category keeps the default.
func WithRemoteURL(url string, category string, timeout time.Duration) Option {
	return func(o *options) {
		opts := []remote.Option{}
		if category != "" {
			opts = append(opts, remote.WithCategory(category))
		}
		if timeout > 0 {
			opts = append(opts, remote.WithTransport(transport.New(transport.WithTimeout(timeout))))
		}
		o.remote = remote.NewHTTP(url, opts...)
	}
}

// WithRemoteLimit sets how many remote entries a pass fetches.
func WithRemoteLimit(n int) Option {
	return func(o *options) {
		o.remoteLimit = n
	}
}

// WithSubmitOnAdd configures whether added records are pushed to the remote.
func WithSubmitOnAdd(enabled bool) Option {
	return func(o *options) {
		o.submitOnAdd = enabled
	}
}

// WithPolicy sets the resolution policy applied by each pass.
func WithPolicy(p reconcile.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithSeed sets the collection used when storage holds none yet.
func WithSeed(seed records.Collection) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithAutoSync configures whether scheduled syncing starts with the client.
func WithAutoSync(enabled bool) Option {
	return func(o *options) {
		o.autoSync = enabled
	}
}

// WithSyncInterval configures the interval between scheduled passes.
func WithSyncInterval(interval time.Duration) Option {
	return func(o *options) {
		o.syncInterval = interval
	}
}

// WithSyncRetries sets how many times a failed scheduled pass is retried.
func WithSyncRetries(n uint) Option {
	return func(o *options) {
		o.syncRetries = n
	}
}

// WithSchedulerOptions passes extra options to the scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(o *options) {
		o.schedulerOptions = append(o.schedulerOptions, opts...)
	}
}

// WithClock replaces the time source used for pass timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
