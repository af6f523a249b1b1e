// Package constants provides shared constants used throughout quotesync.
// This includes timeouts, limits, storage keys, file permissions and the
// defaults applied when no configuration is given.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout bounds every request to the remote source
	DefaultHTTPTimeout = 10 * time.Second

	// PassTimeout is the timeout for one scheduled sync pass
	PassTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Minute

	// ShutdownTimeout is how long serve waits for in-flight requests on exit
	ShutdownTimeout = 10 * time.Second

	// RetryBackoff is the initial backoff between retries of a failed pass
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff caps the backoff between retries of a failed pass
	MaxRetryBackoff = 10 * time.Second
)

// Sync defaults
const (
	// DefaultSyncInterval is the interval between scheduled passes
	DefaultSyncInterval = 30 * time.Second

	// DefaultRemoteLimit is the number of remote entries fetched per pass
	DefaultRemoteLimit = 15

	// MaxRemoteLimit caps the configurable remote limit
	MaxRemoteLimit = 100

	// DefaultSyncRetries is how many times the scheduler retries a failed pass
	DefaultSyncRetries = 2

	// DefaultRemoteURL is the collection endpoint polled by default
	DefaultRemoteURL = "https://jsonplaceholder.typicode.com/posts"

	// DefaultRemoteCategory labels every record ingested from the remote
	DefaultRemoteCategory = "Server"

	// DefaultUserCategory labels records added without a category
	DefaultUserCategory = "Custom"

	// AllCategories is the filter value that selects every record
	AllCategories = "all"
)

// Storage keys
const (
	// KeyRecords holds the collection as a JSON array of {text, category}
	KeyRecords = "quotes"

	// KeySelectedCategory holds the last selected category filter
	KeySelectedCategory = "selectedCategory"

	// KeyLastViewed holds the last displayed record in session storage
	KeyLastViewed = "lastViewedQuote"

	// KeyBackup holds the snapshot retained for undo
	KeyBackup = "syncBackup"

	// KeyConflicts holds the outstanding conflict list
	KeyConflicts = "syncConflicts"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SessionDirPermissions is for the per-user session directory (rwx------)
	SessionDirPermissions = 0700
)

// Limit constants define various limits and capacities
const (
	// MaxTextLength is the maximum allowed length of a record text
	MaxTextLength = 4096

	// MaxCategoryLength is the maximum allowed length of a category
	MaxCategoryLength = 128

	// MaxImportBytes caps the size of an import payload
	MaxImportBytes = 8 << 20

	// ChannelBufferSize is the default buffer size for channels
	ChannelBufferSize = 100
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached responses
	CacheTTL = 1 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute
)

// Logging constants
const (
	// LogRotationSize is the maximum size of a log file before rotation, in megabytes
	LogRotationSize = 10

	// LogRotationAge is the maximum age of log files before deletion
	LogRotationAge = 7 * 24 * time.Hour

	// LogRotationBackups is the maximum number of old log files to retain
	LogRotationBackups = 5
)

// Path constants
const (
	// AppName names the XDG subdirectories and the config file
	AppName = "quotesync"

	// DurableFile is the file backing durable storage inside the data directory
	DurableFile = "store.json"

	// SessionFile is the file backing session storage inside the session directory
	SessionFile = "session.json"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"

	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)

// User-facing notification messages
const (
	// MsgSynced is shown after a successful pass
	MsgSynced = "Quotes synced with server!"

	// MsgSyncFailed is shown after a failed pass
	MsgSyncFailed = "Failed to sync with server!"

	// MsgAdded is shown after a record is added
	MsgAdded = "New quote added successfully!"

	// MsgEmpty is shown when there is nothing to display
	MsgEmpty = "No quotes available. Please add one!"
)
