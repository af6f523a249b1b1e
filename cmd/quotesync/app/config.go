package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/quotesync/pkg/constants"
)

// envPrefix namespaces environment variables, e.g. QUOTESYNC_REMOTE_URL.
const envPrefix = "QUOTESYNC"

// Config holds the application configuration loaded from config files,
// environment variables and .env files. Flags are applied afterwards.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	Format  string

	// Config file
	ConfigFile string

	// Storage
	DataDir    string
	SessionDir string

	// Remote source and sync
	RemoteURL      string
	RemoteLimit    int
	RemoteCategory string
	RemoteTimeout  time.Duration
	SubmitOnAdd    bool
	Policy         string
	SyncInterval   time.Duration
	SyncRetries    uint
	AutoSync       bool

	// API server
	ServerHost string
	ServerPort int

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied by the root command)
//  2. Environment variables (QUOTESYNC_*)
//  3. .env files
//  4. Config file ($XDG_CONFIG_HOME/quotesync/config.yaml, ~/.quotesync.yaml or ./.quotesync.yaml)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".quotesync")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// fall back to the XDG location
			v.SetConfigName("config")
			v.AddConfigPath(filepath.Join(xdg.ConfigHome, constants.AppName))
			_ = v.ReadInConfig()
		}
	}

	return &Config{
		Verbose:    v.GetBool("verbose"),
		Quiet:      v.GetBool("quiet"),
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		DataDir:    v.GetString("data_dir"),
		SessionDir: v.GetString("session_dir"),

		RemoteURL:      v.GetString("remote_url"),
		RemoteLimit:    v.GetInt("remote_limit"),
		RemoteCategory: v.GetString("remote_category"),
		RemoteTimeout:  v.GetDuration("remote_timeout"),
		SubmitOnAdd:    v.GetBool("submit_on_add"),
		Policy:         v.GetString("policy"),
		SyncInterval:   v.GetDuration("sync_interval"),
		SyncRetries:    v.GetUint("sync_retries"),
		AutoSync:       v.GetBool("auto_sync"),

		ServerHost: v.GetString("server_host"),
		ServerPort: v.GetInt("server_port"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", filepath.Join(xdg.DataHome, constants.AppName))
	v.SetDefault("session_dir", filepath.Join(xdg.RuntimeDir, constants.AppName))
	v.SetDefault("remote_url", constants.DefaultRemoteURL)
	v.SetDefault("remote_limit", constants.DefaultRemoteLimit)
	v.SetDefault("remote_category", constants.DefaultRemoteCategory)
	v.SetDefault("remote_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("submit_on_add", true)
	v.SetDefault("policy", "remote-precedence")
	v.SetDefault("sync_interval", constants.DefaultSyncInterval)
	v.SetDefault("sync_retries", constants.DefaultSyncRetries)
	v.SetDefault("auto_sync", false)
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_port", 8080)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags applies parsed flag values over file and env values.
// Empty strings leave the loaded value in place.
func (c *Config) UpdateFromFlags(verbose, quiet bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// DurablePath is the file backing durable storage.
func (c *Config) DurablePath() string {
	return filepath.Join(c.DataDir, constants.DurableFile)
}

// SessionPath is the file backing session storage.
func (c *Config) SessionPath() string {
	return filepath.Join(c.SessionDir, constants.SessionFile)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is loaded first so its values win; godotenv never overrides.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
