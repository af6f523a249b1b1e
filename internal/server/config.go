package server

import "time"

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	PathPrefix string

	// CORS
	CORSEnabled bool
	CORSOrigins []string

	// CacheTTL bounds how long read responses are reused; record events
	// clear the cache earlier.
	CacheTTL time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MetricsEnabled bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		CORSEnabled:    false,
		CORSOrigins:    []string{},
		CacheTTL:       time.Minute,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   time.Minute,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}
