package api

import "time"

// Config holds REST server configuration.
type Config struct {
	Addr             string        `yaml:"addr"`
	CORSAllowOrigins []string      `yaml:"cors_allow_origins"`
	MaxRequestSize   int64         `yaml:"max_request_size"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`

	// SubmitRatePerSec and SubmitBurst limit transaction submissions per
	// client IP. A zero rate disables the limit.
	SubmitRatePerSec float64 `yaml:"submit_rate_per_sec"`
	SubmitBurst      int     `yaml:"submit_burst"`
	// RateLimitClients bounds how many client limiters are tracked.
	RateLimitClients int `yaml:"rate_limit_clients"`
}

// DefaultConfig returns the REST server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8084",
		CORSAllowOrigins: []string{"*"},
		MaxRequestSize:   64 * 1024,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		IdleTimeout:      120 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		SubmitRatePerSec: 10,
		SubmitBurst:      20,
		RateLimitClients: 4096,
	}
}
