package config

import (
	"fmt"
	"time"
)

type Config struct {
	HTTP          HttpConfig          `yaml:"http"`
	Backoff       BackoffConfig       `yaml:"backoff"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Robots        RobotsConfig        `yaml:"robots"`
	Rod           RodConfig           `yaml:"rod"`
	Matching      MatchingConfig      `yaml:"matching"`
	Geocode       GeocodeConfig       `yaml:"geocode"`
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type HttpConfig struct {
	UserAgent                 string `yaml:"user_agent"`
	ConnectTimeoutMS          int    `yaml:"connect_timeout_ms"`
	TotalTimeoutMS            int    `yaml:"total_timeout_ms"`
	MaxRetries                int    `yaml:"max_retries"`
	MaxIdleConnections        int    `yaml:"max_idle_connections"`
	MaxIdleConnectionsPerHost int    `yaml:"max_idle_connections_per_host"`
	IdleConnectionTimeoutS    int    `yaml:"idle_connection_timeout_s"`
	AcceptLanguage            string `yaml:"accept_language"`
}

type BackoffConfig struct {
	MinMS     int `yaml:"min_ms"`
	MaxMS     int `yaml:"max_ms"`
	JitterPct int `yaml:"jitter_pct"`
}

type RateLimitConfig struct {
	MaxConcurrentPerHost int `yaml:"max_concurrent_per_host"`
	RPM                  int `yaml:"rpm"`
}

type RobotsConfig struct {
	Enabled       bool `yaml:"enabled"`
	CacheTTLHours int  `yaml:"cache_ttl_hours"`
}

type RodConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ChromePath       string `yaml:"chrome_path"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	WaitLoadTimeoutS int    `yaml:"wait_load_timeout_s"`
	Stealth          bool   `yaml:"stealth"`
}

// MatchingConfig controls how branch lookups over one page are scheduled.
// Workers == 1 keeps the lookups strictly sequential.
type MatchingConfig struct {
	Workers int `yaml:"workers"`
}

type GeocodeConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	UserAgent   string `yaml:"user_agent"`
	MinDelayMS  int    `yaml:"min_delay_ms"`
	MaxRetries  int    `yaml:"max_retries"`
	ErrorWaitMS int    `yaml:"error_wait_ms"`
	TimeoutMS   int    `yaml:"timeout_ms"`
}

type StorageConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type ServerConfig struct {
	Addr             string   `yaml:"addr"`
	ShutdownTimeoutS int      `yaml:"shutdown_timeout_s"`
	CORSOrigins      []string `yaml:"cors_origins"` // empty disables CORS headers
}

type ObservabilityConfig struct {
	LogPath   string `yaml:"log_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when no file is given. A loaded
// file is decoded on top of it, so files only need the keys they change.
func Default() *Config {
	return &Config{
		HTTP: HttpConfig{
			UserAgent:                 "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			ConnectTimeoutMS:          10000,
			TotalTimeoutMS:            15000,
			MaxRetries:                2,
			MaxIdleConnections:        100,
			MaxIdleConnectionsPerHost: 10,
			IdleConnectionTimeoutS:    90,
			AcceptLanguage:            "en-US,en;q=0.9",
		},
		Backoff: BackoffConfig{
			MinMS:     250,
			MaxMS:     2000,
			JitterPct: 20,
		},
		RateLimit: RateLimitConfig{
			MaxConcurrentPerHost: 2,
			RPM:                  60,
		},
		Robots: RobotsConfig{
			Enabled:       false,
			CacheTTLHours: 12,
		},
		Rod: RodConfig{
			PageTimeoutS:     30,
			WaitLoadTimeoutS: 20,
			Stealth:          true,
		},
		Matching: MatchingConfig{
			Workers: 1,
		},
		Geocode: GeocodeConfig{
			Enabled:     true,
			BaseURL:     "https://nominatim.openstreetmap.org/search",
			UserAgent:   "branch-address-scraper/1.0",
			MinDelayMS:  2000,
			MaxRetries:  3,
			ErrorWaitMS: 10000,
			TimeoutMS:   10000,
		},
		Storage: StorageConfig{
			Enabled:          false,
			Driver:           "mssql",
			CommandTimeoutMS: 5000,
		},
		Server: ServerConfig{
			Addr:             ":5000",
			ShutdownTimeoutS: 10,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validation
func (c *Config) Validate() error {
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.RateLimit.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("rate_limit.max_concurrent_per_host must be > 0")
	}
	if c.RateLimit.RPM <= 0 {
		return fmt.Errorf("rate_limit.rpm must be > 0")
	}
	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0")
	}
	if c.Backoff.MaxMS <= 0 {
		return fmt.Errorf("backoff.max_ms must be > 0")
	}
	if c.Backoff.MinMS > c.Backoff.MaxMS {
		return fmt.Errorf("backoff.min_ms must be <= backoff.max_ms")
	}
	if c.Backoff.JitterPct < 0 || c.Backoff.JitterPct > 100 {
		return fmt.Errorf("backoff.jitter_pct must be between 0 and 100")
	}
	if c.Robots.Enabled && c.Robots.CacheTTLHours <= 0 {
		return fmt.Errorf("robots.cache_ttl_hours must be > 0 when robots.enabled is true")
	}
	if c.Rod.Enabled {
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.WaitLoadTimeoutS <= 0 {
			return fmt.Errorf("rod.wait_load_timeout_s must be > 0")
		}
	}
	if c.Matching.Workers <= 0 {
		return fmt.Errorf("matching.workers must be > 0")
	}
	if c.Geocode.Enabled {
		if c.Geocode.BaseURL == "" {
			return fmt.Errorf("geocode.base_url is required when geocode.enabled is true")
		}
		if c.Geocode.UserAgent == "" {
			return fmt.Errorf("geocode.user_agent is required when geocode.enabled is true")
		}
		if c.Geocode.MinDelayMS < 0 {
			return fmt.Errorf("geocode.min_delay_ms must be >= 0")
		}
		if c.Geocode.MaxRetries < 0 {
			return fmt.Errorf("geocode.max_retries must be >= 0")
		}
		if c.Geocode.ErrorWaitMS < 0 {
			return fmt.Errorf("geocode.error_wait_ms must be >= 0")
		}
		if c.Geocode.TimeoutMS <= 0 {
			return fmt.Errorf("geocode.timeout_ms must be > 0")
		}
	}
	if c.Storage.Enabled {
		if c.Storage.Driver != "mssql" {
			return fmt.Errorf("storage.driver must be 'mssql'")
		}
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.enabled is true")
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	if f := c.Observability.LogFormat; f != "" && f != "json" && f != "console" {
		return fmt.Errorf("observability.log_format must be 'json' or 'console'")
	}
	return nil
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.Backoff.MinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.Backoff.MaxMS) * time.Millisecond
}

func (c *Config) GetRobotsCacheTTL() time.Duration {
	return time.Duration(c.Robots.CacheTTLHours) * time.Hour
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodWaitLoadTimeout() time.Duration {
	return time.Duration(c.Rod.WaitLoadTimeoutS) * time.Second
}

func (c *Config) GetGeocodeMinDelay() time.Duration {
	return time.Duration(c.Geocode.MinDelayMS) * time.Millisecond
}

func (c *Config) GetGeocodeErrorWait() time.Duration {
	return time.Duration(c.Geocode.ErrorWaitMS) * time.Millisecond
}

func (c *Config) GetGeocodeTimeout() time.Duration {
	return time.Duration(c.Geocode.TimeoutMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutS) * time.Second
}
