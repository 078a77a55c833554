// Package config provides configuration management for the clipdesk agent.
// Configuration is read from an optional YAML file and then from environment
// variables, which always win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort          = 8790
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".clipdesk"
	DefaultSessionStore  = StoreSQLite
	DefaultHandoffKey    = "trimmedClips"
	DefaultRateLimit     = 300 // requests per minute
	DefaultFFprobePath   = "ffprobe"
	DefaultRedisAddr     = "127.0.0.1:6379"
	DefaultRedisPrefix   = "clipdesk:session:"
	DefaultRemoteBaseURL = "http://127.0.0.1:8000"

	// Environment variable names
	EnvConfigFile    = "CLIPDESK_CONFIG"
	EnvPort          = "CLIPDESK_PORT"
	EnvLogLevel      = "CLIPDESK_LOG_LEVEL"
	EnvDataDir       = "CLIPDESK_DATA_DIR"
	EnvRemoteBaseURL = "CLIPDESK_REMOTE_URL"
	EnvRemoteToken   = "CLIPDESK_REMOTE_TOKEN"
	EnvRemoteTimeout = "CLIPDESK_REMOTE_TIMEOUT"
	EnvSessionStore  = "CLIPDESK_SESSION_STORE"
	EnvRedisAddr     = "CLIPDESK_REDIS_ADDR"
	EnvRedisPassword = "CLIPDESK_REDIS_PASSWORD"
	EnvRedisDB       = "CLIPDESK_REDIS_DB"
	EnvRedisPrefix   = "CLIPDESK_REDIS_PREFIX"
	EnvRedisTTL      = "CLIPDESK_REDIS_TTL"
	EnvHandoffKey    = "CLIPDESK_HANDOFF_KEY"
	EnvHeadless      = "CLIPDESK_HEADLESS"
	EnvRateLimit     = "CLIPDESK_RATE_LIMIT"
	EnvFFprobePath   = "CLIPDESK_FFPROBE"

	// Database filename
	DBFilename = "clipdesk.db"

	// Session store backends
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	RemoteBaseURL() string
	RemoteToken() string
	RemoteTimeout() time.Duration
	SessionStore() string
	RedisAddr() string
	RedisPassword() string
	RedisDB() int
	RedisPrefix() string
	RedisTTL() time.Duration
	HandoffKey() string
	Headless() bool
	RateLimit() int
	FFprobePath() string
}

// fileConfig mirrors the YAML layout of the optional config file.
type fileConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
	Headless *bool  `yaml:"headless"`
	Remote   struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	} `yaml:"remote"`
	Session struct {
		Store      string `yaml:"store"`
		HandoffKey string `yaml:"handoff_key"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	RateLimit   int    `yaml:"rate_limit"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// EnvConfig holds the resolved configuration.
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	remoteBaseURL string
	remoteToken   string
	remoteTimeout time.Duration
	sessionStore  string
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	redisTTL      time.Duration
	handoffKey    string
	headless      bool
	rateLimit     int
	ffprobePath   string
}

// New creates a new EnvConfig with defaults, the optional config file named by
// CLIPDESK_CONFIG, and environment variable overrides, in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		remoteBaseURL: DefaultRemoteBaseURL,
		sessionStore:  DefaultSessionStore,
		redisAddr:     DefaultRedisAddr,
		redisPrefix:   DefaultRedisPrefix,
		handoffKey:    DefaultHandoffKey,
		rateLimit:     DefaultRateLimit,
		ffprobePath:   DefaultFFprobePath,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.Headless != nil {
		c.headless = *fc.Headless
	}
	if fc.Remote.BaseURL != "" {
		c.remoteBaseURL = fc.Remote.BaseURL
	}
	c.remoteToken = fc.Remote.Token
	if fc.Remote.Timeout != "" {
		d, err := time.ParseDuration(fc.Remote.Timeout)
		if err != nil {
			return fmt.Errorf("parse config %s: remote.timeout: %w", path, err)
		}
		c.remoteTimeout = d
	}
	if fc.Session.Store != "" {
		c.sessionStore = fc.Session.Store
	}
	if fc.Session.HandoffKey != "" {
		c.handoffKey = fc.Session.HandoffKey
	}
	if fc.Redis.Addr != "" {
		c.redisAddr = fc.Redis.Addr
	}
	c.redisPassword = fc.Redis.Password
	c.redisDB = fc.Redis.DB
	if fc.Redis.Prefix != "" {
		c.redisPrefix = fc.Redis.Prefix
	}
	if fc.Redis.TTL != "" {
		d, err := time.ParseDuration(fc.Redis.TTL)
		if err != nil {
			return fmt.Errorf("parse config %s: redis.ttl: %w", path, err)
		}
		c.redisTTL = d
	}
	if fc.RateLimit != 0 {
		c.rateLimit = fc.RateLimit
	}
	if fc.FFprobePath != "" {
		c.ffprobePath = fc.FFprobePath
	}
	return nil
}

func (c *EnvConfig) loadEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}

	if u := os.Getenv(EnvRemoteBaseURL); u != "" {
		c.remoteBaseURL = u
	}
	if t := os.Getenv(EnvRemoteToken); t != "" {
		c.remoteToken = t
	}
	if t := os.Getenv(EnvRemoteTimeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRemoteTimeout, err)
		}
		c.remoteTimeout = d
	}

	if s := os.Getenv(EnvSessionStore); s != "" {
		c.sessionStore = s
	}
	if a := os.Getenv(EnvRedisAddr); a != "" {
		c.redisAddr = a
	}
	if p := os.Getenv(EnvRedisPassword); p != "" {
		c.redisPassword = p
	}
	if d := os.Getenv(EnvRedisDB); d != "" {
		db, err := strconv.Atoi(d)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRedisDB, err)
		}
		c.redisDB = db
	}
	if p := os.Getenv(EnvRedisPrefix); p != "" {
		c.redisPrefix = p
	}
	if t := os.Getenv(EnvRedisTTL); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRedisTTL, err)
		}
		c.redisTTL = d
	}
	if k := os.Getenv(EnvHandoffKey); k != "" {
		c.handoffKey = k
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}

	if rl := os.Getenv(EnvRateLimit); rl != "" {
		limit, err := strconv.Atoi(rl)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRateLimit, err)
		}
		c.rateLimit = limit
	}

	if fp := os.Getenv(EnvFFprobePath); fp != "" {
		c.ffprobePath = fp
	}
	return nil
}

// Validate checks that values are sane.
func (c *EnvConfig) Validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.port)
	}
	switch c.sessionStore {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("invalid session store %q: want memory, sqlite or redis", c.sessionStore)
	}
	if strings.TrimSpace(c.handoffKey) == "" {
		return fmt.Errorf("handoff key must not be empty")
	}
	if c.remoteTimeout < 0 {
		return fmt.Errorf("remote timeout must not be negative")
	}
	if c.redisTTL < 0 {
		return fmt.Errorf("redis ttl must not be negative")
	}
	if c.rateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the default directory for EDL exports
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

func (c *EnvConfig) RemoteBaseURL() string {
	return strings.TrimRight(c.remoteBaseURL, "/")
}

func (c *EnvConfig) RemoteToken() string {
	return c.remoteToken
}

// RemoteTimeout is the per-request HTTP timeout. Zero means none.
func (c *EnvConfig) RemoteTimeout() time.Duration {
	return c.remoteTimeout
}

func (c *EnvConfig) SessionStore() string {
	return c.sessionStore
}

func (c *EnvConfig) RedisAddr() string {
	return c.redisAddr
}

func (c *EnvConfig) RedisPassword() string {
	return c.redisPassword
}

func (c *EnvConfig) RedisDB() int {
	return c.redisDB
}

// RedisPrefix namespaces every session key written to Redis.
func (c *EnvConfig) RedisPrefix() string {
	return c.redisPrefix
}

// RedisTTL is the expiry set on session keys. Zero keeps them until overwritten.
func (c *EnvConfig) RedisTTL() time.Duration {
	return c.redisTTL
}

func (c *EnvConfig) HandoffKey() string {
	return c.handoffKey
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

// RateLimit returns the allowed API requests per minute. Zero disables limiting.
func (c *EnvConfig) RateLimit() int {
	return c.rateLimit
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
