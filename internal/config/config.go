package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	dbconfig "rollcall/pkg/database"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ConfigFileEnv names the variable pointing at a JSON config file.
const ConfigFileEnv = "ROLLCALL_CONFIG_FILE"

// Config is the process-wide settings tree
type Config struct {
	Storage   *StorageConfig   `json:"storage"`
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
}

// StorageConfig selects where roster documents live
// FUNCTIONAL DISCOVERY: "file" keeps one <class>.json per roster in Directory;
// "sqlite" keeps them in one database at DatabasePath
type StorageConfig struct {
	Backend      string        `json:"backend"`
	Directory    string        `json:"directory"`
	DatabasePath string        `json:"database_path"`
	Timeout      time.Duration `json:"timeout"`
}

// HTTPConfig configures the API listener. SessionRateLimit caps mutating
// requests per session per minute; 0 disables the limit.
type HTTPConfig struct {
	Port             int           `json:"port"`
	ReadTimeout      time.Duration `json:"read_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout"`
	Host             string        `json:"host"`
	SessionRateLimit int           `json:"session_rate_limit"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns settings for a single device: file storage next to the binary
func DefaultConfig() *Config {
	return &Config{
		Storage: &StorageConfig{
			Backend:      BackendFile,
			Directory:    "./data/rosters",
			DatabasePath: "./data/rollcall.db",
			Timeout:      30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			Host:             "0.0.0.0",
			SessionRateLimit: 120,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Storage == nil {
		return fmt.Errorf("storage configuration is required")
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Directory == "" {
			return fmt.Errorf("storage directory cannot be empty")
		}
	case BackendSQLite:
		if c.Storage.DatabasePath == "" {
			return fmt.Errorf("storage database path cannot be empty")
		}
	default:
		return fmt.Errorf("storage backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Storage.Backend)
	}
	if c.Storage.Timeout <= 0 {
		return fmt.Errorf("storage timeout must be positive")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.SessionRateLimit < 0 {
		return fmt.Errorf("HTTP session rate limit cannot be negative")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= 0 {
		return fmt.Errorf("WebSocket read timeout must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}

	return nil
}

// Database returns the SQLite settings derived from the storage section.
func (c *Config) Database() *dbconfig.Config {
	db := dbconfig.DefaultConfig()
	db.DatabasePath = c.Storage.DatabasePath
	db.WriteTimeout = c.Storage.Timeout
	return db
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies ROLLCALL_* variables on top of the defaults
// FUNCTIONAL DISCOVERY: Unparseable values fall back to the default silently
func LoadFromEnv() *Config {
	config := DefaultConfig()
	applyEnv(config)
	return config
}

func applyEnv(config *Config) {
	setString(&config.Storage.Backend, "ROLLCALL_STORAGE_BACKEND")
	setString(&config.Storage.Directory, "ROLLCALL_STORAGE_DIRECTORY")
	setString(&config.Storage.DatabasePath, "ROLLCALL_DATABASE_PATH")
	setDuration(&config.Storage.Timeout, "ROLLCALL_STORAGE_TIMEOUT")

	setInt(&config.HTTP.Port, "ROLLCALL_HTTP_PORT")
	setString(&config.HTTP.Host, "ROLLCALL_HTTP_HOST")
	setDuration(&config.HTTP.ReadTimeout, "ROLLCALL_HTTP_READ_TIMEOUT")
	setDuration(&config.HTTP.WriteTimeout, "ROLLCALL_HTTP_WRITE_TIMEOUT")
	setInt(&config.HTTP.SessionRateLimit, "ROLLCALL_HTTP_SESSION_RATE_LIMIT")

	setDuration(&config.WebSocket.PingInterval, "ROLLCALL_WEBSOCKET_PING_INTERVAL")
	setDuration(&config.WebSocket.ReadTimeout, "ROLLCALL_WEBSOCKET_READ_TIMEOUT")
	setDuration(&config.WebSocket.WriteTimeout, "ROLLCALL_WEBSOCKET_WRITE_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// ConfigFile is the JSON layout of a config file
// FUNCTIONAL DISCOVERY: Separate struct so durations can be written as "30s"
type ConfigFile struct {
	Storage   *StorageConfigFile   `json:"storage"`
	HTTP      *HTTPConfigFile      `json:"http"`
	WebSocket *WebSocketConfigFile `json:"websocket"`
}

type StorageConfigFile struct {
	Backend      string `json:"backend"`
	Directory    string `json:"directory"`
	DatabasePath string `json:"database_path"`
	Timeout      string `json:"timeout"`
}

type HTTPConfigFile struct {
	Port             int    `json:"port"`
	ReadTimeout      string `json:"read_timeout"`
	WriteTimeout     string `json:"write_timeout"`
	Host             string `json:"host"`
	SessionRateLimit *int   `json:"session_rate_limit"`
}

type WebSocketConfigFile struct {
	PingInterval string `json:"ping_interval"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

// LoadFromFile reads a JSON config file over the defaults and validates the result
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := applyFile(config, path); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return config, nil
}

func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file ConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if s := file.Storage; s != nil {
		overrideString(&config.Storage.Backend, s.Backend)
		overrideString(&config.Storage.Directory, s.Directory)
		overrideString(&config.Storage.DatabasePath, s.DatabasePath)
		overrideDuration(&config.Storage.Timeout, s.Timeout)
	}
	if h := file.HTTP; h != nil {
		if h.Port > 0 {
			config.HTTP.Port = h.Port
		}
		overrideString(&config.HTTP.Host, h.Host)
		overrideDuration(&config.HTTP.ReadTimeout, h.ReadTimeout)
		overrideDuration(&config.HTTP.WriteTimeout, h.WriteTimeout)
		if h.SessionRateLimit != nil {
			config.HTTP.SessionRateLimit = *h.SessionRateLimit
		}
	}
	if w := file.WebSocket; w != nil {
		overrideDuration(&config.WebSocket.PingInterval, w.PingInterval)
		overrideDuration(&config.WebSocket.ReadTimeout, w.ReadTimeout)
		overrideDuration(&config.WebSocket.WriteTimeout, w.WriteTimeout)
	}
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

// LoadConfigWithPrecedence builds the config as defaults < .env < environment < file
// ARCHITECTURAL DISCOVERY: .env never overrides real environment variables, and a
// broken config file is logged and skipped so the service still starts
func LoadConfigWithPrecedence(dotEnvPath, filePath string) (*Config, error) {
	if err := LoadDotEnv(dotEnvPath); err != nil {
		log.Printf("Ignoring .env file: %v", err)
	}

	config := LoadFromEnv()

	if filePath == "" {
		filePath = os.Getenv(ConfigFileEnv)
	}
	if filePath != "" {
		candidate := LoadFromEnv()
		if err := applyFile(candidate, filePath); err != nil {
			log.Printf("Ignoring config file: %v", err)
		} else {
			config = candidate
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
