package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Cache backends understood by the user data store factory.
const (
	CacheBackendFile   = "file"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Provider exposes read-only access to the application configuration.
// Components depend on this interface instead of the concrete Config so tests
// can hand them a tailored value.
type Provider interface {
	GetServerAddr() string
	GetAppBaseURL() string
	GetSessionSecret() string

	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration

	GetCacheBackend() string
	GetCacheDir() string
	GetCacheFetchTimeout() time.Duration

	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// Config holds all configuration for the application.
type Config struct {
	ServerAddr    string
	AppBaseURL    string
	SessionSecret string

	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration

	CacheBackend      string
	CacheDir          string
	CacheFetchTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

var _ Provider = (*Config)(nil)

// New loads configuration from environment variables. A .env file in the
// working directory is read first if present.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment without
// touching any .env file.
func FromEnv() *Config {
	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		AppBaseURL:    getEnv("APP_BASE_URL", "http://localhost:8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		DBUrl:            os.Getenv("SURREAL_URL"),
		DBUser:           os.Getenv("SURREAL_USER"),
		DBPass:           os.Getenv("SURREAL_PASS"),
		DBNs:             os.Getenv("SURREAL_NS"),
		DBDb:             os.Getenv("SURREAL_DB"),
		DBQueryTimeout:   getDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		DBExecuteTimeout: getDuration("DB_EXECUTE_TIMEOUT", 10*time.Second),

		CacheBackend:      strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendFile)),
		CacheDir:          getEnv("CACHE_DIR", "var/userdata"),
		CacheFetchTimeout: getDuration("CACHE_FETCH_TIMEOUT", 30*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
	}
}

// Validate reports every required setting that is missing or malformed.
func (c *Config) Validate() error {
	var merr *multierror.Error
	if c.DBUrl == "" || c.DBNs == "" || c.DBDb == "" {
		merr = multierror.Append(merr, errors.New("SURREAL_URL, SURREAL_NS and SURREAL_DB are required"))
	}
	if c.SessionSecret == "" {
		merr = multierror.Append(merr, errors.New("SESSION_SECRET is required"))
	}
	if c.DBQueryTimeout <= 0 {
		merr = multierror.Append(merr, errors.New("DB_QUERY_TIMEOUT must be a positive duration"))
	}
	if c.DBExecuteTimeout <= 0 {
		merr = multierror.Append(merr, errors.New("DB_EXECUTE_TIMEOUT must be a positive duration"))
	}
	switch c.CacheBackend {
	case CacheBackendFile, CacheBackendMemory:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			merr = multierror.Append(merr, errors.New("REDIS_ADDR is required when CACHE_BACKEND=redis"))
		}
	default:
		merr = multierror.Append(merr, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}
	return merr.ErrorOrNil()
}

func (c *Config) GetServerAddr() string              { return c.ServerAddr }
func (c *Config) GetAppBaseURL() string              { return c.AppBaseURL }
func (c *Config) GetSessionSecret() string           { return c.SessionSecret }
func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }
func (c *Config) GetCacheBackend() string            { return c.CacheBackend }
func (c *Config) GetCacheDir() string                { return c.CacheDir }
func (c *Config) GetCacheFetchTimeout() time.Duration {
	return c.CacheFetchTimeout
}
func (c *Config) GetRedisAddr() string     { return c.RedisAddr }
func (c *Config) GetRedisPassword() string { return c.RedisPassword }
func (c *Config) GetRedisDB() int          { return c.RedisDB }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go duration strings ("5s") and falls back on parse errors.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid duration for %s (%q), using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid integer for %s (%q), using %d", key, v, fallback)
		return fallback
	}
	return n
}
