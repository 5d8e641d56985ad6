// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers for the token store.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds every runtime setting. A missing Spotify client id is not
// an error here; it only blocks login.
type Config struct {
	SpotifyClientID     string        `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string        `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string        `env:"SPOTIFY_REDIRECT_URI"  envDefault:"http://127.0.0.1:3000/callback"`
	SpotifyAPIURL       string        `env:"SPOTIFY_API_URL"       envDefault:"https://api.spotify.com/v1"`
	SpotifyAccountsURL  string        `env:"SPOTIFY_ACCOUNTS_URL"  envDefault:"https://accounts.spotify.com"`
	SpotifyMarket       string        `env:"SPOTIFY_MARKET"        envDefault:"US"`
	SpotifyMaxRetries   int           `env:"SPOTIFY_MAX_RETRIES"   envDefault:"3"`
	SpotifyRetryBackoff time.Duration `env:"SPOTIFY_RETRY_BACKOFF" envDefault:"500ms"`

	DetectorURL       string        `env:"DETECTOR_URL"`
	CameraSnapshotURL string        `env:"CAMERA_SNAPSHOT_URL"`
	SampleInterval    time.Duration `env:"SAMPLE_INTERVAL" envDefault:"2s"`
	AutoPlay          bool          `env:"AUTOPLAY"        envDefault:"true"`

	StorageDriver string        `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string        `env:"SQLITE_PATH"    envDefault:"emotune.db"`
	RedisAddr     string        `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"       envDefault:"0"`
	TokenTTL      time.Duration `env:"TOKEN_TTL"      envDefault:"0s"`
	TokenKey      string        `env:"TOKEN_KEY"      envDefault:"emotune:spotify_token"`

	HTTPAddr      string `env:"HTTP_ADDR"      envDefault:":8080"`
	LoginRedirect string `env:"LOGIN_REDIRECT" envDefault:"/"`

	MQTTBroker   string `env:"MQTT_BROKER"`
	MQTTClientID string `env:"MQTT_CLIENT_ID" envDefault:"emotune"`
	MQTTTopic    string `env:"MQTT_TOPIC"     envDefault:"emotune"`
	MQTTQoS      uint8  `env:"MQTT_QOS"       envDefault:"0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	WorkerCount int `env:"WORKER_COUNT" envDefault:"2"`
	WorkerQueue int `env:"WORKER_QUEUE" envDefault:"100"`
}

// Load reads the given .env files (".env" when none are named) and then
// parses the environment. Variables already set win over file values and
// a missing file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH is required for the sqlite driver")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.StorageDriver)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("config: SAMPLE_INTERVAL must be positive, got %s", c.SampleInterval)
	}
	if c.WorkerCount < 1 || c.WorkerQueue < 1 {
		return errors.New("config: WORKER_COUNT and WORKER_QUEUE must be at least 1")
	}
	if c.MQTTQoS > 2 {
		return fmt.Errorf("config: MQTT_QOS must be 0, 1 or 2, got %d", c.MQTTQoS)
	}
	if c.SpotifyMaxRetries < 0 {
		return errors.New("config: SPOTIFY_MAX_RETRIES must not be negative")
	}
	return nil
}

// LoginConfigured reports whether a login can be attempted.
func (c Config) LoginConfigured() bool {
	return c.SpotifyClientID != ""
}
