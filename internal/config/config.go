package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auction   AuctionConfig
	Uploads   UploadConfig
	StripeKey string `envconfig:"STRIPE_SECRET_KEY" default:""`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	Backend string `envconfig:"DB_BACKEND" default:"sqlite"` // sqlite or memory
	Path    string `envconfig:"DB_PATH" default:"./data/auctions.db"`
}

// AuctionConfig holds tunables of the auction core.
type AuctionConfig struct {
	SchedulerInterval time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"10s"`
	AdmissionTimeout  time.Duration `envconfig:"ADMISSION_TIMEOUT" default:"5s"`
	FanoutBuffer      int           `envconfig:"FANOUT_BUFFER" default:"32"`
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	Dir string `envconfig:"UPLOAD_DIR" default:"./static/uploads"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}
