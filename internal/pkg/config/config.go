package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// UpstreamURL is the base URL of the remote session API the gateway
	// orchestrates. All /api/auth calls are relayed there.
	UpstreamURL string `env:"UPSTREAM_URL, default=http://localhost:5000"`

	Google GoogleConfig
	Redis  RedisConfig
	Mongo  MongoConfig

	// VisitorTTL is how long an idle visitor session store is kept before
	// eviction.
	VisitorTTL time.Duration `env:"VISITOR_TTL, default=30m"`
}

type GoogleConfig struct {
	ClientID  string `env:"GOOGLE_CLIENT_ID"`
	ScriptURL string `env:"GOOGLE_SCRIPT_URL, default=https://accounts.google.com/gsi/client"`
}

type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR, default=localhost:6379"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB,   default=0"`
	SessionTTL time.Duration `env:"SESSION_CACHE_TTL, default=30s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=connect_gateway"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
