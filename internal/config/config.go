package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the relay.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	Features []string      `mapstructure:"features"`
	Session  SessionConfig `mapstructure:"session"`
	DB       DBConfig      `mapstructure:"db"`
	Redis    RedisConfig   `mapstructure:"redis"`
	NATS     NATSConfig    `mapstructure:"nats"`
	OIDC     OIDCConfig    `mapstructure:"oidc"`
	Casbin   CasbinConfig  `mapstructure:"casbin"`
	Cache    CacheConfig   `mapstructure:"cache"`
	Relay    RelayConfig   `mapstructure:"relay"`
	Log      LogConfig     `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port string    `mapstructure:"port"`
	TLS  TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// SessionConfig describes where the web application keeps its sessions.
type SessionConfig struct {
	Engine     string `mapstructure:"engine"`      // memory, mysql, sqlite3, redis
	CookieName string `mapstructure:"cookie_name"` // cookie carrying the session token
}

// DBConfig holds database-specific configuration.
// An empty DSN disables the database.
type DBConfig struct {
	Driver     string `mapstructure:"driver"` // mysql or sqlite3
	DSN        string `mapstructure:"dsn"`
	Migrations string `mapstructure:"migrations"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
}

// OIDCConfig holds OIDC verifier configuration. An empty issuer disables
// ID token verification.
type OIDCConfig struct {
	IssuerURL string `mapstructure:"issuer_url"`
	ClientID  string `mapstructure:"client_id"`
}

// CasbinConfig holds the authorization model location.
// An empty ModelPath selects the built-in RBAC model.
type CasbinConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ModelPath string `mapstructure:"model_path"`
}

// CacheConfig holds the user cache settings.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RelayConfig holds websocket relay settings.
type RelayConfig struct {
	Broker    string        `mapstructure:"broker"` // redis or nats
	Prefix    string        `mapstructure:"prefix"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
	// HeartbeatMessage is both sent by the server and echoed back to clients
	// that connect with ?echo.
	HeartbeatMessage string `mapstructure:"heartbeat_message"`
	Sanitize         bool   `mapstructure:"sanitize"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("features", []string{"sessions", "auth"})
	v.SetDefault("session.engine", "redis")
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.migrations", "migrations")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "wsrelay")
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("casbin.enabled", false)
	v.SetDefault("casbin.model_path", "")
	v.SetDefault("cache.file_path", "")
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("relay.broker", "redis")
	v.SetDefault("relay.prefix", "ws4redis:")
	v.SetDefault("relay.heartbeat", 30*time.Second)
	v.SetDefault("relay.heartbeat_message", "--heartbeat--")
	v.SetDefault("relay.sanitize", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/wsrelay/")
	v.AddConfigPath("$HOME/.wsrelay")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	// Set up viper to read from environment variables
	v.SetEnvPrefix("WSRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal the config into the Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
