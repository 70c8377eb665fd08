package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Leader   LeaderConfig   `mapstructure:"leader"`
	Instance InstanceConfig `mapstructure:"instance"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type EngineConfig struct {
	// Capacity is the ceiling on concurrently active auctions.
	Capacity int `mapstructure:"capacity"`
	// DefaultDuration applies when createAuction passes zero duration.
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	// ClosedMarketplace gates createAuction behind the manager keys.
	ClosedMarketplace bool `mapstructure:"closed_marketplace"`
	// ManagerKeys authorize resolve/batch-resolve/emergency-end callers.
	ManagerKeys []string `mapstructure:"manager_keys"`
	// SweepInterval is the cron cadence for resolving expired auctions.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type GatewayConfig struct {
	// Enabled routes proof-carrying payloads through the external verifier.
	Enabled bool `mapstructure:"enabled"`
	// URL of the external verification gateway.
	URL string `mapstructure:"url"`
	// VerifierKey authenticates the single identity allowed to call back.
	VerifierKey string `mapstructure:"verifier_key"`
	// ChainID tags outgoing verification requests.
	ChainID string `mapstructure:"chain_id"`
	// VerificationTTL bounds how long a pending verification may wait for
	// its callback before the abandon sweep consumes it.
	VerificationTTL time.Duration `mapstructure:"verification_ttl"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("engine.capacity", 10)
	viper.SetDefault("engine.default_duration", 300*time.Second)
	viper.SetDefault("engine.closed_marketplace", false)
	viper.SetDefault("engine.manager_keys", []string{})
	viper.SetDefault("engine.sweep_interval", 15*time.Second)
	viper.SetDefault("gateway.enabled", false)
	viper.SetDefault("gateway.url", "")
	viper.SetDefault("gateway.verifier_key", "")
	viper.SetDefault("gateway.chain_id", "local")
	viper.SetDefault("gateway.verification_ttl", 10*time.Minute)
	viper.SetDefault("leader.ttl", 30*time.Second)
	viper.SetDefault("instance.id", "auction-engine-1")

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/sealed-auction/")

	// Environment variable support
	viper.AutomaticEnv()

	// Environment variable mappings
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("engine.capacity", "ENGINE_CAPACITY")
	viper.BindEnv("engine.default_duration", "ENGINE_DEFAULT_DURATION")
	viper.BindEnv("engine.closed_marketplace", "ENGINE_CLOSED_MARKETPLACE")
	viper.BindEnv("engine.manager_keys", "ENGINE_MANAGER_KEYS")
	viper.BindEnv("engine.sweep_interval", "ENGINE_SWEEP_INTERVAL")
	viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	viper.BindEnv("gateway.url", "GATEWAY_URL")
	viper.BindEnv("gateway.verifier_key", "GATEWAY_VERIFIER_KEY")
	viper.BindEnv("gateway.chain_id", "GATEWAY_CHAIN_ID")
	viper.BindEnv("gateway.verification_ttl", "GATEWAY_VERIFICATION_TTL")
	viper.BindEnv("leader.ttl", "LEADER_TTL")
	viper.BindEnv("instance.id", "INSTANCE_ID")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, continue with defaults and environment variables
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Redis: %s, MySQL: %s, Capacity: %d, Gateway: %v, Instance: %s",
		c.Server.Host,
		c.Server.Port,
		c.Redis.Address,
		c.MySQL.DSN,
		c.Engine.Capacity,
		c.Gateway.Enabled,
		c.Instance.ID,
	)
}
