// Package coordinator is the composition root (Module L): it owns the
// singleton session client, distributor, tick queue, persistence writer,
// broadcast hub, publisher, and matching engine, and exposes the in-process
// control surface the external router translates protocol requests onto.
package coordinator

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"marketcore/session"
)

// Config is the top-level configuration, spec.md §6. Maps directly to the
// YAML file structure; sensitive session fields are overridable via
// MKT_* environment variables.
type Config struct {
	Session   SessionConfig   `mapstructure:"session"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type SessionConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	SenderCompID      string        `mapstructure:"sender_comp_id"`
	TargetCompID      string        `mapstructure:"target_comp_id"`
	SenderSubID       string        `mapstructure:"sender_sub_id"`
	TargetSubID       string        `mapstructure:"target_sub_id"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	ApiKey            string        `mapstructure:"api_key"`
	ApiSecret         string        `mapstructure:"api_secret"`
	Passphrase        string        `mapstructure:"passphrase"`
	PortfolioID       string        `mapstructure:"portfolio_id"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	LogonTimeout      time.Duration `mapstructure:"logon_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// QueueConfig configures the tick queue and its flush cadence, spec.md §6.
type QueueConfig struct {
	MaxSize       int           `mapstructure:"max_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
}

// FeesConfig sets the matching engine's default maker/taker rates.
type FeesConfig struct {
	MakerRate string `mapstructure:"maker_rate"`
	TakerRate string `mapstructure:"taker_rate"`
}

// PublisherConfig configures the downstream message bus connection.
type PublisherConfig struct {
	BusURI         string        `mapstructure:"bus_uri"`
	Exchange       string        `mapstructure:"exchange"`
	OutboxCapacity int           `mapstructure:"outbox_capacity"`
	ReconnectBase  time.Duration `mapstructure:"reconnect_base"`
	ReconnectMax   time.Duration `mapstructure:"reconnect_max"`
}

// DatabaseConfig points the persistence writer at its sqlite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with MKT_* env var overrides, mirroring
// the teacher's viper-based Load/Validate pair.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("queue.max_size", 500_000)
	v.SetDefault("queue.flush_interval", 5*time.Minute)
	v.SetDefault("queue.batch_size", 1000)
	v.SetDefault("fees.maker_rate", "0.0010")
	v.SetDefault("fees.taker_rate", "0.0020")
	v.SetDefault("publisher.exchange", "market.data")
	v.SetDefault("publisher.outbox_capacity", 10_000)
	v.SetDefault("publisher.reconnect_base", time.Second)
	v.SetDefault("publisher.reconnect_max", 30*time.Second)
	v.SetDefault("session.connect_timeout", 10*time.Second)
	v.SetDefault("session.logon_timeout", 30*time.Second)
	v.SetDefault("session.shutdown_timeout", 30*time.Second)
	v.SetDefault("session.heartbeat_interval", 30*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if v := os.Getenv("MKT_PASSWORD"); v != "" {
		cfg.Session.Password = v
	}
	if v := os.Getenv("MKT_API_KEY"); v != "" {
		cfg.Session.ApiKey = v
	}
	if v := os.Getenv("MKT_API_SECRET"); v != "" {
		cfg.Session.ApiSecret = v
	}
	if v := os.Getenv("MKT_PASSPHRASE"); v != "" {
		cfg.Session.Passphrase = v
	}

	return &cfg, nil
}

// Validate checks all required fields, mirroring the teacher's fail-fast
// exit-code-1 contract (spec.md §6).
func (c *Config) Validate() error {
	if c.Session.Host == "" {
		return fmt.Errorf("session.host is required")
	}
	if c.Session.Port == 0 {
		return fmt.Errorf("session.port is required")
	}
	if c.Session.SenderCompID == "" {
		return fmt.Errorf("session.sender_comp_id is required")
	}
	if c.Session.TargetCompID == "" {
		return fmt.Errorf("session.target_comp_id is required")
	}
	if c.Queue.MaxSize <= 0 {
		return fmt.Errorf("queue.max_size must be > 0")
	}
	if c.Queue.FlushInterval <= 0 {
		return fmt.Errorf("queue.flush_interval must be > 0")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// sessionConfig adapts the coordinator's flat SessionConfig to session.Config.
func (c *Config) sessionConfig() session.Config {
	return session.Config{
		Host:              c.Session.Host,
		Port:              c.Session.Port,
		SenderCompID:      c.Session.SenderCompID,
		TargetCompID:      c.Session.TargetCompID,
		SenderSubID:       c.Session.SenderSubID,
		TargetSubID:       c.Session.TargetSubID,
		Username:          c.Session.Username,
		Password:          c.Session.Password,
		ApiKey:            c.Session.ApiKey,
		ApiSecret:         c.Session.ApiSecret,
		Passphrase:        c.Session.Passphrase,
		PortfolioID:       c.Session.PortfolioID,
		HeartbeatInterval: c.Session.HeartbeatInterval,
		ConnectTimeout:    c.Session.ConnectTimeout,
		LogonTimeout:      c.Session.LogonTimeout,
	}
}
