package session

import "time"

// Config carries the environment configuration spec.md §6 names for the
// session component. Coordinator loads this from YAML/env via viper and
// passes it in; nothing here reads the environment directly.
type Config struct {
	Host string
	Port int

	SenderCompID string
	TargetCompID string
	SenderSubID  string
	TargetSubID  string

	Username string
	Password string

	// ApiKey/ApiSecret/Passphrase/PortfolioID carry the Coinbase Prime
	// Logon-signature fields the teacher's fixapp.go hardcoded; kept as an
	// authentication profile option alongside plain Username/Password.
	ApiKey      string
	ApiSecret   string
	Passphrase  string
	PortfolioID string

	HeartbeatInterval time.Duration
	ConnectTimeout    time.Duration
	LogonTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
		LogonTimeout:      30 * time.Second,
	}
}
