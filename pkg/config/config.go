package config

import "time"

// TripChat definition trip_chat_service YAML structure
type TripChat struct {
	Port string `mapstructure:"port"`

	Mongo DatabaseConfig `mapstructure:"mongo"`
	Redis RedisConfig    `mapstructure:"redis"`

	Profile      CollaboratorConfig `mapstructure:"profile"`
	Notification CollaboratorConfig `mapstructure:"notification"`

	Chat ChatConfig `mapstructure:"chat"`
}

// CollaboratorConfig definition an external HTTP collaborator endpoint
type CollaboratorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatConfig definition chat tunables
type ChatConfig struct {
	// MarkReadRetry bounded attempts of the read-state transaction
	MarkReadRetry int `mapstructure:"mark_read_retry"`
	// ProfileCacheTTL how long a fetched partner profile stays cached
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`
	// PingInterval websocket keepalive ping period
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
