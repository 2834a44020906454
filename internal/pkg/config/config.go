package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Broker    *BrokerConfig
	Backend   *BackendConfig
	Server    *ServerConfig
	Heartbeat *HeartbeatConfig
	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type BrokerConfig struct {
	URL            string        `env:"MQTT_URL"`
	Username       string        `env:"MQTT_USER"`
	Password       string        `env:"MQTT_PASS"`
	ConnectTimeout time.Duration `env:"MQTT_CONNECT_TIMEOUT" envDefault:"5s"`
	RetryInterval  time.Duration `env:"MQTT_RETRY_INTERVAL" envDefault:"5s"`
}

type BackendConfig struct {
	BaseURL string        `env:"API_URL"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
}

type ServerConfig struct {
	Addr      string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	JWTSecret string `env:"JWT_SECRET"`
}

type HeartbeatConfig struct {
	TTL      time.Duration `env:"HEARTBEAT_TTL" envDefault:"2m"`
	Schedule string        `env:"HEARTBEAT_SCHEDULE" envDefault:"@every 1m"`
}

// FromEnv builds a Config from environment variables only, for deployments
// that do not pass CLI flags.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Broker:    &BrokerConfig{},
		Backend:   &BackendConfig{},
		Server:    &ServerConfig{},
		Heartbeat: &HeartbeatConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
