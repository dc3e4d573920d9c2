// Package config loads server configuration from YAML.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Queue    QueueConfig    `yaml:"queue"`
	Auth     AuthConfig     `yaml:"auth"`
	Admin    AdminConfig    `yaml:"admin"`
}

type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QueueConfig struct {
	Name           string `yaml:"name"`
	EnqueueTimeout string `yaml:"enqueue_timeout"`
}

type AuthConfig struct {
	SessionDuration string `yaml:"session_duration"`
	BcryptCost      int    `yaml:"bcrypt_cost"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	TeamName string `yaml:"team_name"`
}

func (c *AuthConfig) GetSessionDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionDuration)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetEnqueueTimeout bounds how long an enqueue may block the caller.
func (c *QueueConfig) GetEnqueueTimeout() time.Duration {
	d, err := time.ParseDuration(c.EnqueueTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	setDefaults(&cfg)

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/crewdock.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "session_tasks"
	}
	if cfg.Queue.EnqueueTimeout == "" {
		cfg.Queue.EnqueueTimeout = "5s"
	}
	if cfg.Auth.SessionDuration == "" {
		cfg.Auth.SessionDuration = "24h"
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Admin.Email == "" {
		cfg.Admin.Email = "admin@localhost"
	}
	if cfg.Admin.Password == "" {
		cfg.Admin.Password = "changeme"
	}
	if cfg.Admin.TeamName == "" {
		cfg.Admin.TeamName = "Default Team"
	}
}
