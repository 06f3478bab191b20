// Package config loads the YAML configuration shared by all four services,
// applying defaults and the two environment-variable overrides named by the
// system's external interface (BUS_BOOTSTRAP_SERVERS, DATABASE_URL).
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host              string
		Port              int
		User              string
		Password          string
		AckTimeoutSeconds int `yaml:"ack_timeout_seconds"`
	}
	Services struct {
		RideServicePort     int
		DriverServicePort   int
		MatchingServicePort int
		GatewayPort         int
	}
}

// LoadFromFile loads config from a YAML file, applies defaults, layers the
// BUS_BOOTSTRAP_SERVERS/DATABASE_URL environment overrides on top, then
// validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "127.0.0.1"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 9093
	}
	if cfg.RabbitMQ.AckTimeoutSeconds == 0 {
		cfg.RabbitMQ.AckTimeoutSeconds = 10
	}
	if cfg.Services.RideServicePort == 0 {
		cfg.Services.RideServicePort = 8011
	}
	if cfg.Services.DriverServicePort == 0 {
		cfg.Services.DriverServicePort = 8012
	}
	if cfg.Services.MatchingServicePort == 0 {
		cfg.Services.MatchingServicePort = 8013
	}
	if cfg.Services.GatewayPort == 0 {
		cfg.Services.GatewayPort = 8001
	}
}

// applyEnvOverrides layers BUS_BOOTSTRAP_SERVERS and DATABASE_URL over the
// YAML-loaded values: env > file > default.
func applyEnvOverrides(cfg *Config) {
	if bootstrap := strings.TrimSpace(os.Getenv("BUS_BOOTSTRAP_SERVERS")); bootstrap != "" {
		host, port, err := net.SplitHostPort(bootstrap)
		if err != nil {
			// no port encoded; keep the configured AMQP port, override host only
			cfg.RabbitMQ.Host = bootstrap
		} else {
			cfg.RabbitMQ.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				cfg.RabbitMQ.Port = p
			}
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		if u, err := url.Parse(dsn); err == nil {
			if u.Hostname() != "" {
				cfg.Database.Host = u.Hostname()
			}
			if p := u.Port(); p != "" {
				if pi, err := strconv.Atoi(p); err == nil {
					cfg.Database.Port = pi
				}
			}
			if u.User != nil {
				cfg.Database.User = u.User.Username()
				if pw, ok := u.User.Password(); ok {
					cfg.Database.Password = pw
				}
			}
			if name := strings.TrimPrefix(u.Path, "/"); name != "" {
				cfg.Database.Name = name
			}
		}
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}
	if c.RabbitMQ.AckTimeoutSeconds <= 0 {
		problems = append(problems, "rabbitmq.ack_timeout_seconds must be > 0")
	}

	for name, port := range map[string]int{
		"services.ride_service_port":     c.Services.RideServicePort,
		"services.driver_service_port":   c.Services.DriverServicePort,
		"services.matching_service_port": c.Services.MatchingServicePort,
		"services.gateway_port":          c.Services.GatewayPort,
	} {
		if port <= 0 || port > 65535 {
			problems = append(problems, name+" must be in 1..65535")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
