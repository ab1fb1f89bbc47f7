package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RIDE_DISPATCH_RABBITMQ_HOST.
const EnvPrefix = "RIDE_DISPATCH"

type Config struct {
	RabbitMQ struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		VHost    string `mapstructure:"vhost"`
	} `mapstructure:"rabbitmq"`
	Queues struct {
		Pending  string `mapstructure:"pending"`
		Commands string `mapstructure:"commands"`
	} `mapstructure:"queues"`
	Engine struct {
		HTTPPort       int           `mapstructure:"http_port"`
		CommandWorkers int           `mapstructure:"command_workers"`
		IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	} `mapstructure:"engine"`
	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Admin struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"admin"`
	Simulation Simulation `mapstructure:"simulation"`
	Log        struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Simulation tunes the driver simulator.
type Simulation struct {
	AcceptProbability float64       `mapstructure:"accept_probability"`
	DecisionDelayMin  time.Duration `mapstructure:"decision_delay_min"`
	DecisionDelayMax  time.Duration `mapstructure:"decision_delay_max"`
	ArriveDelayMin    time.Duration `mapstructure:"arrive_delay_min"`
	ArriveDelayMax    time.Duration `mapstructure:"arrive_delay_max"`
	StartDelayMin     time.Duration `mapstructure:"start_delay_min"`
	StartDelayMax     time.Duration `mapstructure:"start_delay_max"`
	CompleteDelayMin  time.Duration `mapstructure:"complete_delay_min"`
	CompleteDelayMax  time.Duration `mapstructure:"complete_delay_max"`
}

// AMQPURL builds the broker URL from the rabbitmq section.
func (c *Config) AMQPURL() string {
	vhost := strings.TrimPrefix(c.RabbitMQ.VHost, "/")
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port, vhost)
}

// Load reads config from path (or ./config/config.yaml when path is empty),
// overlays RIDE_DISPATCH_* environment variables, applies defaults and validates.
// A missing default file is tolerated; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults registers every key so env overrides work without a file.
func applyDefaults(v *viper.Viper) {
	// RabbitMQ
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")

	// Queues
	v.SetDefault("queues.pending", "corridas_pendentes")
	v.SetDefault("queues.commands", "dispatch:commands")

	// Engine
	v.SetDefault("engine.http_port", 3000)
	v.SetDefault("engine.command_workers", 8)
	v.SetDefault("engine.idempotency_ttl", 10*time.Minute)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Admin
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_ttl", 12*time.Hour)

	// Simulation
	v.SetDefault("simulation.accept_probability", 0.7)
	v.SetDefault("simulation.decision_delay_min", 2*time.Second)
	v.SetDefault("simulation.decision_delay_max", 5*time.Second)
	v.SetDefault("simulation.arrive_delay_min", 3*time.Second)
	v.SetDefault("simulation.arrive_delay_max", 8*time.Second)
	v.SetDefault("simulation.start_delay_min", 8*time.Second)
	v.SetDefault("simulation.start_delay_max", 15*time.Second)
	v.SetDefault("simulation.complete_delay_min", 20*time.Second)
	v.SetDefault("simulation.complete_delay_max", 30*time.Second)

	v.SetDefault("log.level", "info")
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// RabbitMQ
	if c.RabbitMQ.Host == "" {
		problems = append(problems, "rabbitmq.host is required")
	}
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}

	// Queues
	if strings.TrimSpace(c.Queues.Pending) == "" {
		problems = append(problems, "queues.pending is required")
	}
	if strings.TrimSpace(c.Queues.Commands) == "" {
		problems = append(problems, "queues.commands is required")
	}

	// Engine
	if c.Engine.HTTPPort < 0 || c.Engine.HTTPPort > 65535 {
		problems = append(problems, "engine.http_port must be in 0..65535")
	}
	if c.Engine.CommandWorkers <= 0 {
		problems = append(problems, "engine.command_workers must be positive")
	}
	if c.Engine.IdempotencyTTL <= 0 {
		problems = append(problems, "engine.idempotency_ttl must be positive")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required when redis.enabled")
	}

	// Admin
	if c.Admin.TokenTTL <= 0 {
		problems = append(problems, "admin.token_ttl must be positive")
	}

	problems = append(problems, c.Simulation.problems()...)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (s Simulation) problems() []string {
	var out []string
	if s.AcceptProbability < 0 || s.AcceptProbability > 1 {
		out = append(out, "simulation.accept_probability must be in 0..1")
	}
	ranges := []struct {
		name     string
		min, max time.Duration
	}{
		{"decision_delay", s.DecisionDelayMin, s.DecisionDelayMax},
		{"arrive_delay", s.ArriveDelayMin, s.ArriveDelayMax},
		{"start_delay", s.StartDelayMin, s.StartDelayMax},
		{"complete_delay", s.CompleteDelayMin, s.CompleteDelayMax},
	}
	for _, r := range ranges {
		if r.min < 0 || r.max < r.min {
			out = append(out, fmt.Sprintf("simulation.%s_min/max must satisfy 0 <= min <= max", r.name))
		}
	}
	return out
}
