// Package config loads service configuration from defaults, an optional
// config.yaml, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every load or validation failure
var ErrConfiguration = errors.New("configuration error")

// Config holds all runtime settings. Keys map one to one onto the upper
// case environment variables (port -> PORT).
type Config struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port" validate:"min=1,max=65535"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	DatabaseDriver string `mapstructure:"database_driver" validate:"oneof=memory sqlite"`
	DatabasePath   string `mapstructure:"database_path" validate:"required_if=DatabaseDriver sqlite"`
	RedisURL       string `mapstructure:"redis_url" validate:"omitempty,url"`

	QuantumBackend   string  `mapstructure:"quantum_backend" validate:"oneof=simulator qiskit"`
	QuantumShots     int     `mapstructure:"quantum_shots" validate:"min=1,max=8192"`
	QuantumNoise     float64 `mapstructure:"quantum_noise" validate:"min=0,max=1"`
	QuantumSeed      int64   `mapstructure:"quantum_seed"`
	MaxMessageLength int     `mapstructure:"max_message_length" validate:"min=1"`

	ClassiqAPIKey  string `mapstructure:"classiq_api_key"`
	ClassiqBaseURL string `mapstructure:"classiq_base_url" validate:"url"`

	QiskitAPIKey  string        `mapstructure:"qiskit_api_key" validate:"required_if=QuantumBackend qiskit"`
	QiskitCRN     string        `mapstructure:"qiskit_crn"`
	QiskitBaseURL string        `mapstructure:"qiskit_base_url" validate:"url"`
	QiskitBackend string        `mapstructure:"qiskit_backend" validate:"required"`
	QiskitMaxWait time.Duration `mapstructure:"qiskit_max_wait" validate:"min=1s"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile  string `mapstructure:"log_file"`

	// APIRateLimit is requests per minute per client, 0 disables limiting
	APIRateLimit int `mapstructure:"api_rate_limit" validate:"min=0"`

	PresenceIdleTimeout   time.Duration `mapstructure:"presence_idle_timeout" validate:"min=1s"`
	PresenceSweepInterval time.Duration `mapstructure:"presence_sweep_interval" validate:"min=1s"`
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// Load reads configuration from the working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads .env and config.yaml from dir, then the environment.
// Environment variables win over the file, the file wins over defaults.
func LoadFrom(dir string) (*Config, error) {
	// .env is optional and never overrides variables already set
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("cors_origins", DefaultCORSOrigins)

	v.SetDefault("database_driver", DefaultDatabaseDriver)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("redis_url", "")

	v.SetDefault("quantum_backend", DefaultQuantumBackend)
	v.SetDefault("quantum_shots", DefaultQuantumShots)
	v.SetDefault("quantum_noise", DefaultQuantumNoise)
	v.SetDefault("quantum_seed", DefaultQuantumSeed)
	v.SetDefault("max_message_length", DefaultMaxMessageLength)

	v.SetDefault("classiq_api_key", "")
	v.SetDefault("classiq_base_url", DefaultClassiqBaseURL)

	v.SetDefault("qiskit_api_key", "")
	v.SetDefault("qiskit_crn", "")
	v.SetDefault("qiskit_base_url", DefaultQiskitBaseURL)
	v.SetDefault("qiskit_backend", DefaultQiskitBackend)
	v.SetDefault("qiskit_max_wait", DefaultQiskitMaxWait)

	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("api_rate_limit", DefaultAPIRateLimit)

	v.SetDefault("presence_idle_timeout", DefaultPresenceIdleTimeout)
	v.SetDefault("presence_sweep_interval", DefaultPresenceSweepInterval)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
}
