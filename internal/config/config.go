package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Vault struct {
		Path string `mapstructure:"path"` // Pebble directory holding credential namespaces
	} `mapstructure:"vault"`
	NATS struct {
		URL            string `mapstructure:"url"`
		Stream         string `mapstructure:"stream"`         // Stream holding session notifications
		StatusSubject  string `mapstructure:"statusSubject"`  // Base subject for status events (e.g. v1.sessions.status)
		MessageSubject string `mapstructure:"messageSubject"` // Base subject for inbound-message events
		MaxAgeDays     int    `mapstructure:"maxAgeDays"`     // Retention for the notification stream
	} `mapstructure:"nats"`
	Gateway struct {
		SubjectPrefix  string        `mapstructure:"subjectPrefix"`  // Root of the protocol bridge subjects
		RequestTimeout time.Duration `mapstructure:"requestTimeout"` // Bound on bridge command round-trips
	} `mapstructure:"gateway"`
	Session SessionConfig `mapstructure:"session"`
	Tags    struct {
		UniquePerSession bool `mapstructure:"uniquePerSession"`
	} `mapstructure:"tags"`
	Notifier NotifierPoolConfig `mapstructure:"notifier"`
	Metrics  struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
}

// SessionConfig holds the lifecycle policy knobs for session state machines.
type SessionConfig struct {
	ReconnectMinDelay    time.Duration `mapstructure:"reconnectMinDelay"`    // Initial reconnect backoff delay
	ReconnectMaxDelay    time.Duration `mapstructure:"reconnectMaxDelay"`    // Backoff cap
	ReconnectMaxAttempts int           `mapstructure:"reconnectMaxAttempts"` // 0 = unbounded (still delay-capped)
	PairingTimeout       time.Duration `mapstructure:"pairingTimeout"`       // Max time a session may sit in qr_pending
	EventBuffer          int           `mapstructure:"eventBuffer"`          // Adapter event channel buffer per session
}

// NotifierPoolConfig holds configuration for the notification worker pool
type NotifierPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)

	v.SetDefault("database.postgresAutoMigrate", true)
	v.SetDefault("vault.path", "./data/vault")

	v.SetDefault("nats.stream", "session_events")
	v.SetDefault("nats.statusSubject", "v1.sessions.status")
	v.SetDefault("nats.messageSubject", "v1.sessions.messages")
	v.SetDefault("nats.maxAgeDays", 7)

	v.SetDefault("gateway.subjectPrefix", "v1.gateway")
	v.SetDefault("gateway.requestTimeout", 10*time.Second)

	// Session lifecycle defaults
	v.SetDefault("session.reconnectMinDelay", 2*time.Second)
	v.SetDefault("session.reconnectMaxDelay", time.Minute)
	v.SetDefault("session.reconnectMaxAttempts", 0)
	v.SetDefault("session.pairingTimeout", 5*time.Minute)
	v.SetDefault("session.eventBuffer", 64)

	v.SetDefault("tags.uniquePerSession", true)

	// Notifier pool defaults
	v.SetDefault("notifier.poolSize", 8)
	v.SetDefault("notifier.queueSize", 4096)
	v.SetDefault("notifier.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.central-empresa")
	v.AddConfigPath("/etc/central-empresa")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if vaultPath := os.Getenv("VAULT_PATH"); vaultPath != "" {
		v.Set("vault.path", vaultPath)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
